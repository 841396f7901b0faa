// Package fulfillment consumes finalized requests from the queue, resolves
// restaurant candidates, and delivers the recommendation email. Acking is
// the sole signal of success: any failure during search, hydration, or
// dispatch leaves the message on the queue for the redelivery policy.
package fulfillment

import (
	"context"
	"errors"
	"time"

	"dining-concierge/internal/common/config"
	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/common/metrics"
	"dining-concierge/internal/common/observability"
	"dining-concierge/internal/email"
	"dining-concierge/internal/models"
	"dining-concierge/internal/queue"
)

// Selector resolves a cuisine into candidate restaurant identifiers.
type Selector interface {
	Select(ctx context.Context, cuisine string, limit int) ([]string, error)
}

// Hydrator fetches full records for candidate identifiers.
type Hydrator interface {
	BatchGet(ctx context.Context, ids []string) ([]models.RestaurantRecord, error)
}

type Worker struct {
	queue  queue.RequestQueue
	search Selector
	store  Hydrator
	sender email.Sender
	cfg    config.FulfillmentConfig
	batch  int
	logger logger.Logger
	obs    *observability.Observability
}

func NewWorker(q queue.RequestQueue, search Selector, store Hydrator, sender email.Sender,
	cfg config.FulfillmentConfig, batchSize int, log logger.Logger, obs *observability.Observability) *Worker {
	return &Worker{
		queue:  q,
		search: search,
		store:  store,
		sender: sender,
		cfg:    cfg,
		batch:  batchSize,
		logger: log.With(map[string]interface{}{"component": "fulfillment-worker"}),
		obs:    obs,
	}
}

// Run polls the queue until the context is cancelled. Each dequeued batch is
// fanned out over a bounded worker pool.
func (w *Worker) Run(ctx context.Context, pollEvery time.Duration) {
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	w.logger.Info("fulfillment worker started", map[string]interface{}{
		"poll_interval": pollEvery.String(),
		"concurrency":   w.cfg.Concurrency,
	})

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("fulfillment worker stopping", nil)
			return
		case <-ticker.C:
			if _, err := w.ProcessBatch(ctx); err != nil {
				w.logger.Error("batch poll failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// ProcessBatch dequeues one batch and processes it. Event-driven callers
// that already hold a batch use ProcessRequests instead.
func (w *Worker) ProcessBatch(ctx context.Context) ([]models.DeliveryOutcome, error) {
	deliveries, err := w.queue.DequeueBatch(ctx, w.batch)
	if err != nil {
		return nil, err
	}
	return w.ProcessRequests(ctx, deliveries), nil
}

// ProcessRequests fans a supplied batch out over a bounded pool and returns
// one outcome per delivery, in delivery order.
func (w *Worker) ProcessRequests(ctx context.Context, deliveries []queue.Delivery) []models.DeliveryOutcome {
	if len(deliveries) == 0 {
		return nil
	}

	concurrency := w.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	outcomes := make([]models.DeliveryOutcome, len(deliveries))
	sem := make(chan struct{}, concurrency)
	done := make(chan int, len(deliveries))

	for i := range deliveries {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()
			outcomes[idx] = w.processOne(ctx, deliveries[idx])
			done <- idx
		}(i)
	}
	for range deliveries {
		<-done
	}

	return outcomes
}

// processOne runs the full pipeline for one delivery: search, hydrate,
// render, dispatch, ack. Partial progress is never persisted; a redelivered
// request reruns from scratch.
func (w *Worker) processOne(ctx context.Context, d queue.Delivery) models.DeliveryOutcome {
	req := d.Request
	start := time.Now()

	reqCtx := ctx
	if timeout := w.cfg.RequestTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	outcome := w.fulfill(reqCtx, req)

	if outcome.Status == models.OutcomeSuccess {
		if err := w.queue.Ack(reqCtx, d.Handle); err != nil {
			// Delivery happened but the ack did not stick; redelivery will
			// resend the same email, which is an acceptable duplicate.
			w.logger.Warn("ack failed after successful delivery", map[string]interface{}{
				"request_id": req.RequestID,
				"error":      err.Error(),
			})
		}
	} else {
		w.logger.Warn("request left for redelivery", map[string]interface{}{
			"request_id": req.RequestID,
			"receives":   d.Receives,
			"detail":     outcome.Detail,
		})
	}

	status := string(outcome.Status)
	metrics.FulfillmentOutcomes.WithLabelValues(status).Inc()
	metrics.FulfillmentDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if w.obs != nil {
		w.obs.RecordFulfillment(ctx, time.Since(start), status)
	}

	return outcome
}

func (w *Worker) fulfill(ctx context.Context, req *models.FulfillmentRequest) models.DeliveryOutcome {
	ids, err := w.search.Select(ctx, req.Cuisine, w.cfg.SearchLimit)
	if err != nil {
		return w.retryable(req, err)
	}

	if len(ids) == 0 {
		if w.cfg.RetryOnNoMatch {
			return models.DeliveryOutcome{
				RequestID: req.RequestID,
				Status:    models.OutcomeRetryableFailure,
				Detail:    "no catalog matches, retry requested by config",
			}
		}
		return w.sendNoResults(ctx, req)
	}

	records, err := w.store.BatchGet(ctx, ids)
	if err != nil {
		return w.retryable(req, err)
	}
	if len(records) == 0 {
		// Identifiers exist in the index but none hydrated; the answer to
		// the user is the same as zero matches.
		return w.sendNoResults(ctx, req)
	}

	subject, body := renderRecommendation(req, records, w.cfg.RenderLimit)
	if err := w.sender.Send(ctx, req.Email, subject, body); err != nil {
		return w.retryable(req, err)
	}

	metrics.EmailsSent.WithLabelValues("recommendation").Inc()
	w.logger.Info("recommendations delivered", map[string]interface{}{
		"request_id":  req.RequestID,
		"cuisine":     req.Cuisine,
		"suggestions": len(records),
	})

	return models.DeliveryOutcome{
		RequestID: req.RequestID,
		Status:    models.OutcomeSuccess,
		EmailedAt: time.Now().UTC(),
	}
}

// sendNoResults delivers the no-match notice. It still counts as success:
// absence of matches is a final answer, not a transient condition.
func (w *Worker) sendNoResults(ctx context.Context, req *models.FulfillmentRequest) models.DeliveryOutcome {
	subject, body := renderNoResults(req)
	if err := w.sender.Send(ctx, req.Email, subject, body); err != nil {
		return w.retryable(req, err)
	}

	metrics.EmailsSent.WithLabelValues("no_results").Inc()
	w.logger.Info("no-results notice delivered", map[string]interface{}{
		"request_id": req.RequestID,
		"cuisine":    req.Cuisine,
	})

	return models.DeliveryOutcome{
		RequestID: req.RequestID,
		Status:    models.OutcomeSuccess,
		Detail:    "no catalog matches",
		EmailedAt: time.Now().UTC(),
	}
}

func (w *Worker) retryable(req *models.FulfillmentRequest, err error) models.DeliveryOutcome {
	status := models.OutcomeRetryableFailure
	if !stderrors.IsRetryable(err) {
		status = models.OutcomeTerminalFailure
	}

	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		w.logger.Error("fulfillment step failed", map[string]interface{}{
			"request_id": req.RequestID,
			"code":       string(stdErr.Code),
			"category":   stderrors.GetErrorCategory(stdErr.Code),
			"retryable":  stdErr.Retryable,
		})
	}

	return models.DeliveryOutcome{
		RequestID: req.RequestID,
		Status:    status,
		Detail:    err.Error(),
	}
}
