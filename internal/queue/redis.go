// internal/queue/redis.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dining-concierge/internal/common/config"
	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/common/metrics"
	"dining-concierge/internal/models"
)

// RedisQueue implements RequestQueue on Redis:
//
//	<key>:pending   LIST  message IDs awaiting delivery (FIFO)
//	<key>:payload   HASH  message ID -> serialized FulfillmentRequest
//	<key>:inflight  ZSET  message ID scored by visibility deadline (unix ms)
//	<key>:receives  HASH  message ID -> delivery count
//	<key>:dead      LIST  serialized DeadLetter entries
//
// Expired in-flight entries are swept back onto pending at the start of
// each DequeueBatch call, so redelivery needs no background timer.
type RedisQueue struct {
	rdb      *redis.Client
	cfg      config.QueueConfig
	logger   logger.Logger
	notifier DeadLetterNotifier

	now func() time.Time
}

func NewRedisQueue(rdb *redis.Client, cfg config.QueueConfig, log logger.Logger) *RedisQueue {
	return &RedisQueue{
		rdb:    rdb,
		cfg:    cfg,
		logger: log.With(map[string]interface{}{"component": "queue"}),
		now:    time.Now,
	}
}

// WithNotifier attaches a dead-letter notifier. Notification is best effort
// and never blocks or fails the dequeue path.
func (q *RedisQueue) WithNotifier(n DeadLetterNotifier) *RedisQueue {
	q.notifier = n
	return q
}

func (q *RedisQueue) pendingKey() string  { return q.cfg.Key + ":pending" }
func (q *RedisQueue) payloadKey() string  { return q.cfg.Key + ":payload" }
func (q *RedisQueue) inflightKey() string { return q.cfg.Key + ":inflight" }
func (q *RedisQueue) receivesKey() string { return q.cfg.Key + ":receives" }
func (q *RedisQueue) deadKey() string     { return q.cfg.Key + ":dead" }

// Enqueue serializes the request and appends it to the pending list.
func (q *RedisQueue) Enqueue(ctx context.Context, req *models.FulfillmentRequest) (Receipt, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: marshal request: %v", ErrTransport, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.payloadKey(), req.RequestID, body)
	pipe.LPush(ctx, q.pendingKey(), req.RequestID)
	if _, err := pipe.Exec(ctx); err != nil {
		return Receipt{}, fmt.Errorf("%w: enqueue: %v", ErrTransport, err)
	}

	metrics.RequestsEnqueued.Inc()
	q.logger.Info("request enqueued", map[string]interface{}{
		"requestId": req.RequestID,
		"cuisine":   req.Cuisine,
	})

	return Receipt{MessageID: req.RequestID}, nil
}

// DequeueBatch returns up to maxItems deliveries. Each delivered message is
// hidden from other consumers until its visibility deadline; messages whose
// delivery count would exceed the budget are dead-lettered instead of
// delivered.
func (q *RedisQueue) DequeueBatch(ctx context.Context, maxItems int) ([]Delivery, error) {
	if maxItems <= 0 {
		maxItems = q.cfg.BatchSize
	}

	if err := q.requeueExpired(ctx); err != nil {
		return nil, err
	}

	deliveries := make([]Delivery, 0, maxItems)
	for len(deliveries) < maxItems {
		id, err := q.rdb.RPop(ctx, q.pendingKey()).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return deliveries, fmt.Errorf("%w: pop pending: %v", ErrTransport, err)
		}

		// Mark the id in-flight before anything else can fail. Any error
		// (or crash) from here on leaves the id in the in-flight set, and
		// the expiry sweep puts it back on pending once the visibility
		// window lapses. A popped id must never be on neither structure.
		deadline := q.now().Add(q.cfg.VisibilityWindow())
		if err := q.rdb.ZAdd(ctx, q.inflightKey(), redis.Z{
			Score:  float64(deadline.UnixMilli()),
			Member: id,
		}).Err(); err != nil {
			if pushErr := q.rdb.LPush(ctx, q.pendingKey(), id).Err(); pushErr != nil {
				q.logger.Error("could not restore popped message to pending", map[string]interface{}{
					"messageId": id,
					"error":     pushErr.Error(),
				})
			}
			return deliveries, fmt.Errorf("%w: mark in-flight: %v", ErrTransport, err)
		}

		body, err := q.rdb.HGet(ctx, q.payloadKey(), id).Result()
		if err == redis.Nil {
			// Payload already acked or dead-lettered under a stale ID.
			q.discard(ctx, id)
			continue
		}
		if err != nil {
			return deliveries, fmt.Errorf("%w: load payload: %v", ErrTransport, err)
		}

		var req models.FulfillmentRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			q.logger.Error("dropping unreadable message", map[string]interface{}{
				"messageId": id,
				"error":     err.Error(),
			})
			q.discard(ctx, id)
			continue
		}

		receives, err := q.rdb.HIncrBy(ctx, q.receivesKey(), id, 1).Result()
		if err != nil {
			return deliveries, fmt.Errorf("%w: bump receive count: %v", ErrTransport, err)
		}

		if int(receives) > q.cfg.MaxReceives {
			q.deadLetter(ctx, id, &req, int(receives)-1)
			continue
		}

		deliveries = append(deliveries, Delivery{
			Request:  &req,
			Handle:   AckHandle{MessageID: id},
			Receives: int(receives),
		})
	}

	return deliveries, nil
}

// Ack removes a delivered message. Acking twice, or acking a message that
// was already redelivered and dead-lettered, is a no-op.
func (q *RedisQueue) Ack(ctx context.Context, handle AckHandle) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey(), handle.MessageID)
	pipe.HDel(ctx, q.payloadKey(), handle.MessageID)
	pipe.HDel(ctx, q.receivesKey(), handle.MessageID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: ack: %v", ErrTransport, err)
	}
	return nil
}

// DeadLetters returns up to maxItems dead-lettered requests for inspection.
func (q *RedisQueue) DeadLetters(ctx context.Context, maxItems int) ([]DeadLetter, error) {
	if maxItems <= 0 {
		maxItems = q.cfg.BatchSize
	}

	entries, err := q.rdb.LRange(ctx, q.deadKey(), 0, int64(maxItems)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read dead letters: %v", ErrTransport, err)
	}

	out := make([]DeadLetter, 0, len(entries))
	for _, entry := range entries {
		var dl DeadLetter
		if err := json.Unmarshal([]byte(entry), &dl); err != nil {
			continue
		}
		out = append(out, dl)
	}
	return out, nil
}

// requeueExpired sweeps in-flight messages whose visibility deadline passed
// back onto the pending list.
func (q *RedisQueue) requeueExpired(ctx context.Context) error {
	nowMs := fmt.Sprintf("%d", q.now().UnixMilli())

	expired, err := q.rdb.ZRangeByScore(ctx, q.inflightKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: nowMs,
	}).Result()
	if err != nil {
		return fmt.Errorf("%w: scan in-flight: %v", ErrTransport, err)
	}

	for _, id := range expired {
		removed, err := q.rdb.ZRem(ctx, q.inflightKey(), id).Result()
		if err != nil {
			return fmt.Errorf("%w: requeue expired: %v", ErrTransport, err)
		}
		if removed == 0 {
			// Another consumer already swept it.
			continue
		}
		if err := q.rdb.LPush(ctx, q.pendingKey(), id).Err(); err != nil {
			return fmt.Errorf("%w: requeue expired: %v", ErrTransport, err)
		}
		metrics.QueueRedeliveries.Inc()
		q.logger.Warn("visibility window expired, requeued", map[string]interface{}{
			"messageId": id,
		})
	}

	return nil
}

// deadLetter moves a message to the dead-letter list and fires the notifier.
func (q *RedisQueue) deadLetter(ctx context.Context, id string, req *models.FulfillmentRequest, receives int) {
	entry, _ := json.Marshal(DeadLetter{Request: req, Receives: receives})

	pipe := q.rdb.TxPipeline()
	pipe.RPush(ctx, q.deadKey(), entry)
	pipe.HDel(ctx, q.payloadKey(), id)
	pipe.HDel(ctx, q.receivesKey(), id)
	pipe.ZRem(ctx, q.inflightKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		// The id stays in the in-flight set; the expiry sweep redelivers
		// it and the move is retried on the next dequeue.
		q.logger.Error("dead-letter move failed", map[string]interface{}{
			"messageId": id,
			"error":     err.Error(),
		})
		return
	}

	metrics.RequestsDeadLettered.Inc()
	q.logger.Error("request dead-lettered", map[string]interface{}{
		"requestId": req.RequestID,
		"receives":  receives,
		"error":     stderrors.NewRetryBudgetExhaustedError(req.RequestID, receives).Error(),
	})

	if q.notifier != nil {
		q.notifier.NotifyDeadLetter(ctx, req, receives)
	}
}

func (q *RedisQueue) discard(ctx context.Context, id string) {
	pipe := q.rdb.TxPipeline()
	pipe.HDel(ctx, q.payloadKey(), id)
	pipe.HDel(ctx, q.receivesKey(), id)
	pipe.ZRem(ctx, q.inflightKey(), id)
	_, _ = pipe.Exec(ctx)
}
