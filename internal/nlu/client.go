// Package nlu is the client for the external slot-recognition oracle. The
// oracle owns natural-language understanding; this side only carries the
// structured result into the dialog engine.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dining-concierge/internal/common/config"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/models"

	stderrors "dining-concierge/internal/common/errors"
)

// Result is the oracle's structured reading of one utterance. Slot values
// are already interpreted/normalized; absent slots were not recognized.
type Result struct {
	Intent string                     `json:"intent"`
	Slots  map[models.SlotName]string `json:"slots"`
}

// Oracle abstracts the slot-recognition service for the dialog engine.
type Oracle interface {
	Parse(ctx context.Context, sessionID, utterance string) (*Result, error)
}

type Client struct {
	config *config.NLUConfig
	client *http.Client
	logger logger.Logger
}

func NewClient(cfg *config.NLUConfig, log logger.Logger) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{
			Timeout: config.GetDuration(cfg.Timeout),
		},
		logger: log.With(map[string]interface{}{"component": "nlu"}),
	}
}

// Parse posts the utterance to the oracle and returns its intent and slot
// candidates. Transient failures are retried with exponential backoff up to
// the configured budget; timeouts surface as NLU_API_TIMEOUT.
func (c *Client) Parse(ctx context.Context, sessionID, utterance string) (*Result, error) {
	requestBody := map[string]interface{}{
		"sessionId": sessionID,
		"utterance": utterance,
	}
	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, stderrors.NewNLUAPITimeoutError()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/parse", bytes.NewBuffer(body))
		if err != nil {
			return nil, stderrors.NewNLUParseFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, stderrors.NewNLUAPITimeoutError()
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return nil, stderrors.NewNLUParseFailedError(lastErr)
	}
	if resp == nil {
		return nil, stderrors.NewNLUParseFailedError(errors.New("no successful response after retries"))
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, stderrors.NewNLUParseFailedError(fmt.Errorf("decode response: %w", err))
	}

	c.logger.Debug("oracle parse", map[string]interface{}{
		"sessionId": sessionID,
		"intent":    result.Intent,
		"slots":     len(result.Slots),
	})

	return &result, nil
}
