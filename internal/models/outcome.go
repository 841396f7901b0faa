// internal/models/outcome.go
package models

import "time"

// OutcomeStatus classifies the result of one fulfillment pass.
type OutcomeStatus string

const (
	// OutcomeSuccess: the request was fully processed and acked. Includes
	// the zero-match case, which produces a no-results email.
	OutcomeSuccess OutcomeStatus = "success"

	// OutcomeRetryableFailure: a dependency failed; the message stays on the
	// queue and the visibility window governs redelivery.
	OutcomeRetryableFailure OutcomeStatus = "retryable_failure"

	// OutcomeTerminalFailure: the redelivery budget is exhausted and the
	// message moved to the dead-letter path.
	OutcomeTerminalFailure OutcomeStatus = "terminal_failure"
)

// DeliveryOutcome is the result of one fulfillment pass over one request.
type DeliveryOutcome struct {
	RequestID string        `json:"requestId"`
	Status    OutcomeStatus `json:"status"`
	Detail    string        `json:"detail,omitempty"`
	EmailedAt time.Time     `json:"emailedAt,omitempty"`
}
