// Package queue carries finalized fulfillment requests from the dialog
// engine to the fulfillment workers with at-least-once delivery. Messages
// that are dequeued but not acked inside the visibility window become
// eligible for redelivery; messages that exhaust the redelivery budget move
// to the dead-letter path and are never retried automatically.
package queue

import (
	"context"
	"errors"

	"dining-concierge/internal/models"
)

// ErrTransport marks enqueue/dequeue failures caused by the transport
// itself. The enqueuing side must treat these as retryable.
var ErrTransport = errors.New("QUEUE_TRANSPORT_FAILED")

// Receipt acknowledges a successful enqueue.
type Receipt struct {
	MessageID string
}

// AckHandle identifies one in-flight delivery for acking.
type AckHandle struct {
	MessageID string
}

// Delivery is one dequeued request plus its ack handle. Receives counts how
// many times this message has been delivered, including this one.
type Delivery struct {
	Request  *models.FulfillmentRequest
	Handle   AckHandle
	Receives int
}

// DeadLetter is a request that exhausted its redelivery budget, kept for
// manual inspection.
type DeadLetter struct {
	Request  *models.FulfillmentRequest `json:"request"`
	Receives int                        `json:"receives"`
}

// RequestQueue is the durable channel between dialog and fulfillment.
// Acking is idempotent: acking an already-removed message is a no-op.
type RequestQueue interface {
	Enqueue(ctx context.Context, req *models.FulfillmentRequest) (Receipt, error)
	DequeueBatch(ctx context.Context, maxItems int) ([]Delivery, error)
	Ack(ctx context.Context, handle AckHandle) error
	DeadLetters(ctx context.Context, maxItems int) ([]DeadLetter, error)
}

// DeadLetterNotifier is invoked (best effort) when a message dead-letters.
type DeadLetterNotifier interface {
	NotifyDeadLetter(ctx context.Context, req *models.FulfillmentRequest, receives int)
}
