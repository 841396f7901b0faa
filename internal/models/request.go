// internal/models/request.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// FulfillmentRequest is the immutable snapshot of a completed slot set,
// produced exactly once per finalization and serialized onto the request
// queue. It is never mutated after creation.
type FulfillmentRequest struct {
	RequestID      string    `json:"requestId"`
	Location       string    `json:"location"`
	Cuisine        string    `json:"cuisine"`
	DiningTime     string    `json:"diningTime"`
	NumberOfPeople string    `json:"numberOfPeople"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewFulfillmentRequest snapshots a complete slot set.
func NewFulfillmentRequest(slots SlotSet) *FulfillmentRequest {
	return &FulfillmentRequest{
		RequestID:      uuid.New().String(),
		Location:       slots.Get(SlotLocation),
		Cuisine:        slots.Get(SlotCuisine),
		DiningTime:     slots.Get(SlotDiningTime),
		NumberOfPeople: slots.Get(SlotNumberOfPeople),
		Email:          slots.Get(SlotEmail),
		CreatedAt:      time.Now().UTC(),
	}
}
