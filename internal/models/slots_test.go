package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotSet_Merge_MonotonicFill(t *testing.T) {
	slots := NewSlotSet()
	slots.Fill(SlotCuisine, "Japanese")

	// An empty candidate must never clear a filled slot.
	slots.Merge(map[SlotName]string{SlotCuisine: ""})
	assert.Equal(t, "Japanese", slots.Get(SlotCuisine))

	// An absent candidate must not touch it either.
	slots.Merge(map[SlotName]string{SlotLocation: "Manhattan"})
	assert.Equal(t, "Japanese", slots.Get(SlotCuisine))
	assert.Equal(t, "Manhattan", slots.Get(SlotLocation))
}

func TestSlotSet_Merge_LastNonEmptyWins(t *testing.T) {
	slots := NewSlotSet()
	slots.Fill(SlotCuisine, "Italian")

	slots.Merge(map[SlotName]string{SlotCuisine: "Mexican"})
	assert.Equal(t, "Mexican", slots.Get(SlotCuisine))
}

func TestSlotSet_IsComplete(t *testing.T) {
	slots := NewSlotSet()
	assert.False(t, slots.IsComplete())

	slots.Fill(SlotLocation, "Manhattan")
	slots.Fill(SlotCuisine, "Japanese")
	slots.Fill(SlotDiningTime, "7 PM")
	slots.Fill(SlotNumberOfPeople, "2")
	assert.False(t, slots.IsComplete())

	slots.Fill(SlotEmail, "test@example.com")
	assert.True(t, slots.IsComplete())
}

// Completeness after an arbitrary merge sequence must hold exactly when all
// five required slots ended up non-empty.
func TestSlotSet_Merge_CompletenessProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	values := []string{"", "Manhattan", "Thai", "8 PM", "4", "a@b.com"}

	for i := 0; i < 200; i++ {
		slots := NewSlotSet()

		turns := 1 + rng.Intn(6)
		for j := 0; j < turns; j++ {
			candidates := make(map[SlotName]string)
			for _, name := range RequiredSlots {
				if rng.Intn(2) == 0 {
					candidates[name] = values[rng.Intn(len(values))]
				}
			}
			slots.Merge(candidates)
		}

		allFilled := true
		for _, name := range RequiredSlots {
			if slots.Get(name) == "" {
				allFilled = false
				break
			}
		}
		assert.Equal(t, allFilled, slots.IsComplete(), "iteration %d", i)
	}
}

func TestSlotSet_NextMissing_PriorityOrder(t *testing.T) {
	slots := NewSlotSet()
	slots.Fill(SlotLocation, "Manhattan")
	slots.Fill(SlotDiningTime, "7 PM")
	slots.Fill(SlotNumberOfPeople, "2")
	// Cuisine and Email still missing; Cuisine outranks Email.

	next, ok := slots.NextMissing()
	require.True(t, ok)
	assert.Equal(t, SlotCuisine, next)

	missing := slots.Missing()
	assert.Equal(t, []SlotName{SlotCuisine, SlotEmail}, missing)
}

func TestSlotSet_Reset(t *testing.T) {
	slots := NewSlotSet()
	for _, name := range RequiredSlots {
		slots.Fill(name, "x")
	}
	require.True(t, slots.IsComplete())

	slots.Reset()
	assert.False(t, slots.IsComplete())
	assert.Len(t, slots.Missing(), len(RequiredSlots))
}

func TestNewFulfillmentRequest_SnapshotsSlots(t *testing.T) {
	slots := NewSlotSet()
	slots.Fill(SlotLocation, "Manhattan")
	slots.Fill(SlotCuisine, "Japanese")
	slots.Fill(SlotDiningTime, "7 PM")
	slots.Fill(SlotNumberOfPeople, "2")
	slots.Fill(SlotEmail, "test@example.com")

	req := NewFulfillmentRequest(slots)

	assert.NotEmpty(t, req.RequestID)
	assert.Equal(t, "Manhattan", req.Location)
	assert.Equal(t, "Japanese", req.Cuisine)
	assert.Equal(t, "7 PM", req.DiningTime)
	assert.Equal(t, "2", req.NumberOfPeople)
	assert.Equal(t, "test@example.com", req.Email)
	assert.False(t, req.CreatedAt.IsZero())

	// Mutating the slot set afterwards must not affect the snapshot.
	slots.Reset()
	assert.Equal(t, "Japanese", req.Cuisine)
}
