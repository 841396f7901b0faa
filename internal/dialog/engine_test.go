package dialog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/models"
	"dining-concierge/internal/queue"
)

type fakeQueue struct {
	enqueued []*models.FulfillmentRequest
	failWith error
}

func (f *fakeQueue) Enqueue(ctx context.Context, req *models.FulfillmentRequest) (queue.Receipt, error) {
	if f.failWith != nil {
		return queue.Receipt{}, f.failWith
	}
	f.enqueued = append(f.enqueued, req)
	return queue.Receipt{MessageID: req.RequestID}, nil
}

func (f *fakeQueue) DequeueBatch(ctx context.Context, maxItems int) ([]queue.Delivery, error) {
	return nil, nil
}

func (f *fakeQueue) Ack(ctx context.Context, handle queue.AckHandle) error { return nil }

func (f *fakeQueue) DeadLetters(ctx context.Context, maxItems int) ([]queue.DeadLetter, error) {
	return nil, nil
}

func newTestEngine(q queue.RequestQueue) *Engine {
	return NewEngine(q, logger.NewNoOpLogger())
}

func TestGreetingAndThanksLeaveSlotsUntouched(t *testing.T) {
	engine := newTestEngine(&fakeQueue{})
	state := models.NewConversationState("s-1")
	state.Slots.Fill(models.SlotCuisine, "thai")

	greet := engine.HandleTurn(context.Background(), state, IntentGreeting, nil)
	assert.Equal(t, ActionClose, greet.Type)
	assert.Contains(t, greet.Message, "dining concierge")

	thanks := engine.HandleTurn(context.Background(), state, IntentThankYou, nil)
	assert.Equal(t, ActionClose, thanks.Type)
	assert.Contains(t, thanks.Message, "welcome")

	assert.Equal(t, "thai", state.Slots.Get(models.SlotCuisine))
}

func TestUnknownIntentRedirects(t *testing.T) {
	engine := newTestEngine(&fakeQueue{})
	state := models.NewConversationState("s-1")

	action := engine.HandleTurn(context.Background(), state, "BookFlightIntent", nil)
	assert.Equal(t, ActionClose, action.Type)
	assert.Contains(t, action.Message, "still learning")
}

func TestElicitsFirstMissingSlotInPriorityOrder(t *testing.T) {
	engine := newTestEngine(&fakeQueue{})
	state := models.NewConversationState("s-1")

	action := engine.HandleTurn(context.Background(), state, IntentDiningSuggestions,
		map[models.SlotName]string{
			models.SlotCuisine: "Japanese",
			models.SlotEmail:   "diner@example.com",
		})

	require.Equal(t, ActionElicitSlot, action.Type)
	assert.Equal(t, models.SlotLocation, action.SlotToElicit)
	assert.Contains(t, action.Message, "Where would you like to dine?")
}

func TestFullConversationFlow(t *testing.T) {
	q := &fakeQueue{}
	engine := newTestEngine(q)
	state := models.NewConversationState("s-1")
	ctx := context.Background()

	turns := []struct {
		intent     string
		candidates map[models.SlotName]string
		wantType   ActionType
		wantSlot   models.SlotName
	}{
		{IntentGreeting, nil, ActionClose, ""},
		{IntentDiningSuggestions, map[models.SlotName]string{models.SlotLocation: "Manhattan"}, ActionElicitSlot, models.SlotCuisine},
		{IntentDiningSuggestions, map[models.SlotName]string{models.SlotCuisine: "Japanese"}, ActionElicitSlot, models.SlotDiningTime},
		{IntentDiningSuggestions, map[models.SlotName]string{models.SlotDiningTime: "7:00 PM"}, ActionElicitSlot, models.SlotNumberOfPeople},
		{IntentDiningSuggestions, map[models.SlotName]string{models.SlotNumberOfPeople: "2"}, ActionElicitSlot, models.SlotEmail},
	}
	for i, turn := range turns {
		action := engine.HandleTurn(ctx, state, turn.intent, turn.candidates)
		assert.Equal(t, turn.wantType, action.Type, "turn %d", i)
		assert.Equal(t, turn.wantSlot, action.SlotToElicit, "turn %d", i)
	}

	final := engine.HandleTurn(ctx, state, IntentDiningSuggestions,
		map[models.SlotName]string{models.SlotEmail: "diner@example.com"})

	require.Equal(t, ActionClose, final.Type)
	assert.Contains(t, final.Message, "Japanese")
	assert.Contains(t, final.Message, "Manhattan")
	assert.Contains(t, final.Message, "2 people")
	assert.Contains(t, final.Message, "7:00 PM")

	require.Len(t, q.enqueued, 1)
	req := q.enqueued[0]
	assert.Equal(t, "Japanese", req.Cuisine)
	assert.Equal(t, "diner@example.com", req.Email)

	// Finalization resets the conversation; the next turn starts over.
	next, ok := state.Slots.NextMissing()
	require.True(t, ok)
	assert.Equal(t, models.SlotLocation, next)
}

func TestEmptyCandidateNeverClearsFilledSlot(t *testing.T) {
	engine := newTestEngine(&fakeQueue{})
	state := models.NewConversationState("s-1")
	state.Slots.Fill(models.SlotLocation, "Manhattan")

	action := engine.HandleTurn(context.Background(), state, IntentDiningSuggestions,
		map[models.SlotName]string{models.SlotLocation: ""})

	assert.Equal(t, "Manhattan", state.Slots.Get(models.SlotLocation))
	assert.Equal(t, models.SlotCuisine, action.SlotToElicit)
}

func TestInvalidEmailIsDroppedAndReElicited(t *testing.T) {
	q := &fakeQueue{}
	engine := newTestEngine(q)
	state := models.NewConversationState("s-1")
	state.Slots.Merge(map[models.SlotName]string{
		models.SlotLocation:       "Manhattan",
		models.SlotCuisine:        "Japanese",
		models.SlotDiningTime:     "7:00 PM",
		models.SlotNumberOfPeople: "2",
	})

	action := engine.HandleTurn(context.Background(), state, IntentDiningSuggestions,
		map[models.SlotName]string{models.SlotEmail: "not-an-address"})

	require.Equal(t, ActionElicitSlot, action.Type)
	assert.Equal(t, models.SlotEmail, action.SlotToElicit)
	assert.Empty(t, state.Slots.Get(models.SlotEmail))
	assert.Empty(t, q.enqueued)

	// A corrected address finalizes normally.
	retry := engine.HandleTurn(context.Background(), state, IntentDiningSuggestions,
		map[models.SlotName]string{models.SlotEmail: "diner@example.com"})
	assert.Equal(t, ActionClose, retry.Type)
	assert.Len(t, q.enqueued, 1)
}

func TestEnqueueFailureRetainsSlotSet(t *testing.T) {
	q := &fakeQueue{failWith: queue.ErrTransport}
	engine := newTestEngine(q)
	state := models.NewConversationState("s-1")

	action := engine.HandleTurn(context.Background(), state, IntentDiningSuggestions,
		map[models.SlotName]string{
			models.SlotLocation:       "Manhattan",
			models.SlotCuisine:        "Japanese",
			models.SlotDiningTime:     "7:00 PM",
			models.SlotNumberOfPeople: "2",
			models.SlotEmail:          "diner@example.com",
		})

	require.Equal(t, ActionClose, action.Type)
	assert.NotContains(t, action.Message, "Perfect!")
	assert.Contains(t, action.Message, "try again")

	// Collected answers survive so the user does not start over.
	assert.True(t, state.Slots.IsComplete())

	// The transport recovers; the next turn finalizes without re-asking.
	q.failWith = nil
	retry := engine.HandleTurn(context.Background(), state, IntentDiningSuggestions, nil)
	assert.Equal(t, ActionClose, retry.Type)
	assert.Contains(t, retry.Message, "Perfect!")
	assert.Len(t, q.enqueued, 1)
	assert.False(t, state.Slots.IsComplete())
}
