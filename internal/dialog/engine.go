// Package dialog implements the turn-by-turn slot-filling state machine.
// A conversation moves from an empty slot set through partially filled to
// complete; completion finalizes a fulfillment request onto the queue and
// resets the slot set for the next conversation.
package dialog

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/common/metrics"
	"dining-concierge/internal/models"
	"dining-concierge/internal/queue"
)

// Intent names recognized by the engine. Anything else is handled as an
// unknown intent with a canned redirect.
const (
	IntentGreeting          = "GreetingIntent"
	IntentThankYou          = "ThankYouIntent"
	IntentDiningSuggestions = "DiningSuggestionsIntent"
)

// ActionType tells the front-end what to do with the reply.
type ActionType string

const (
	// ActionClose ends the turn; the reply is terminal for this exchange.
	ActionClose ActionType = "close"

	// ActionElicitSlot asks the user for one specific missing slot.
	ActionElicitSlot ActionType = "elicit_slot"
)

// Action is the engine's decision for one turn.
type Action struct {
	Type         ActionType                 `json:"type"`
	Message      string                     `json:"message"`
	SlotToElicit models.SlotName            `json:"slotToElicit,omitempty"`
	Request      *models.FulfillmentRequest `json:"request,omitempty"`
}

// Engine drives the conversation. It owns no session storage; callers pass
// the per-session ConversationState into every turn.
type Engine struct {
	queue  queue.RequestQueue
	logger logger.Logger
}

func NewEngine(q queue.RequestQueue, log logger.Logger) *Engine {
	return &Engine{
		queue:  q,
		logger: log.With(map[string]interface{}{"component": "dialog-engine"}),
	}
}

// HandleTurn processes one user turn. The candidates map carries the slot
// values the NLU oracle recognized in the utterance; values are trusted as
// already interpreted. The engine mutates state.Slots in place and returns
// the action the front-end should render.
func (e *Engine) HandleTurn(ctx context.Context, state *models.ConversationState, intent string, candidates map[models.SlotName]string) *Action {
	metrics.DialogTurnsProcessed.WithLabelValues(intent).Inc()
	state.Intent = intent

	switch intent {
	case IntentGreeting:
		return &Action{Type: ActionClose, Message: greetingReply}
	case IntentThankYou:
		return &Action{Type: ActionClose, Message: thankYouReply}
	case IntentDiningSuggestions:
		return e.handleSlotFilling(ctx, state, candidates)
	default:
		return &Action{Type: ActionClose, Message: unknownReply}
	}
}

func (e *Engine) handleSlotFilling(ctx context.Context, state *models.ConversationState, candidates map[models.SlotName]string) *Action {
	state.Slots.Merge(candidates)

	if missing, ok := state.Slots.NextMissing(); ok {
		return &Action{
			Type:         ActionElicitSlot,
			Message:      elicitPrompt(missing),
			SlotToElicit: missing,
		}
	}

	if err := validation.Validate(state.Slots.Get(models.SlotEmail), is.EmailFormat); err != nil {
		// The interpreted value is unusable; drop it and re-elicit so the
		// user can correct it instead of dead-lettering downstream.
		delete(state.Slots, models.SlotEmail)
		return &Action{
			Type:         ActionElicitSlot,
			Message:      badEmailReply,
			SlotToElicit: models.SlotEmail,
		}
	}

	return e.finalize(ctx, state)
}

// finalize snapshots the complete slot set into an immutable request,
// emits it to the queue, and clears the slot set. On enqueue failure the
// slot set is retained so the user's answers survive the retry.
func (e *Engine) finalize(ctx context.Context, state *models.ConversationState) *Action {
	req := models.NewFulfillmentRequest(state.Slots)

	if _, err := e.queue.Enqueue(ctx, req); err != nil {
		e.logger.Error("enqueue failed, retaining slot set", map[string]interface{}{
			"session_id": state.SessionID,
			"request_id": req.RequestID,
			"error":      stderrors.NewQueueTransportFailedError(err).Error(),
		})
		return &Action{Type: ActionClose, Message: transientReply}
	}

	e.logger.Info("request finalized", map[string]interface{}{
		"session_id": state.SessionID,
		"request_id": req.RequestID,
		"cuisine":    req.Cuisine,
	})

	confirmation := confirmationReply(state.Slots)
	state.Slots.Reset()

	return &Action{
		Type:    ActionClose,
		Message: confirmation,
		Request: req,
	}
}
