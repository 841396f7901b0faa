// Package validation checks inbound chat-turn payloads from the conversation
// front-end before they reach the dialog engine.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"dining-concierge/internal/common/errors"
)

// turnSchema is the contract for one conversation turn as delivered by the
// front-end. Slot interpretation happens downstream; here we only guarantee
// the envelope is well-formed.
var turnSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"sessionId": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"text": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
			"maxLength": 1024,
		},
		"intentHint": map[string]interface{}{
			"type": "string",
		},
	},
	"required":             []string{"sessionId", "text"},
	"additionalProperties": true,
}

// ValidateTurn validates a decoded turn payload. A failure is a
// TURN_VALIDATION_FAILED StandardError, surfaced to the user as a canned
// message and never retried.
func ValidateTurn(payload map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(turnSchema)
	documentLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.NewTurnValidationFailedError(fmt.Sprintf("validation error: %v", err))
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return errors.NewTurnValidationFailedError(strings.Join(errs, "; "))
	}

	return nil
}
