package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "dining-concierge/internal/common/errors"
)

func TestValidateTurnAcceptsWellFormedPayload(t *testing.T) {
	err := ValidateTurn(map[string]interface{}{
		"sessionId": "s-1",
		"text":      "I want Japanese food",
	})
	assert.NoError(t, err)
}

func TestValidateTurnRejectsMissingFields(t *testing.T) {
	err := ValidateTurn(map[string]interface{}{"text": "hello"})
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeTurnValidationFailed, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestValidateTurnRejectsOversizedText(t *testing.T) {
	err := ValidateTurn(map[string]interface{}{
		"sessionId": "s-1",
		"text":      strings.Repeat("a", 1025),
	})
	assert.Error(t, err)
}
