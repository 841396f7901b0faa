package nlu

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dining-concierge/internal/common/config"
	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/models"
)

func newTestClient(baseURL string, maxRetries int) *Client {
	return NewClient(&config.NLUConfig{
		BaseURL:    baseURL,
		Timeout:    2000,
		MaxRetries: maxRetries,
	}, logger.NewNoOpLogger())
}

func TestClient_Parse_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/parse", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sess-1", body["sessionId"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"intent": "DiningSuggestionsIntent",
			"slots": map[string]string{
				"Location": "Manhattan",
				"Cuisine":  "Japanese",
			},
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, 0).Parse(context.Background(), "sess-1", "sushi in manhattan")
	require.NoError(t, err)
	assert.Equal(t, "DiningSuggestionsIntent", result.Intent)
	assert.Equal(t, "Manhattan", result.Slots[models.SlotLocation])
	assert.Equal(t, "Japanese", result.Slots[models.SlotCuisine])
}

func TestClient_Parse_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"intent": "GreetingIntent",
			"slots":  map[string]string{},
		})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL, 2).Parse(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "GreetingIntent", result.Intent)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestClient_Parse_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 1).Parse(context.Background(), "sess-1", "hello")
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeNLUParseFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestClient_Parse_TimeoutMapsToTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL, 0).Parse(ctx, "sess-1", "hello")
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeNLUAPITimeout, stdErr.Code)
}
