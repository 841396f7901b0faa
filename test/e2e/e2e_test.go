// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dining-concierge/internal/catalog"
	"dining-concierge/internal/common/config"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/dialog"
	"dining-concierge/internal/fulfillment"
	"dining-concierge/internal/models"
	"dining-concierge/internal/nlu"
	"dining-concierge/internal/queue"
	"dining-concierge/internal/server"
)

// scriptedOracle returns pre-programmed parses in order, one per turn.
type scriptedOracle struct {
	mu      sync.Mutex
	results []*nlu.Result
}

func (s *scriptedOracle) Parse(ctx context.Context, sessionID, utterance string) (*nlu.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return result, nil
}

type capturingSender struct {
	mu   sync.Mutex
	sent []string
}

func (c *capturingSender) Send(ctx context.Context, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, subject+"\n"+body)
	return nil
}

func newESBackend(t *testing.T, ids []string) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		hits := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			hits = append(hits, map[string]interface{}{
				"_source": map[string]interface{}{"restaurant_id": id},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{"hits": hits},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

// TestConversationThroughFulfillment walks a full user journey: five chat
// turns fill the slot set, the finalized request lands on the queue, and one
// worker pass dequeues it, resolves the catalog, and emails the digest.
func TestConversationThroughFulfillment(t *testing.T) {
	log := logger.NewTestLogger(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	requestQueue := queue.NewRedisQueue(rdb, config.QueueConfig{
		Key:               "e2e:requests",
		VisibilityTimeout: 30000,
		MaxReceives:       3,
	}, log)

	oracle := &scriptedOracle{results: []*nlu.Result{
		{Intent: dialog.IntentDiningSuggestions, Slots: map[models.SlotName]string{models.SlotLocation: "Manhattan"}},
		{Intent: dialog.IntentDiningSuggestions, Slots: map[models.SlotName]string{models.SlotCuisine: "Japanese"}},
		{Intent: dialog.IntentDiningSuggestions, Slots: map[models.SlotName]string{models.SlotDiningTime: "7:00 PM"}},
		{Intent: dialog.IntentDiningSuggestions, Slots: map[models.SlotName]string{models.SlotNumberOfPeople: "2"}},
		{Intent: dialog.IntentDiningSuggestions, Slots: map[models.SlotName]string{models.SlotEmail: "diner@example.com"}},
	}}

	engine := dialog.NewEngine(requestQueue, log)
	chatAPI := server.New(engine, oracle, config.HTTPConfig{Address: ":0"}, log, nil)
	handler := chatAPI.Handler()

	utterances := []string{
		"I want to eat in Manhattan",
		"Japanese sounds good",
		"around 7 PM",
		"just the two of us",
		"diner@example.com",
	}
	var last server.TurnResponse
	for _, text := range utterances {
		payload, _ := json.Marshal(map[string]string{"sessionId": "e2e-1", "text": text})
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(string(payload)))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	}
	assert.Equal(t, string(dialog.ActionClose), last.Action)
	assert.Contains(t, last.Message, "Perfect!")

	// Fulfillment side: catalog backed by a fake index and a mocked store.
	esClient := newESBackend(t, []string{"biz-1", "biz-2"})
	search := catalog.NewSearch(esClient, "restaurants", log)

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	dbMock.ExpectQuery("SELECT business_id, name, address").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"business_id", "name", "address", "phone", "cuisine", "rating", "review_count"}).
			AddRow("biz-1", "Ippudo", "65 4th Ave", "+12123880088", "japanese", 4.0, 5161).
			AddRow("biz-2", "Sakagura", "211 E 43rd St", "+12129537253", "japanese", 4.5, 1242))
	store := catalog.NewStore(db, log)

	sender := &capturingSender{}
	worker := fulfillment.NewWorker(requestQueue, search, store, sender,
		config.FulfillmentConfig{SearchLimit: 10, RenderLimit: 5, Concurrency: 2, Timeout: 30000},
		10, log, nil)

	outcomes, err := worker.ProcessBatch(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.OutcomeSuccess, outcomes[0].Status)

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "Japanese Restaurant Recommendations")
	assert.Contains(t, sender.sent[0], "Ippudo")

	// The queue is drained; a second pass finds nothing.
	again, err := worker.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}
