// Package catalog encapsulates restaurant lookup: the cuisine index in
// Elasticsearch holds bare identifiers, the Postgres store holds the full
// records. Selection over-fetches and samples randomly so repeated requests
// for the same cuisine do not return a stale fixed set.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
)

const (
	// DefaultLimit is the interactive selection size.
	DefaultLimit = 3

	// overFetchFactor widens the index query so the random sample has
	// candidates to choose from.
	overFetchFactor = 3
)

type Search struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSearch(client *elasticsearch.Client, index string, log logger.Logger) *Search {
	return &Search{
		client: client,
		index:  index,
		logger: log.With(map[string]interface{}{"component": "catalog-search"}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the sampling source. Tests inject a seeded source so
// selection is reproducible.
func (s *Search) WithRand(rng *rand.Rand) *Search {
	s.rng = rng
	return s
}

// Select returns up to limit restaurant identifiers for a cuisine, uniformly
// sampled without replacement from an over-fetched candidate set. A cuisine
// with zero matches yields an empty slice, not an error.
func (s *Search) Select(ctx context.Context, cuisine string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"cuisine": strings.ToLower(cuisine)},
					},
				},
			},
		},
	}
	body, _ := json.Marshal(queryBody)

	size := limit * overFetchFactor
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, stderrors.NewSearchTimeoutError(cuisine)
		}
		return nil, stderrors.NewSearchQueryFailedError(cuisine, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, stderrors.NewSearchQueryFailedError(cuisine, errors.New(res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source struct {
					RestaurantID string `json:"restaurant_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, stderrors.NewSearchQueryFailedError(cuisine, err)
	}

	candidates := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if hit.Source.RestaurantID != "" {
			candidates = append(candidates, hit.Source.RestaurantID)
		}
	}

	selected := s.sample(candidates, limit)

	s.logger.Debug("cuisine selection", map[string]interface{}{
		"cuisine":    cuisine,
		"candidates": len(candidates),
		"selected":   len(selected),
	})

	return selected, nil
}

// sample picks min(limit, len(candidates)) distinct entries uniformly
// without replacement.
func (s *Search) sample(candidates []string, limit int) []string {
	if len(candidates) == 0 {
		return []string{}
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}

	s.mu.Lock()
	perm := s.rng.Perm(len(candidates))
	s.mu.Unlock()

	out := make([]string, 0, limit)
	for _, idx := range perm[:limit] {
		out = append(out, candidates[idx])
	}
	return out
}
