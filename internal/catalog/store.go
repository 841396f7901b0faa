package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	stderrors "dining-concierge/internal/common/errors"
	"dining-concierge/internal/common/logger"
	"dining-concierge/internal/models"
)

const (
	batchGetQuery = `SELECT business_id, name, address, phone, cuisine, rating, review_count
		FROM restaurants WHERE business_id = ANY($1)`

	singleGetQuery = `SELECT business_id, name, address, phone, cuisine, rating, review_count
		FROM restaurants WHERE business_id = $1`
)

// Store hydrates restaurant identifiers into full records from Postgres.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "catalog-store"}),
	}
}

// BatchGet fetches records for the given identifiers in one round trip.
// On batch failure it falls back to per-identifier lookups so one bad row
// does not sink the whole request. Identifiers with no record are skipped;
// result order follows the input order.
func (s *Store) BatchGet(ctx context.Context, ids []string) ([]models.RestaurantRecord, error) {
	if len(ids) == 0 {
		return []models.RestaurantRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx, batchGetQuery, pq.Array(ids))
	if err != nil {
		s.logger.Warn("batch hydration failed, falling back to per-item lookups", map[string]interface{}{
			"ids":   len(ids),
			"error": err.Error(),
		})
		return s.getEach(ctx, ids)
	}
	defer rows.Close()

	byID := make(map[string]models.RestaurantRecord, len(ids))
	for rows.Next() {
		var rec models.RestaurantRecord
		if err := rows.Scan(&rec.BusinessID, &rec.Name, &rec.Address, &rec.Phone,
			&rec.Cuisine, &rec.Rating, &rec.ReviewCount); err != nil {
			return nil, stderrors.NewCatalogFetchFailedError(err)
		}
		byID[rec.BusinessID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewCatalogFetchFailedError(err)
	}

	out := make([]models.RestaurantRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// getEach is the degraded path: one query per identifier, misses skipped.
func (s *Store) getEach(ctx context.Context, ids []string) ([]models.RestaurantRecord, error) {
	out := make([]models.RestaurantRecord, 0, len(ids))
	for _, id := range ids {
		var rec models.RestaurantRecord
		err := s.db.QueryRowContext(ctx, singleGetQuery, id).Scan(
			&rec.BusinessID, &rec.Name, &rec.Address, &rec.Phone,
			&rec.Cuisine, &rec.Rating, &rec.ReviewCount)
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("no catalog record", map[string]interface{}{"business_id": id})
			continue
		}
		if err != nil {
			return nil, stderrors.NewCatalogFetchFailedError(err)
		}
		out = append(out, rec)
	}
	return out, nil
}
