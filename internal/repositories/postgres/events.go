package postgres

import (
	"context"
	"database/sql"

	pg "github.com/biovolt/marketplace-api/internal/platform/postgres"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// ProcessedEventRepository records provider webhook event ids.
type ProcessedEventRepository struct {
	db *sql.DB
}

// NewProcessedEventRepository constructs the repository.
func NewProcessedEventRepository(db *sql.DB) *ProcessedEventRepository {
	return &ProcessedEventRepository{db: db}
}

var _ repositories.ProcessedEventRepository = (*ProcessedEventRepository)(nil)

// MarkProcessed inserts the event id. A conflict means the event was already
// handled; the caller treats that as a redelivery.
func (r *ProcessedEventRepository) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	q := pg.QuerierFor(ctx, r.db)

	res, err := q.ExecContext(ctx,
		`INSERT INTO processed_events (event_id, processed_at)
		 VALUES ($1, now())
		 ON CONFLICT (event_id) DO NOTHING`, eventID)
	if err != nil {
		return false, repositories.NewUnavailable("record processed event", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, repositories.NewUnavailable("record event result", err)
	}
	return affected > 0, nil
}
