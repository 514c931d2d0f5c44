package repository

import (
	"context"
	"fmt"

	"github.com/pops/player-service/internal/domain"
)

type consumeLogRepo struct{}

// NewConsumeLogRepository returns a pgx-backed ConsumeLogRepository.
func NewConsumeLogRepository() ConsumeLogRepository {
	return &consumeLogRepo{}
}

func (r *consumeLogRepo) Append(ctx context.Context, db DBTX, entry domain.ConsumeLog) (int64, error) {
	var seq int64
	err := db.QueryRow(ctx, `
		INSERT INTO consume_log (listener, consumed_at, routing_key, event)
		VALUES ($1, $2, $3, $4)
		RETURNING seq`,
		entry.Listener, entry.ConsumedAt, entry.RoutingKey, string(entry.Event)).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("append consume log: %w", err)
	}
	return seq, nil
}

func (r *consumeLogRepo) List(ctx context.Context, db DBTX, limit int) ([]domain.ConsumeLog, error) {
	query := `SELECT seq, listener, consumed_at, routing_key, event FROM consume_log ORDER BY seq ASC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consume log: %w", err)
	}
	defer rows.Close()

	var entries []domain.ConsumeLog
	for rows.Next() {
		var e domain.ConsumeLog
		var event string
		if err := rows.Scan(&e.Seq, &e.Listener, &e.ConsumedAt, &e.RoutingKey, &event); err != nil {
			return nil, fmt.Errorf("scan consume log: %w", err)
		}
		e.Event = []byte(event)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
