package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pops/player-service/internal/domain"
)

type catalogRepo struct{}

// NewCatalogRepository returns a pgx-backed CatalogRepository over the publisher's game table.
func NewCatalogRepository() CatalogRepository {
	return &catalogRepo{}
}

func (r *catalogRepo) FindPublished(ctx context.Context, db DBTX, gameID int64) (*domain.PublishedVersion, error) {
	var v domain.PublishedVersion
	err := db.QueryRow(ctx, `SELECT id, name, version FROM game WHERE id = $1`, gameID).
		Scan(&v.GameID, &v.Name, &v.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find published game %d: %w", gameID, err)
	}
	return &v, nil
}
