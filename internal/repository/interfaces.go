package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pops/player-service/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// InstalledGameRepository provides access to installed_game.
type InstalledGameRepository interface {
	// FindAll returns every installation, unordered.
	FindAll(ctx context.Context, db DBTX) ([]domain.InstalledGame, error)

	// FindByPlayer returns the installations of one player.
	FindByPlayer(ctx context.Context, db DBTX, playerID int64) ([]domain.InstalledGame, error)

	// FindMatching returns the rows for a key. More than one row is a data anomaly;
	// callers use the first.
	FindMatching(ctx context.Context, db DBTX, key domain.InstallKey) ([]domain.InstalledGame, error)

	// Insert creates a row and assigns its id.
	Insert(ctx context.Context, db DBTX, key domain.InstallKey, version string) (*domain.InstalledGame, error)

	// Save inserts or updates a row keyed by id.
	Save(ctx context.Context, db DBTX, game domain.InstalledGame) (*domain.InstalledGame, error)

	// DeleteMatching removes every row for a key and returns the count removed.
	DeleteMatching(ctx context.Context, db DBTX, key domain.InstallKey) (int64, error)

	// LockKey takes a transaction-scoped advisory lock on a key. Released on commit or rollback.
	LockKey(ctx context.Context, tx pgx.Tx, key domain.InstallKey) error
}

// CatalogRepository reads the publisher's game table.
type CatalogRepository interface {
	// FindPublished returns the current published version, or nil if the game is unknown.
	FindPublished(ctx context.Context, db DBTX, gameID int64) (*domain.PublishedVersion, error)
}

// ConsumeLogRepository provides append-only access to consume_log.
type ConsumeLogRepository interface {
	// Append stores an entry and returns its arrival sequence number.
	Append(ctx context.Context, db DBTX, entry domain.ConsumeLog) (int64, error)

	// List returns entries in arrival order, up to limit (0 means all).
	List(ctx context.Context, db DBTX, limit int) ([]domain.ConsumeLog, error)
}
