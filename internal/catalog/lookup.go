// Package catalog answers "what is the latest published version of this game"
// from the publisher's read-only game table.
package catalog

import (
	"context"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/repository"
)

// Lookup returns the published version of a game, or nil when the publisher does not know it.
type Lookup interface {
	Lookup(ctx context.Context, gameID int64) (*domain.PublishedVersion, error)
}

// PgLookup reads the publisher database.
type PgLookup struct {
	pool  *pgxpool.Pool
	games repository.CatalogRepository
}

// NewPgLookup creates a PgLookup.
func NewPgLookup(pool *pgxpool.Pool, games repository.CatalogRepository) *PgLookup {
	return &PgLookup{pool: pool, games: games}
}

func (l *PgLookup) Lookup(ctx context.Context, gameID int64) (*domain.PublishedVersion, error) {
	v, err := l.games.FindPublished(ctx, l.pool, gameID)
	if err != nil {
		return nil, domain.ErrInternal("catalog lookup", err)
	}
	return v, nil
}

// StaticLookup is an in-process catalog, safe for concurrent use.
type StaticLookup struct {
	mu       sync.RWMutex
	versions map[int64]domain.PublishedVersion
}

// NewStaticLookup creates an empty StaticLookup.
func NewStaticLookup() *StaticLookup {
	return &StaticLookup{versions: make(map[int64]domain.PublishedVersion)}
}

// Publish sets the current version of a game.
func (l *StaticLookup) Publish(gameID int64, version string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v := l.versions[gameID]
	v.GameID = gameID
	v.Version = version
	if v.Name == "" {
		v.Name = "game-" + strconv.FormatInt(gameID, 10)
	}
	l.versions[gameID] = v
}

// Withdraw removes a game from the catalog.
func (l *StaticLookup) Withdraw(gameID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.versions, gameID)
}

func (l *StaticLookup) Lookup(_ context.Context, gameID int64) (*domain.PublishedVersion, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.versions[gameID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
