package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/repository"
)

// PgStore is the PostgreSQL Store. WithKey opens a transaction and takes an
// advisory lock on the key, so writers of one key are serialized across processes
// even when no row exists yet.
type PgStore struct {
	pool  *pgxpool.Pool
	games repository.InstalledGameRepository
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool, games repository.InstalledGameRepository) *PgStore {
	return &PgStore{pool: pool, games: games}
}

func (s *PgStore) FindAll(ctx context.Context) ([]domain.InstalledGame, error) {
	return s.games.FindAll(ctx, s.pool)
}

func (s *PgStore) FindByPlayer(ctx context.Context, playerID int64) ([]domain.InstalledGame, error) {
	return s.games.FindByPlayer(ctx, s.pool, playerID)
}

func (s *PgStore) FindMatching(ctx context.Context, key domain.InstallKey) ([]domain.InstalledGame, error) {
	return s.games.FindMatching(ctx, s.pool, key)
}

func (s *PgStore) Insert(ctx context.Context, key domain.InstallKey, version string) (*domain.InstalledGame, error) {
	var out *domain.InstalledGame
	err := s.WithKey(ctx, key, func(ctx context.Context, ops KeyOps) error {
		g, err := ops.Insert(ctx, version)
		out = g
		return err
	})
	return out, err
}

func (s *PgStore) ReplaceVersion(ctx context.Context, existing domain.InstalledGame, version string) (*domain.InstalledGame, error) {
	var out *domain.InstalledGame
	err := s.WithKey(ctx, existing.Key(), func(ctx context.Context, ops KeyOps) error {
		g, err := ops.ReplaceVersion(ctx, existing, version)
		out = g
		return err
	})
	return out, err
}

func (s *PgStore) DeleteMatching(ctx context.Context, key domain.InstallKey) (int64, error) {
	var n int64
	err := s.WithKey(ctx, key, func(ctx context.Context, ops KeyOps) error {
		var err error
		n, err = ops.Delete(ctx)
		return err
	})
	return n, err
}

func (s *PgStore) WithKey(ctx context.Context, key domain.InstallKey, fn func(ctx context.Context, ops KeyOps) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := s.games.LockKey(ctx, tx, key); err != nil {
		return domain.ErrInternal("lock installation", err)
	}

	if err := fn(ctx, &pgKeyOps{tx: tx, games: s.games, key: key}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit transaction", err)
	}
	return nil
}

type pgKeyOps struct {
	tx    pgx.Tx
	games repository.InstalledGameRepository
	key   domain.InstallKey
}

func (o *pgKeyOps) Find(ctx context.Context) ([]domain.InstalledGame, error) {
	return o.games.FindMatching(ctx, o.tx, o.key)
}

func (o *pgKeyOps) Insert(ctx context.Context, version string) (*domain.InstalledGame, error) {
	return o.games.Insert(ctx, o.tx, o.key, version)
}

func (o *pgKeyOps) ReplaceVersion(ctx context.Context, existing domain.InstalledGame, version string) (*domain.InstalledGame, error) {
	if existing.Key() != o.key {
		return nil, fmt.Errorf("replace version: row %d belongs to %s, lock held for %s", existing.ID, existing.Key(), o.key)
	}
	return o.games.Save(ctx, o.tx, existing.WithVersion(version))
}

func (o *pgKeyOps) Delete(ctx context.Context) (int64, error) {
	return o.games.DeleteMatching(ctx, o.tx, o.key)
}
