package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pops/player-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = domain.InstallKey{PlayerID: 1, GameID: 100, Platform: domain.PlatformWindows}

func TestMemoryStore_InsertAssignsIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, err := s.Insert(ctx, testKey, "1.0.0")
	require.NoError(t, err)
	b, err := s.Insert(ctx, domain.InstallKey{PlayerID: 2, GameID: 100, Platform: domain.PlatformPS5}, "2.0")
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, testKey, a.Key())

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := s.FindByPlayer(ctx, 2)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "2.0", mine[0].InstalledVersion)
}

func TestMemoryStore_ReplaceVersionKeepsIdentity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	g, err := s.Insert(ctx, testKey, "1.0.0")
	require.NoError(t, err)

	updated, err := s.ReplaceVersion(ctx, *g, "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, g.ID, updated.ID)
	assert.Equal(t, testKey, updated.Key())

	rows, err := s.FindMatching(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1.1.0", rows[0].InstalledVersion)
}

func TestMemoryStore_DeleteMatching(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Insert(ctx, testKey, "1.0.0")
	require.NoError(t, err)
	// Duplicate rows are an anomaly but must all go on delete.
	_, err = s.Insert(ctx, testKey, "1.0.0")
	require.NoError(t, err)

	n, err := s.DeleteMatching(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteMatching(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	rows, err := s.FindMatching(ctx, testKey)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryStore_WithKeyRollsBackOnError(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	original, err := s.Insert(ctx, testKey, "1.0.0")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithKey(ctx, testKey, func(ctx context.Context, ops KeyOps) error {
		_, err := ops.ReplaceVersion(ctx, *original, "9.9.9")
		require.NoError(t, err)
		_, err = ops.Insert(ctx, "2.0.0")
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := s.FindMatching(ctx, testKey)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, *original, rows[0])
}

func TestMemoryStore_ReplaceVersionRejectsForeignRow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	other := domain.InstalledGame{ID: 5, PlayerID: 9, GameID: 9, Platform: domain.PlatformLinux}
	err := s.WithKey(ctx, testKey, func(ctx context.Context, ops KeyOps) error {
		_, err := ops.ReplaceVersion(ctx, other, "1.0")
		return err
	})
	require.Error(t, err)
}

func TestMemoryStore_WithKeySerializesInsertIfAbsent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithKey(ctx, testKey, func(ctx context.Context, ops KeyOps) error {
				existing, err := ops.Find(ctx)
				if err != nil || len(existing) > 0 {
					return err
				}
				_, err = ops.Insert(ctx, "1.0.0")
				return err
			})
		}()
	}
	wg.Wait()

	rows, err := s.FindMatching(ctx, testKey)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFirst(t *testing.T) {
	assert.Nil(t, First(nil))

	g := First([]domain.InstalledGame{{ID: 3}, {ID: 4}})
	require.NotNil(t, g)
	assert.Equal(t, int64(3), g.ID)
}
