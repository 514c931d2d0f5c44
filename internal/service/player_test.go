package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pops/player-service/internal/catalog"
	"github.com/pops/player-service/internal/domain"
	"github.com/pops/player-service/internal/eventbus"
	"github.com/pops/player-service/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *PlayerService
	store   *store.MemoryStore
	catalog *catalog.StaticLookup
	bus     *eventbus.Recorder
}

func newFixture() *fixture {
	f := &fixture{
		store:   store.NewMemoryStore(),
		catalog: catalog.NewStaticLookup(),
		bus:     eventbus.NewRecorder(),
	}
	f.svc = NewPlayerService(f.store, f.catalog, f.bus, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *fixture) rows(t *testing.T, playerID, gameID int64, platform domain.Platform) []domain.InstalledGame {
	t.Helper()
	rows, err := f.store.FindMatching(context.Background(), domain.InstallKey{PlayerID: playerID, GameID: gameID, Platform: platform})
	require.NoError(t, err)
	return rows
}

func TestInstall(t *testing.T) {
	ctx := context.Background()

	t.Run("records published version and publishes", func(t *testing.T) {
		f := newFixture()
		f.catalog.Publish(100, "1.0.0")

		g, err := f.svc.Install(ctx, 1, 100, "WINDOWS")
		require.NoError(t, err)
		assert.Equal(t, "1.0.0", g.InstalledVersion)
		assert.Equal(t, domain.InstallGame{PlayerID: 1, GameID: 100, Platform: domain.PlatformWindows}, f.bus.Last())
	})

	t.Run("second install is a conflict and leaves one row", func(t *testing.T) {
		f := newFixture()
		f.catalog.Publish(100, "1.0.0")

		_, err := f.svc.Install(ctx, 1, 100, "WINDOWS")
		require.NoError(t, err)
		_, err = f.svc.Install(ctx, 1, 100, "WINDOWS")
		assert.True(t, domain.IsCode(err, domain.CodeConflict))
		assert.Len(t, f.rows(t, 1, 100, domain.PlatformWindows), 1)
		assert.Len(t, f.bus.Events(), 1)
	})

	t.Run("same game on another platform is a separate key", func(t *testing.T) {
		f := newFixture()
		f.catalog.Publish(100, "1.0.0")

		_, err := f.svc.Install(ctx, 1, 100, "WINDOWS")
		require.NoError(t, err)
		_, err = f.svc.Install(ctx, 1, 100, "LINUX")
		require.NoError(t, err)
	})

	t.Run("game missing from catalog", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Install(ctx, 1, 100, "WINDOWS")
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
		assert.Empty(t, f.rows(t, 1, 100, domain.PlatformWindows))
		assert.Empty(t, f.bus.Events())
	})

	t.Run("invalid platform has no side effect", func(t *testing.T) {
		f := newFixture()
		f.catalog.Publish(100, "1.0.0")
		_, err := f.svc.Install(ctx, 1, 100, "windows")
		assert.True(t, domain.IsValidation(err))
		all, _ := f.store.FindAll(ctx)
		assert.Empty(t, all)
		assert.Empty(t, f.bus.Events())
	})

	t.Run("publish failure keeps the row", func(t *testing.T) {
		f := newFixture()
		f.catalog.Publish(100, "1.0.0")
		f.bus.FailWith(errors.New("broker down"))

		_, err := f.svc.Install(ctx, 1, 100, "WINDOWS")
		require.NoError(t, err)
		assert.Len(t, f.rows(t, 1, 100, domain.PlatformWindows), 1)
	})
}

func TestInstall_ConcurrentCallersLeaveOneRow(t *testing.T) {
	f := newFixture()
	f.catalog.Publish(100, "1.0.0")
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Install(ctx, 1, 100, "PS5"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.rows(t, 1, 100, domain.PlatformPS5), 1)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("not installed", func(t *testing.T) {
		f := newFixture()
		f.catalog.Publish(100, "1.0.0")
		_, err := f.svc.Update(ctx, 1, 100, "WINDOWS")
		assert.True(t, domain.IsCode(err, domain.CodeNotFound))
		assert.Empty(t, f.bus.Events())
	})

	t.Run("monotonic", func(t *testing.T) {
		tests := []struct {
			current string
			next    string
			ok      bool
		}{
			{"1.0.0", "1.0.1", true},
			{"1.0.0", "2.0", true},
			{"1.0.0", "1.0.0", false},
			{"1.2", "1.2.0", false},
			{"2.0", "1.9.9", false},
		}
		for _, tt := range tests {
			t.Run(tt.current+"->"+tt.next, func(t *testing.T) {
				f := newFixture()
				_, err := f.svc.AdminInsert(ctx, 1, 100, "WINDOWS", tt.current)
				require.NoError(t, err)
				f.catalog.Publish(100, tt.next)

				g, err := f.svc.Update(ctx, 1, 100, "WINDOWS")
				rows := f.rows(t, 1, 100, domain.PlatformWindows)
				require.Len(t, rows, 1)
				if tt.ok {
					require.NoError(t, err)
					assert.Equal(t, tt.next, g.InstalledVersion)
					assert.Equal(t, tt.next, rows[0].InstalledVersion)
					assert.Equal(t, domain.UpdateGame{PlayerID: 1, GameID: 100, Platform: domain.PlatformWindows, InstalledVersion: tt.next}, f.bus.Last())
				} else {
					assert.True(t, domain.IsCode(err, domain.CodeConflict))
					assert.Equal(t, tt.current, rows[0].InstalledVersion)
					assert.Empty(t, f.bus.Events())
				}
			})
		}
	})

	t.Run("keeps row identity", func(t *testing.T) {
		f := newFixture()
		f.catalog.Publish(100, "1.0.0")
		installed, err := f.svc.Install(ctx, 1, 100, "SWITCH")
		require.NoError(t, err)

		f.catalog.Publish(100, "1.0.1")
		updated, err := f.svc.Update(ctx, 1, 100, "SWITCH")
		require.NoError(t, err)
		assert.Equal(t, installed.ID, updated.ID)
	})
}

func TestUninstall(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.catalog.Publish(100, "1.0.0")

	_, err := f.svc.Install(ctx, 1, 100, "MACOS")
	require.NoError(t, err)

	comment := "no space left"
	removed, err := f.svc.Uninstall(ctx, 1, 100, "MACOS", &comment)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Empty(t, f.rows(t, 1, 100, domain.PlatformMacOS))
	assert.Equal(t, domain.UninstallGame{PlayerID: 1, GameID: 100, Platform: domain.PlatformMacOS, Comment: &comment}, f.bus.Last())

	removed, err = f.svc.Uninstall(ctx, 1, 100, "MACOS", nil)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = f.svc.Uninstall(ctx, 1, 100, "AMIGA", nil)
	assert.True(t, domain.IsCode(err, domain.CodeInvalidPlatform))
}

func TestPlaytime(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.WithClock(func() time.Time { return now })

	var timer domain.PlaytimeTimer
	_, _, err := f.svc.StopPlaytime(ctx, timer)
	assert.True(t, domain.IsCode(err, domain.CodeNotFound))

	timer, err = f.svc.StartPlaytime(timer, 7, 42)
	require.NoError(t, err)
	assert.True(t, timer.Running())

	again, err := f.svc.StartPlaytime(timer, 8, 43)
	assert.True(t, domain.IsCode(err, domain.CodeConflict))
	assert.Equal(t, timer, again)
	assert.Empty(t, f.bus.Events())

	now = now.Add(3*time.Minute + 5*time.Second + 250*time.Millisecond)
	timer, session, err := f.svc.StopPlaytime(ctx, timer)
	require.NoError(t, err)
	assert.False(t, timer.Running())
	assert.Equal(t, int64(185250), session.ElapsedMillis())
	assert.Equal(t, domain.AddPlayTime{PlayerID: 7, GameID: 42, Time: 185250}, f.bus.Last())
}

func TestValidatedCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	assert.True(t, domain.IsValidation(f.svc.Review(ctx, 1, 2, 6, nil)))
	assert.True(t, domain.IsValidation(f.svc.Review(ctx, 1, 2, -1, nil)))
	assert.True(t, domain.IsValidation(f.svc.ReactReview(ctx, 1, 2, 3)))
	assert.True(t, domain.IsValidation(f.svc.ReportCrash(ctx, CrashReport{PlayerID: 1, GameID: 2, Platform: "DREAMCAST"})))
	assert.True(t, domain.IsValidation(f.svc.Register(ctx, Registration{DistributorID: 1})))
	assert.True(t, domain.IsValidation(f.svc.AskGamesPage(ctx, 1, -1)))
	assert.Empty(t, f.bus.Events())

	require.NoError(t, f.svc.Review(ctx, 1, 2, 5, nil))
	require.NoError(t, f.svc.ReactReview(ctx, 1, 9, 2))
	assert.Equal(t, domain.ReactReview{PlayerID: 1, ReviewID: 9, ReactType: domain.ReactNegative}, f.bus.Last())
}

func TestPassThroughCommands(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)

	require.NoError(t, f.svc.Register(ctx, Registration{DistributorID: 3, Pseudo: "neo", FirstName: "T", LastName: "A", BirthDate: birth}))
	require.NoError(t, f.svc.Purchase(ctx, 1, 2))
	require.NoError(t, f.svc.ReportCrash(ctx, CrashReport{PlayerID: 1, GameID: 2, Platform: "PS4", InstalledVersion: "1.0", ErrorCode: 11, Message: "segfault"}))
	require.NoError(t, f.svc.AddWishedGame(ctx, 1, 2))
	require.NoError(t, f.svc.RemoveWishedGame(ctx, 1, 2))
	require.NoError(t, f.svc.AskPlayerPage(ctx, 1))
	require.NoError(t, f.svc.AskGamesPage(ctx, 1, 0))
	require.NoError(t, f.svc.AskGameReviews(ctx, 1, 2))

	var topics []string
	for _, p := range f.bus.Events() {
		topics = append(topics, p.Topic)
	}
	assert.Equal(t, []string{
		domain.TopicRegisterPlayer,
		domain.TopicPurchaseGame,
		domain.TopicReportCrash,
		domain.TopicAddWishedGame,
		domain.TopicRemoveWishedGame,
		domain.TopicAskPlayerPage,
		domain.TopicAskGamesPage,
		domain.TopicAskGameReviews,
	}, topics)

	all, _ := f.store.FindAll(ctx)
	assert.Empty(t, all)
}

func TestInstallUpdateScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.catalog.Publish(100, "1.0.0")
	_, err := f.svc.Install(ctx, 1, 100, "WINDOWS")
	require.NoError(t, err)
	rows := f.rows(t, 1, 100, domain.PlatformWindows)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.InstalledGame{ID: rows[0].ID, PlayerID: 1, GameID: 100, Platform: domain.PlatformWindows, InstalledVersion: "1.0.0"}, rows[0])

	_, err = f.svc.Update(ctx, 1, 100, "WINDOWS")
	assert.True(t, domain.IsCode(err, domain.CodeConflict))
	assert.Equal(t, "1.0.0", f.rows(t, 1, 100, domain.PlatformWindows)[0].InstalledVersion)

	f.catalog.Publish(100, "1.1.0")
	_, err = f.svc.Update(ctx, 1, 100, "WINDOWS")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", f.rows(t, 1, 100, domain.PlatformWindows)[0].InstalledVersion)
}
