package domain

import (
	"fmt"
	"time"
)

// PlaytimeTimer is the Idle/Running play session state. The zero value is Idle.
// It is a plain value: callers keep the returned timer and pass it back on the next transition.
type PlaytimeTimer struct {
	running   bool
	playerID  int64
	gameID    int64
	startedAt time.Time
}

// PlaySession is the outcome of stopping a running timer.
type PlaySession struct {
	PlayerID int64
	GameID   int64
	Elapsed  time.Duration
}

// ElapsedMillis is the exact millisecond delta sent in AddPlayTime.
func (s PlaySession) ElapsedMillis() int64 {
	return s.Elapsed.Milliseconds()
}

// Display formats the elapsed time as minutes and seconds, floor-divided.
func (s PlaySession) Display() string {
	ms := s.ElapsedMillis()
	return fmt.Sprintf("%dm %ds (%dms)", ms/1000/60, ms/1000%60, ms)
}

func (t PlaytimeTimer) Running() bool { return t.running }

func (t PlaytimeTimer) PlayerID() int64 { return t.playerID }

func (t PlaytimeTimer) GameID() int64 { return t.gameID }

func (t PlaytimeTimer) StartedAt() time.Time { return t.startedAt }

// Start moves Idle to Running. Starting a running timer is rejected and t is returned unchanged.
func (t PlaytimeTimer) Start(playerID, gameID int64, now time.Time) (PlaytimeTimer, error) {
	if t.running {
		return t, ErrConflict(fmt.Sprintf("timer already running for player %d game %d, stop it first", t.playerID, t.gameID))
	}
	return PlaytimeTimer{running: true, playerID: playerID, gameID: gameID, startedAt: now}, nil
}

// Stop moves Running to Idle and reports the elapsed session.
// Stopping an idle timer is rejected and t is returned unchanged.
func (t PlaytimeTimer) Stop(now time.Time) (PlaytimeTimer, PlaySession, error) {
	if !t.running {
		return t, PlaySession{}, ErrNotFound("playtime timer", "running")
	}
	session := PlaySession{PlayerID: t.playerID, GameID: t.gameID, Elapsed: now.Sub(t.startedAt)}
	return PlaytimeTimer{}, session, nil
}
