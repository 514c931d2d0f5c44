package repository

import (
	"testing"

	"github.com/pops/player-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAdvisoryLockID(t *testing.T) {
	a := domain.InstallKey{PlayerID: 1, GameID: 100, Platform: domain.PlatformWindows}
	b := domain.InstallKey{PlayerID: 1, GameID: 100, Platform: domain.PlatformLinux}
	c := domain.InstallKey{PlayerID: 10, GameID: 0, Platform: domain.PlatformWindows}

	assert.Equal(t, AdvisoryLockID(a), AdvisoryLockID(a))
	assert.NotEqual(t, AdvisoryLockID(a), AdvisoryLockID(b))
	assert.NotEqual(t, AdvisoryLockID(a), AdvisoryLockID(c))
}
