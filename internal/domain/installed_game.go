package domain

import (
	"fmt"
	"strings"
)

// Platform is the device family a game is installed on.
type Platform string

const (
	PlatformWindows    Platform = "WINDOWS"
	PlatformMacOS      Platform = "MACOS"
	PlatformLinux      Platform = "LINUX"
	PlatformPS5        Platform = "PS5"
	PlatformPS4        Platform = "PS4"
	PlatformXboxSeries Platform = "XBOX_SERIES"
	PlatformXboxOne    Platform = "XBOX_ONE"
	PlatformSwitch2    Platform = "SWITCH2"
	PlatformSwitch     Platform = "SWITCH"
)

var platforms = []Platform{
	PlatformWindows, PlatformMacOS, PlatformLinux,
	PlatformPS5, PlatformPS4,
	PlatformXboxSeries, PlatformXboxOne,
	PlatformSwitch2, PlatformSwitch,
}

// Platforms returns the known platforms in display order.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

// PlatformNames returns the known platforms as a comma separated list.
func PlatformNames() string {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// ParsePlatform matches s exactly against the known platforms.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", ErrInvalidPlatform(s)
}

// InstallKey identifies one installation. At most one InstalledGame row exists per key;
// the store does not enforce it, the callers do.
type InstallKey struct {
	PlayerID int64    `json:"player_id"`
	GameID   int64    `json:"game_id"`
	Platform Platform `json:"platform"`
}

func (k InstallKey) String() string {
	return fmt.Sprintf("player=%d game=%d platform=%s", k.PlayerID, k.GameID, k.Platform)
}

// InstalledGame represents an installed_game row.
type InstalledGame struct {
	ID               int64    `json:"id"`
	PlayerID         int64    `json:"player_id"`
	GameID           int64    `json:"game_id"`
	Platform         Platform `json:"platform"`
	InstalledVersion string   `json:"installed_version"`
}

// Key returns the (player, game, platform) triple of the row.
func (g InstalledGame) Key() InstallKey {
	return InstallKey{PlayerID: g.PlayerID, GameID: g.GameID, Platform: g.Platform}
}

// WithVersion returns a copy of the row carrying version.
func (g InstalledGame) WithVersion(version string) InstalledGame {
	g.InstalledVersion = version
	return g
}

// PublishedVersion is the publisher's current version of a game.
type PublishedVersion struct {
	GameID  int64  `json:"game_id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}
