package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pops/player-service/internal/domain"
)

// InstallationReader lists recorded installations.
type InstallationReader interface {
	ListInstalled(ctx context.Context) ([]domain.InstalledGame, error)
	ListByPlayer(ctx context.Context, playerID int64) ([]domain.InstalledGame, error)
}

// InstalledHandler serves the installation listings.
type InstalledHandler struct {
	games InstallationReader
}

// NewInstalledHandler creates an InstalledHandler.
func NewInstalledHandler(games InstallationReader) *InstalledHandler {
	return &InstalledHandler{games: games}
}

// List handles GET /installed.
func (h *InstalledHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.ListInstalled(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"installed": nonNil(games)})
}

// ListByPlayer handles GET /installed/{playerID}.
func (h *InstalledHandler) ListByPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := domain.ParseID("playerID", chi.URLParam(r, "playerID"))
	if err != nil {
		RespondError(w, err)
		return
	}
	games, err := h.games.ListByPlayer(r.Context(), playerID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"player_id": playerID,
		"installed": nonNil(games),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
