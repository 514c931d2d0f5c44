package app

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/pops/player-service/internal/handler"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Installations handler.InstallationReader
	Audit         handler.AuditReader
	Listeners     handler.ListenerControl
	Checks        map[string]handler.Check
	Logger        *slog.Logger
}

// NewRouter assembles the ops chi.Router.
func NewRouter(deps RouterDeps) chi.Router {
	logger := deps.Logger

	installed := handler.NewInstalledHandler(deps.Installations)
	consumeLog := handler.NewConsumeLogHandler(deps.Audit)
	listeners := handler.NewListenerHandler(deps.Listeners)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(deps.Checks))

	r.Route("/installed", func(r chi.Router) {
		r.Get("/", installed.List)
		r.Get("/{playerID}", installed.ListByPlayer)
	})

	r.Get("/consume-log", consumeLog.List)

	r.Route("/listeners", func(r chi.Router) {
		r.Get("/", listeners.List)
		r.Post("/{name}/start", listeners.Start)
		r.Post("/{name}/stop", listeners.Stop)
	})

	return r
}
