package handler

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// ListenerControl toggles listeners by name; *eventbus.Registry implements it.
type ListenerControl interface {
	Status() map[string]bool
	Start(name string) error
	Stop(name string) error
}

// ListenerHandler exposes the listener lifecycle.
type ListenerHandler struct {
	listeners ListenerControl
}

func NewListenerHandler(listeners ListenerControl) *ListenerHandler {
	return &ListenerHandler{listeners: listeners}
}

type listenerStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// List handles GET /listeners.
func (h *ListenerHandler) List(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{"listeners": h.statuses()})
}

// Start handles POST /listeners/{name}/start.
func (h *ListenerHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.listeners.Start)
}

// Stop handles POST /listeners/{name}/stop. It returns once in-flight deliveries are done.
func (h *ListenerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.listeners.Stop)
}

func (h *ListenerHandler) toggle(w http.ResponseWriter, r *http.Request, op func(string) error) {
	name := chi.URLParam(r, "name")
	if err := op(name); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, listenerStatus{Name: name, Running: h.listeners.Status()[name]})
}

func (h *ListenerHandler) statuses() []listenerStatus {
	status := h.listeners.Status()
	out := make([]listenerStatus, 0, len(status))
	for name, running := range status {
		out = append(out, listenerStatus{Name: name, Running: running})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
