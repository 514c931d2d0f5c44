package eventbus

import (
	"log/slog"
	"sync"

	"github.com/pops/player-service/internal/domain"
)

// Registry addresses listeners by name.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[string]*Listener
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger, listeners: make(map[string]*Listener)}
}

// Register adds a listener. Names must be unique.
func (r *Registry) Register(l *Listener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listeners[l.Name()]; ok {
		return domain.ErrConflict("listener " + l.Name() + " already registered")
	}
	r.listeners[l.Name()] = l
	r.order = append(r.order, l.Name())
	return nil
}

// Names returns listener names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) get(name string) (*Listener, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listeners[name]
	if !ok {
		return nil, domain.ErrNotFound("listener", name)
	}
	return l, nil
}

// Start starts a listener by name. Starting a running listener only logs a warning.
func (r *Registry) Start(name string) error {
	l, err := r.get(name)
	if err != nil {
		return err
	}
	if !l.Start() {
		r.logger.Warn("listener already running", "listener", name)
	}
	return nil
}

// Stop stops a listener by name. Stopping a stopped listener only logs a warning.
func (r *Registry) Stop(name string) error {
	l, err := r.get(name)
	if err != nil {
		return err
	}
	if !l.Stop() {
		r.logger.Warn("listener not running", "listener", name)
	}
	return nil
}

// StartAll starts every stopped listener.
func (r *Registry) StartAll() {
	for _, name := range r.Names() {
		_ = r.Start(name)
	}
}

// StopAll stops every running listener concurrently and waits for them.
func (r *Registry) StopAll() {
	var wg sync.WaitGroup
	for _, name := range r.Names() {
		l, err := r.get(name)
		if err != nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Stop()
		}()
	}
	wg.Wait()
}

// Status reports whether each listener is running.
func (r *Registry) Status() map[string]bool {
	r.mu.RLock()
	snapshot := make(map[string]*Listener, len(r.listeners))
	for name, l := range r.listeners {
		snapshot[name] = l
	}
	r.mu.RUnlock()

	out := make(map[string]bool, len(snapshot))
	for name, l := range snapshot {
		out[name] = l.Running()
	}
	return out
}
