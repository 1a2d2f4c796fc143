package hashrouter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/headstone/internal/models"
	"github.com/starford/headstone/internal/route"
)

// RoleStore persists the last used role.
type RoleStore interface {
	PersistedRole() models.Role
	PersistRole(role models.Role)
}

// Listener is called after the canonical route changes.
type Listener func(route.State)

// Navigator runs the redirect state machine:
// observe(path) → resolve → navigate(canonical) when canonical differs from path.
type Navigator struct {
	router *Router
	roles  RoleStore
	logger *slog.Logger

	mu        sync.RWMutex
	state     route.State
	observed  bool
	listeners []Listener
}

// NewNavigator creates a navigator. It does nothing until Observe or Run is called.
func NewNavigator(router *Router, roles RoleStore, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{router: router, roles: roles, logger: logger}
}

// OnChange registers l to be called after each canonical route change.
func (n *Navigator) OnChange(l Listener) {
	n.mu.Lock()
	n.listeners = append(n.listeners, l)
	n.mu.Unlock()
}

// State returns the last resolved route.
func (n *Navigator) State() route.State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Router returns the underlying router.
func (n *Navigator) Router() *Router {
	return n.router
}

// Navigate asks the router to move to path. The resulting state is observed later.
func (n *Navigator) Navigate(path string) {
	n.router.Navigate(path)
}

// Observe resolves path against the persisted role, schedules a redirect when the
// canonical path differs, persists the resolved role and returns the new state.
// Redirects are only issued for an actual mismatch, so a canonical path is a fixed point.
// A redirect is dropped if the fragment changed while path was being resolved.
func (n *Navigator) Observe(path string) route.State {
	state := route.Resolve(path, n.roles.PersistedRole())

	if state.CanonicalPath != path {
		n.logger.Debug("navigator: redirect",
			slog.String("from", path),
			slog.String("to", state.CanonicalPath))
		n.router.Redirect(path, state.CanonicalPath)
	}

	n.roles.PersistRole(state.Role)

	n.mu.Lock()
	changed := !n.observed || n.state.CanonicalPath != state.CanonicalPath || n.state.Role != state.Role
	n.state = state
	n.observed = true
	listeners := append([]Listener(nil), n.listeners...)
	n.mu.Unlock()

	if changed {
		for _, l := range listeners {
			l(state)
		}
	}
	return state
}

// Run observes the router's current path and then every change until ctx is done.
func (n *Navigator) Run(ctx context.Context) error {
	n.Observe(n.router.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-n.router.Changes():
			if !ok {
				return nil
			}
			n.Observe(n.router.Path())
		}
	}
}
