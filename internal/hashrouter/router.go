package hashrouter

import (
	"context"
	"sync"

	"github.com/starford/headstone/internal/route"
)

// Router holds the normalized current path and bridges it to a Location.
type Router struct {
	loc *Location

	mu   sync.RWMutex
	path string

	changes chan string
}

// NewRouter creates a router whose held path starts from the location's fragment.
func NewRouter(loc *Location) *Router {
	return &Router{
		loc:     loc,
		path:    route.Normalize(loc.Fragment()),
		changes: make(chan string, 16),
	}
}

// Path returns the held path. It may lag the fragment by one loop turn after Navigate.
func (r *Router) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Location returns the fragment source the router follows.
func (r *Router) Location() *Location {
	return r.loc
}

// Changes delivers the held path after every update made by Run.
func (r *Router) Changes() <-chan string {
	return r.changes
}

// Navigate writes the normalized target to the fragment when it differs from the
// current one. The held path is updated later, when the change signal arrives.
// An empty target is ignored.
func (r *Router) Navigate(target string) {
	normalized := route.Normalize(target)
	if normalized == "" {
		return
	}
	if route.Normalize(r.loc.Fragment()) == normalized {
		return
	}
	r.loc.SetFragment(normalized)
}

// Redirect replaces the path from with target, unless the fragment has moved
// on by the time the write is applied.
func (r *Router) Redirect(from, target string) {
	normalized := route.Normalize(target)
	if normalized == "" || normalized == from {
		return
	}
	r.loc.Replace(from, normalized)
}

// Run listens for fragment changes until ctx is cancelled or the location closes.
func (r *Router) Run(ctx context.Context) error {
	ch := r.loc.Subscribe()
	defer r.loc.Unsubscribe(ch)

	// Pick up anything that changed between NewRouter and Subscribe.
	r.sync()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			r.sync()
		}
	}
}

// sync re-reads the fragment so dropped or coalesced signals still converge.
func (r *Router) sync() {
	next := route.Normalize(r.loc.Fragment())

	r.mu.Lock()
	changed := next != r.path
	r.path = next
	r.mu.Unlock()

	if !changed {
		return
	}
	select {
	case r.changes <- next:
	default:
		// Consumer is behind; it reads Path when it catches up.
	}
}
