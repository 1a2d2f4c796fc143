package backend

import (
	"context"
	"sync"
)

// State is the observable shape of a Resource.
type State[T any] struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data"`
}

// Resource loads one piece of page data in the background. Results that
// arrive after Cancel, or after a newer Load has started, are dropped.
type Resource[T any] struct {
	load     func(context.Context) (T, error)
	fallback T

	mu        sync.Mutex
	state     State[T]
	gen       uint64
	cancelled bool
	stop      context.CancelFunc
	onUpdate  func(State[T])
}

// NewResource creates an idle resource. fallback is the data reported while
// loading and after a failure.
func NewResource[T any](fallback T, load func(context.Context) (T, error)) *Resource[T] {
	return &Resource[T]{
		load:     load,
		fallback: fallback,
		state:    State[T]{Loading: true, Data: fallback},
	}
}

// OnUpdate registers fn to run after each applied result.
func (r *Resource[T]) OnUpdate(fn func(State[T])) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// Load starts a fetch and returns immediately. A cancelled resource ignores it.
func (r *Resource[T]) Load(ctx context.Context) {
	r.mu.Lock()
	if r.cancelled {
		r.mu.Unlock()
		return
	}
	if r.stop != nil {
		r.stop()
	}
	ctx, stop := context.WithCancel(ctx)
	r.stop = stop
	r.gen++
	gen := r.gen
	r.state.Loading = true
	r.mu.Unlock()

	go func() {
		defer stop()
		data, err := r.load(ctx)
		next := State[T]{Data: data}
		if err != nil {
			next = State[T]{Error: err.Error(), Data: r.fallback}
		}

		r.mu.Lock()
		if r.cancelled || gen != r.gen {
			r.mu.Unlock()
			return
		}
		r.state = next
		fn := r.onUpdate
		r.mu.Unlock()
		if fn != nil {
			fn(next)
		}
	}()
}

// Cancel drops any in-flight result and all future loads.
func (r *Resource[T]) Cancel() {
	r.mu.Lock()
	r.cancelled = true
	if r.stop != nil {
		r.stop()
	}
	r.mu.Unlock()
}

// State returns the current state.
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
