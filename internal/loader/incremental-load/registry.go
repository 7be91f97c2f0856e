// internal/loader/incremental-load/registry.go
package incrementalload

import (
	"context"
	"sync"
	"time"

	"pricelens/internal/common/metrics"

	"github.com/google/uuid"
)

type handle struct {
	class  string
	cancel context.CancelFunc
}

// Registry tracks the abort handle of every in-flight request of one
// session so they can be cancelled as a group.
type Registry struct {
	mu      sync.Mutex
	handles map[uuid.UUID]handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[uuid.UUID]handle)}
}

// Register derives a cancellable request context. A non-positive timeout
// means no deadline. release must be called when the request completes.
func (r *Registry) Register(parent context.Context, class string, timeout time.Duration) (context.Context, func()) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	id := uuid.New()
	r.mu.Lock()
	r.handles[id] = handle{class: class, cancel: cancel}
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		delete(r.handles, id)
		r.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// AbortAll cancels every tracked request and clears the registry.
func (r *Registry) AbortAll(reason string) int {
	return r.abort(reason, func(string) bool { return true })
}

// AbortClass cancels the tracked requests of one class.
func (r *Registry) AbortClass(class, reason string) int {
	return r.abort(reason, func(c string) bool { return c == class })
}

func (r *Registry) abort(reason string, match func(class string) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, h := range r.handles {
		if !match(h.class) {
			continue
		}
		h.cancel()
		delete(r.handles, id)
		n++
	}
	if n > 0 {
		metrics.RequestsAborted.WithLabelValues(reason).Add(float64(n))
	}
	return n
}

// Len returns the number of in-flight requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
