package notify

import (
	"sync"

	"go.uber.org/zap"

	"cartstore/internal/metrics"
	"cartstore/internal/model"
)

// Listener receives one fresh cart summary after every successful mutation.
type Listener func(model.Summary)

// Registry is an ordered set of named listeners. Subscribing an existing
// name is a no-op, which makes the set semantics of registration explicit.
// Fan-out runs synchronously in registration order.
type Registry struct {
	mu     sync.Mutex
	order  []string
	byName map[string]Listener
	log    *zap.Logger
	mreg   *metrics.Registry
}

func NewRegistry(log *zap.Logger, mreg *metrics.Registry) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{byName: make(map[string]Listener), log: log, mreg: mreg}
}

// Subscribe registers fn under name. Returns false when the name is already
// taken or fn is nil.
func (r *Registry) Subscribe(name string, fn Listener) bool {
	if name == "" || fn == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return false
	}
	r.byName[name] = fn
	r.order = append(r.order, name)
	return true
}

// Unsubscribe removes the listener registered under name.
func (r *Registry) Unsubscribe(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return false
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len reports the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Notify invokes every listener with the summary, in registration order. A
// panicking listener is recovered, logged, and counted so it can neither
// starve the remaining listeners nor fail the mutating call.
func (r *Registry) Notify(s model.Summary) {
	r.mu.Lock()
	names := append([]string(nil), r.order...)
	fns := make([]Listener, len(names))
	for i, n := range names {
		fns[i] = r.byName[n]
	}
	r.mu.Unlock()

	for i, fn := range fns {
		r.invoke(names[i], fn, s)
	}
}

func (r *Registry) invoke(name string, fn Listener, s model.Summary) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("cart listener panicked", zap.String("listener", name), zap.Any("panic", p))
			if r.mreg != nil {
				r.mreg.ListenerErrorsTotal.Inc()
			}
		}
	}()
	fn(s)
}
