package cart

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Registry owns one Store per cart session.
type Registry struct {
	factory func(sessionID string) *Storage
	opts    []Option
	now     func() time.Time

	mu     sync.Mutex
	stores map[string]*entry
}

type entry struct {
	store *Store
	seen  time.Time
}

// NewRegistry returns a Registry that builds each session's storage with
// factory and its Store with opts.
func NewRegistry(factory func(sessionID string) *Storage, opts ...Option) *Registry {
	return &Registry{factory: factory, opts: opts, now: time.Now, stores: make(map[string]*entry)}
}

// Get returns the session's store, creating and hydrating it on first use.
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	r.mu.Lock()
	e, ok := r.stores[sessionID]
	if !ok {
		e = &entry{store: New(r.factory(sessionID), r.opts...)}
		r.stores[sessionID] = e
	}
	e.seen = r.now()
	r.mu.Unlock()

	e.store.Hydrate(ctx)
	return e.store
}

// Evict flushes and forgets the session's store.
func (r *Registry) Evict(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	e, ok := r.stores[sessionID]
	delete(r.stores, sessionID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return e.store.Close(ctx)
}

// Sweep flushes and forgets every store not fetched within idle. It returns
// the number of stores removed.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Store
	for id, e := range r.stores {
		if e.seen.Before(cutoff) {
			stale = append(stale, e.store)
			delete(r.stores, id)
		}
	}
	r.mu.Unlock()

	return len(stale), closeAll(ctx, stale)
}

// Run sweeps idle stores every interval until ctx ends. Save failures are
// logged by the stores themselves.
func (r *Registry) Run(ctx context.Context, every, idle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = r.Sweep(ctx, idle)
		}
	}
}

// Len reports the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close flushes every store.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.stores))
	for _, e := range r.stores {
		stores = append(stores, e.store)
	}
	r.stores = make(map[string]*entry)
	r.mu.Unlock()

	return closeAll(ctx, stores)
}

func closeAll(ctx context.Context, stores []*Store) error {
	var errs []error
	for _, s := range stores {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
