package cart

import (
	"context"
	"sync"
	"time"

	"cartflow/pkg/logger"
)

const (
	// DefaultDebounce is the coalescing window for persistence writes.
	DefaultDebounce = 300 * time.Millisecond
	// DefaultSaveTimeout bounds a single background save.
	DefaultSaveTimeout = 5 * time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithDebounce sets the persistence coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// WithClock sets the clock used to stamp errors.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the store logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithSaveTimeout bounds each background save.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Store) { s.saveTimeout = d }
}

// Store is the single source of truth for one cart. Mutations are not
// serialised against each other: each reads the items current when it runs
// and the last to settle wins.
type Store struct {
	storage     *Storage
	log         *logger.Logger
	now         func() time.Time
	debounce    time.Duration
	saveTimeout time.Duration
	saver       *debouncer

	ready chan struct{}

	mu       sync.Mutex
	state    State
	inflight int
	retry    *Command
	subs     map[int]func(State)
	nextSub  int
	version  uint64

	// pubMu orders delivery; delivered is the newest version handed out.
	pubMu     sync.Mutex
	delivered uint64
}

// New returns a Store backed by storage and starts hydrating it from the
// persisted cart. Mutations wait for hydration to finish.
func New(storage *Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NewStorage(nil, "")
	}
	s := &Store{
		storage:     storage,
		log:         logger.Nop(),
		now:         time.Now,
		debounce:    DefaultDebounce,
		saveTimeout: DefaultSaveTimeout,
		ready:       make(chan struct{}),
		state:       State{Items: []Item{}},
		subs:        make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.saver = newDebouncer(s.debounce, s.persist)

	s.begin("Loading cart")
	go s.hydrate()
	return s
}

func (s *Store) hydrate() {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	items, cerr := s.storage.Load(ctx)
	if cerr != nil {
		s.log.Warn(ctx, "cart hydration failed", "key", s.storage.Key(), "error", cerr.Message)
	}

	s.mu.Lock()
	s.state.Items = items
	if cerr != nil {
		s.state.Error = s.stamp(cerr)
	}
	s.end()
	snap, ver := s.snapshot()
	s.mu.Unlock()

	close(s.ready)
	s.publish(snap, ver)
}

// Hydrate blocks until the initial load has finished. It reports false if
// ctx ends first.
func (s *Store) Hydrate(ctx context.Context) bool {
	select {
	case <-s.ready:
		return true
	default:
	}
	select {
	case <-s.ready:
		return true
	case <-ctx.Done():
		return false
	}
}

// AddToCart adds one unit of item.
func (s *Store) AddToCart(ctx context.Context, item NewItem) bool {
	return s.Dispatch(ctx, Command{Op: OpAddToCart, Item: item})
}

// UpdateQuantity sets the quantity of id; quantity <= 0 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) bool {
	return s.Dispatch(ctx, Command{Op: OpUpdateQuantity, ID: id, Quantity: quantity})
}

// RemoveItem removes id from the cart.
func (s *Store) RemoveItem(ctx context.Context, id string) bool {
	return s.Dispatch(ctx, Command{Op: OpRemoveItem, ID: id})
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) bool {
	return s.Dispatch(ctx, Command{Op: OpClearCart})
}

// Dispatch executes cmd against the current items. On failure the items are
// left unchanged and cmd is retained for RetryLastAction.
func (s *Store) Dispatch(ctx context.Context, cmd Command) bool {
	if !s.Hydrate(ctx) {
		s.mu.Lock()
		s.state.Error = s.stamp(newError(ErrorUnknown, "cart is not ready: "+ctx.Err().Error()))
		s.retry = &cmd
		snap, ver := s.snapshot()
		s.mu.Unlock()
		s.publish(snap, ver)
		return false
	}

	s.begin(cmd.Description())
	res := Apply(s.Items(), cmd)

	s.mu.Lock()
	if res.Success {
		s.state.Items = res.Data
		s.state.Error = nil
		s.retry = nil
		s.saver.schedule(res.Data)
	} else {
		s.state.Error = s.stamp(res.Err)
		s.retry = &cmd
	}
	s.end()
	snap, ver := s.snapshot()
	s.mu.Unlock()

	s.publish(snap, ver)
	return res.Success
}

// RetryLastAction dispatches the last failed command again. It reports
// false when there is nothing to retry.
func (s *Store) RetryLastAction(ctx context.Context) bool {
	cmd, ok := s.LastFailed()
	if !ok {
		return false
	}
	return s.Dispatch(ctx, cmd)
}

// LastFailed returns the retained command, if any.
func (s *Store) LastFailed() (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retry == nil {
		return Command{}, false
	}
	return *s.retry, true
}

// ClearError clears the error and discards the retained command.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.Error = nil
	s.retry = nil
	snap, ver := s.snapshot()
	s.mu.Unlock()
	s.publish(snap, ver)
}

// SetCartOpen sets the UI visibility flag.
func (s *Store) SetCartOpen(open bool) {
	s.mu.Lock()
	s.state.IsCartOpen = open
	snap, ver := s.snapshot()
	s.mu.Unlock()
	s.publish(snap, ver)
}

// IsCartOpen reports the UI visibility flag.
func (s *Store) IsCartOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsCartOpen
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Items returns a copy of the current items.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.state.Items)
}

// Total is the formatted cart total.
func (s *Store) Total() string {
	return Total(s.Items())
}

// ItemCount is the number of units in the cart.
func (s *Store) ItemCount() int {
	return ItemCount(s.Items())
}

// Subscribe registers fn to receive state changes in order. A snapshot
// older than one already delivered is skipped, so the last state fn sees
// is the store's current state. fn runs synchronously and must not call
// back into the store's mutating methods. The returned function removes it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Flush writes any pending snapshot immediately.
func (s *Store) Flush(ctx context.Context) {
	if !s.Hydrate(ctx) {
		return
	}
	s.saver.flush()
}

// Close flushes pending writes. Later mutations still update memory but
// are no longer persisted.
func (s *Store) Close(ctx context.Context) error {
	if !s.Hydrate(ctx) {
		return ctx.Err()
	}
	s.saver.close()
	return nil
}

func (s *Store) persist(items []Item) {
	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	cerr := s.storage.Save(ctx, items)
	if cerr == nil {
		return
	}
	s.log.Warn(ctx, "cart save failed", "key", s.storage.Key(), "items", len(items), "error", cerr.Message)

	s.mu.Lock()
	s.state.Error = s.stamp(cerr)
	snap, ver := s.snapshot()
	s.mu.Unlock()
	s.publish(snap, ver)
}

func (s *Store) begin(action string) {
	s.mu.Lock()
	s.inflight++
	s.state.IsLoading = true
	s.state.LastAction = action
	snap, ver := s.snapshot()
	s.mu.Unlock()
	s.publish(snap, ver)
}

// end must be called with s.mu held.
func (s *Store) end() {
	s.inflight--
	s.state.IsLoading = s.inflight > 0
	s.state.LastAction = ""
}

func (s *Store) stamp(e *Error) *Error {
	out := *e
	out.Timestamp = s.now().UnixMilli()
	return &out
}

// snapshot must be called with s.mu held.
func (s *Store) snapshot() (State, uint64) {
	s.version++
	return s.state.clone(), s.version
}

func (s *Store) publish(st State, ver uint64) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if ver <= s.delivered {
		return
	}
	s.delivered = ver

	s.mu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
