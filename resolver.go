package authflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResolverOption customizes resolver construction.
type ResolverOption func(*Resolver)

// WithUserFetcher sets the user lookup. Defaults to AbsentUserFetcher.
func WithUserFetcher(f UserFetcher) ResolverOption {
	return func(r *Resolver) {
		if f != nil {
			r.users = f
		}
	}
}

// WithRegistrationFetcher sets the registration lookup. Defaults to
// AbsentRegistrationFetcher.
func WithRegistrationFetcher(f RegistrationFetcher) ResolverOption {
	return func(r *Resolver) {
		if f != nil {
			r.registrations = f
		}
	}
}

// WithResolverConfig overrides parameter name, store key and route prefix.
func WithResolverConfig(cfg Config) ResolverOption {
	return func(r *Resolver) {
		if cfg != nil {
			r.cfg = cfg
		}
	}
}

// WithResolverLogger overrides the logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResolverActivitySink sets the ActivitySink used to publish resolver events.
func WithResolverActivitySink(sink ActivitySink) ResolverOption {
	return func(r *Resolver) {
		r.activitySink = normalizeActivitySink(sink)
	}
}

// WithResolverClock injects a custom clock (useful for tests).
func WithResolverClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// Resolver decides which page a visitor belongs on. It reads the token
// from the location or the store, resolves the user and the registration,
// and once all three are loaded moves the navigator to /auth, /register or
// /profile. The decision is taken once per resolver; Reset starts over.
//
// All pipeline work happens on a single goroutine fed by a FIFO of events.
// Collaborator callbacks only enqueue, and fetches run on their own
// goroutines tagged with a generation so stale results are dropped.
type Resolver struct {
	nav           Navigator
	store         Store
	users         UserFetcher
	registrations RegistrationFetcher
	cfg           Config
	logger        Logger
	activitySink  ActivitySink
	now           func() time.Time

	qmu   sync.Mutex
	queue []event
	wake  chan struct{}

	mu          sync.RWMutex
	snapshot    snapshot
	changed     chan struct{}
	subscribers map[int]func(Status)
	nextSub     int

	lifeMu      sync.Mutex
	started     bool
	closed      bool
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()

	// owned by the loop goroutine
	token              string
	unpersisted        bool
	user               *User
	registration       *Registration
	loaded             LoadedFlags
	state              ApplicationState
	userGen            uint64
	registrationGen    uint64
	userCancel         context.CancelFunc
	registrationCancel context.CancelFunc

	// identity the current registration was fetched for
	registrationResolved bool
	registrationUserID   uuid.UUID
}

type snapshot struct {
	token        string
	user         *User
	registration *Registration
	loaded       LoadedFlags
	state        ApplicationState
}

// NewResolver returns a resolver in the loading state. Call Start to begin
// resolving.
func NewResolver(nav Navigator, store Store, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		nav:           nav,
		store:         store,
		users:         AbsentUserFetcher{},
		registrations: AbsentRegistrationFetcher{},
		cfg:           DefaultResolverConfig(),
		logger:        defLogger{},
		activitySink:  noopActivitySink{},
		now:           time.Now,
		wake:          make(chan struct{}, 1),
		changed:       make(chan struct{}),
		subscribers:   map[int]func(Status){},
		done:          make(chan struct{}),
		state:         StateLoading,
		snapshot:      snapshot{state: StateLoading},
		ctx:           context.Background(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if r.nav == nil {
		panic("authflow: resolver requires a Navigator")
	}

	if r.store == nil {
		panic("authflow: resolver requires a Store")
	}

	return r
}

// Start subscribes to the navigator and runs the token stage for the
// current location.
func (r *Resolver) Start(ctx context.Context) error {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()

	if r.closed {
		return ErrResolverClosed
	}
	if r.started {
		return ErrResolverStarted
	}

	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.unsubscribe = r.nav.Subscribe(func(loc Location) {
		r.enqueue(locationEvent{loc: loc})
	})
	r.enqueue(locationEvent{loc: Location{Path: r.nav.CurrentPath(), Query: r.nav.CurrentQueryParams()}})

	go r.run()
	return nil
}

// Close stops the resolver and cancels in flight lookups. It is safe to
// call more than once.
func (r *Resolver) Close() error {
	r.lifeMu.Lock()
	if r.closed {
		r.lifeMu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	r.lifeMu.Unlock()

	if !started {
		close(r.done)
		return nil
	}

	r.unsubscribe()
	r.cancel()
	<-r.done
	return nil
}

// Done is closed once the resolver stopped
func (r *Resolver) Done() <-chan struct{} {
	return r.done
}

// FetchUser re-runs the user lookup for the current token. Downstream the
// registration is looked up again.
func (r *Resolver) FetchUser(ctx context.Context) error {
	return r.request(ctx, fetchUserEvent{})
}

// FetchRegistration re-runs the registration lookup for the current user.
func (r *Resolver) FetchRegistration(ctx context.Context) error {
	return r.request(ctx, fetchRegistrationEvent{})
}

// Reset clears the token, user and registration, moves the state back to
// loading and resolves again from the current location.
func (r *Resolver) Reset(ctx context.Context) error {
	return r.request(ctx, resetEvent{})
}

func (r *Resolver) request(ctx context.Context, ev event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if r.closed {
		return ErrResolverClosed
	}
	r.enqueue(ev)
	return nil
}

// Status returns the current view. Loading is true until the state is
// decided and the navigator is on the state's route.
func (r *Resolver) Status() Status {
	r.mu.RLock()
	snap := r.snapshot
	r.mu.RUnlock()
	return r.statusFrom(snap)
}

// State returns the decided state, StateLoading until then
func (r *Resolver) State() ApplicationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.state
}

// Subscribe calls fn with the new status after every change. fn runs on
// the resolver goroutine and must not block.
func (r *Resolver) Subscribe(fn func(Status)) func() {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subscribers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subscribers, id)
			r.mu.Unlock()
		})
	}
}

// WaitFor blocks until cond holds for the status, ctx is done or the
// resolver is closed.
func (r *Resolver) WaitFor(ctx context.Context, cond func(Status) bool) (Status, error) {
	for {
		r.mu.RLock()
		changed := r.changed
		snap := r.snapshot
		r.mu.RUnlock()

		status := r.statusFrom(snap)
		if cond(status) {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-r.done:
			return status, ErrResolverClosed
		case <-changed:
		}
	}
}

// Ready waits until the state is decided and the visitor is on its page
func (r *Resolver) Ready(ctx context.Context) (Status, error) {
	return r.WaitFor(ctx, Status.Ready)
}

func (r *Resolver) statusFrom(snap snapshot) Status {
	path := r.nav.CurrentPath()
	loading := snap.state.IsLoading() ||
		!samePath(path, snap.state.Route(r.cfg.GetRoutePrefix()))

	return Status{
		Loading:      loading,
		State:        snap.state,
		Path:         path,
		Token:        snap.token,
		HasToken:     snap.token != "",
		User:         snap.user,
		Registration: snap.registration,
		Loaded:       snap.loaded,
	}
}

func (r *Resolver) enqueue(ev event) {
	r.qmu.Lock()
	r.queue = append(r.queue, ev)
	r.qmu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Resolver) dequeue() (event, bool) {
	r.qmu.Lock()
	defer r.qmu.Unlock()
	if len(r.queue) == 0 {
		return nil, false
	}
	ev := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	return ev, true
}

func (r *Resolver) run() {
	defer close(r.done)
	defer r.cancelFetches()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
		}

		for {
			if r.ctx.Err() != nil {
				return
			}
			ev, ok := r.dequeue()
			if !ok {
				break
			}
			r.handle(ev)
		}
	}
}

func (r *Resolver) publish() {
	r.mu.Lock()
	r.snapshot = snapshot{
		token:        r.token,
		user:         r.user,
		registration: r.registration,
		loaded:       r.loaded,
		state:        r.state,
	}
	close(r.changed)
	r.changed = make(chan struct{})
	snap := r.snapshot
	subs := make([]func(Status), 0, len(r.subscribers))
	for i := 0; i < r.nextSub; i++ {
		if fn, ok := r.subscribers[i]; ok {
			subs = append(subs, fn)
		}
	}
	r.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	status := r.statusFrom(snap)
	for _, fn := range subs {
		fn(status)
	}
}

func (r *Resolver) recordActivity(event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now()
	}

	sink := normalizeActivitySink(r.activitySink)
	if err := sink.Record(r.ctx, event); err != nil {
		r.logger.Warn("resolver activity sink error: %v", err)
	}
}
