package authflow

import (
	"context"

	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

type event interface{}

type locationEvent struct {
	loc Location
}

type userResultEvent struct {
	gen   uint64
	token string
	user  *User
	err   error
}

type registrationResultEvent struct {
	gen          uint64
	user         *User
	registration *Registration
	err          error
}

type fetchUserEvent struct{}

type fetchRegistrationEvent struct{}

type resetEvent struct{}

func (r *Resolver) handle(ev event) {
	switch e := ev.(type) {
	case locationEvent:
		r.handleLocation(e.loc)
	case userResultEvent:
		r.applyUser(e)
	case registrationResultEvent:
		r.applyRegistration(e)
	case fetchUserEvent:
		if !r.loaded.Token {
			r.logger.Debug("fetch user requested before token loaded, ignoring")
			return
		}
		r.runUserStage()
	case fetchRegistrationEvent:
		if !r.loaded.User {
			r.logger.Debug("fetch registration requested before user loaded, ignoring")
			return
		}
		r.runRegistrationStage()
	case resetEvent:
		r.reset()
	default:
		r.logger.Warn("unknown resolver event %T", ev)
		return
	}

	r.evaluate()
	r.publish()
}

// handleLocation is the token stage. It runs on every location change.
func (r *Resolver) handleLocation(loc Location) {
	token, source := r.readToken()

	first := !r.loaded.Token
	changed := first || token != r.token

	r.token = token
	r.loaded.Token = true

	if changed {
		r.logger.Info("token loaded from %s", source)
		r.recordActivity(ActivityEvent{
			EventType: ActivityEventTokenLoaded,
			Path:      loc.Path,
			Metadata: map[string]any{
				"source":    source,
				"has_token": token != "",
			},
		})
		r.persistToken()
		r.runUserStage()
	}

	r.syncNavigation()
}

// readToken takes the token from the location parameter, stripping it, or
// falls back to the store.
func (r *Resolver) readToken() (string, string) {
	name := r.cfg.GetTokenParam()
	params := r.nav.CurrentQueryParams()
	if _, ok := params[name]; ok {
		token := params.Get(name)
		r.nav.ReplaceLocationStrippingParam(name)
		return token, TokenSourceLocation
	}

	// a token the store refused to keep survives until it is replaced, the
	// store may still hold an older one
	if r.unpersisted && r.token != "" {
		return r.token, TokenSourceMemory
	}

	token, ok, err := r.store.Get(r.ctx, r.cfg.GetStoreKey())
	if err != nil {
		r.storeFailure("get", err)
	} else if ok && token != "" {
		return token, TokenSourceStore
	}
	return "", TokenSourceNone
}

// persistToken mirrors the token into the store. It never touches the
// loaded flags.
func (r *Resolver) persistToken() {
	key := r.cfg.GetStoreKey()

	if r.token != "" {
		if err := r.store.Set(r.ctx, key, r.token); err != nil {
			r.unpersisted = true
			r.storeFailure("set", err)
			return
		}
		r.unpersisted = false
		r.recordActivity(ActivityEvent{EventType: ActivityEventTokenStored})
		return
	}

	r.unpersisted = false
	if err := r.store.Remove(r.ctx, key); err != nil {
		r.storeFailure("remove", err)
		return
	}
	r.recordActivity(ActivityEvent{EventType: ActivityEventTokenEvicted})
}

func (r *Resolver) storeFailure(op string, err error) {
	richErr := wrapFailure(err, ErrStoreFailure, map[string]any{
		"operation": op,
		"key":       r.cfg.GetStoreKey(),
	})
	r.logger.Error("token store %s failed: %v", op, err)
	r.recordActivity(ActivityEvent{
		EventType: ActivityEventStoreFailed,
		Err:       richErr,
		Metadata:  map[string]any{"operation": op},
	})
}

// runUserStage starts a new user lookup generation. Any lookup in flight,
// and everything downstream of it, is superseded.
func (r *Resolver) runUserStage() {
	r.userGen++
	gen := r.userGen
	if r.userCancel != nil {
		r.userCancel()
		r.userCancel = nil
	}
	r.loaded.User = false
	r.invalidateRegistration()

	if r.token == "" {
		r.applyUser(userResultEvent{gen: gen})
		return
	}

	ctx, cancel := context.WithCancel(r.ctx)
	r.userCancel = cancel
	token := r.token
	users := r.users

	go func() {
		user, err := users.FetchByToken(ctx, token)
		r.enqueue(userResultEvent{gen: gen, token: token, user: user, err: err})
	}()
}

func (r *Resolver) applyUser(e userResultEvent) {
	if e.gen != r.userGen {
		r.logger.Debug("discarding stale user result (generation %d, current %d)", e.gen, r.userGen)
		return
	}
	if r.userCancel != nil {
		r.userCancel()
		r.userCancel = nil
	}

	user := e.user
	if e.err != nil {
		r.fetchFailure("user", e.err, nil)
		user = nil
	}

	r.user = user
	r.loaded.User = true

	r.logger.Info("user loaded")
	r.recordActivity(ActivityEvent{
		EventType: ActivityEventUserLoaded,
		UserID:    userIDString(user),
		Metadata:  map[string]any{"found": user != nil},
	})

	// registrations are keyed by user identity
	if user != nil && r.registrationResolved && r.registrationUserID == user.ID {
		r.logger.Debug("user %s unchanged, keeping registration", user.ID)
		r.loaded.Registration = true
		return
	}
	r.runRegistrationStage()
}

func (r *Resolver) invalidateRegistration() {
	r.registrationGen++
	if r.registrationCancel != nil {
		r.registrationCancel()
		r.registrationCancel = nil
	}
	r.loaded.Registration = false
}

// runRegistrationStage starts a new registration lookup generation for the
// current user.
func (r *Resolver) runRegistrationStage() {
	r.invalidateRegistration()
	r.registrationResolved = false
	gen := r.registrationGen

	if r.user == nil {
		r.applyRegistration(registrationResultEvent{gen: gen})
		return
	}

	ctx, cancel := context.WithCancel(r.ctx)
	r.registrationCancel = cancel
	user := r.user
	registrations := r.registrations

	go func() {
		registration, err := registrations.FetchByUser(ctx, user)
		r.enqueue(registrationResultEvent{gen: gen, user: user, registration: registration, err: err})
	}()
}

func (r *Resolver) applyRegistration(e registrationResultEvent) {
	if e.gen != r.registrationGen {
		r.logger.Debug("discarding stale registration result (generation %d, current %d)", e.gen, r.registrationGen)
		return
	}
	if r.registrationCancel != nil {
		r.registrationCancel()
		r.registrationCancel = nil
	}

	registration := e.registration
	if e.err != nil {
		r.fetchFailure("registration", e.err, map[string]any{"user_id": userIDString(e.user)})
		registration = nil
	}

	r.registration = registration
	r.loaded.Registration = true
	r.registrationResolved = true
	r.registrationUserID = uuid.Nil
	if r.user != nil {
		r.registrationUserID = r.user.ID
	}

	r.logger.Info("registration loaded")
	r.recordActivity(ActivityEvent{
		EventType: ActivityEventRegistrationLoaded,
		UserID:    userIDString(r.user),
		Metadata:  map[string]any{"found": registration != nil},
	})
}

func (r *Resolver) fetchFailure(stage string, err error, metadata map[string]any) {
	meta := map[string]any{"stage": stage}
	for k, v := range metadata {
		meta[k] = v
	}
	richErr := wrapFailure(err, ErrFetchFailure, meta)
	r.logger.Warn("%s lookup failed, treating as absent: %v", stage, err)
	r.recordActivity(ActivityEvent{
		EventType: ActivityEventFetchFailed,
		Err:       richErr,
		Metadata:  meta,
	})
}

// evaluate applies the decision table once every stage has loaded. It only
// ever moves away from loading.
func (r *Resolver) evaluate() {
	if !r.loaded.All() || !r.state.IsLoading() {
		return
	}

	from := r.state
	r.state = DecideState(r.token != "", r.user != nil, r.registration != nil)

	event := ActivityEvent{
		EventType: ActivityEventStateResolved,
		UserID:    userIDString(r.user),
		FromState: from,
		ToState:   r.state,
	}
	if r.token == "" {
		event.Err = ErrMissingCredential
	}
	r.recordActivity(event)

	r.logger.Info("switching to %s", r.state)
	r.logger.Debug("resolved: %s", print.MaybePrettyJSON(map[string]any{
		"state":        r.state,
		"has_token":    r.token != "",
		"user":         r.user,
		"registration": r.registration,
	}))

	r.syncNavigation()
}

// syncNavigation moves the navigator to the decided state's route.
func (r *Resolver) syncNavigation() {
	if r.state.IsLoading() {
		return
	}

	route := r.state.Route(r.cfg.GetRoutePrefix())
	current := r.nav.CurrentPath()
	if samePath(current, route) {
		return
	}

	r.recordActivity(ActivityEvent{
		EventType: ActivityEventNavigationRequested,
		ToState:   r.state,
		Path:      route,
		Metadata:  map[string]any{"from_path": current},
	})

	if err := r.nav.NavigateTo(r.ctx, route); err != nil {
		richErr := wrapFailure(err, ErrNavigationFailure, map[string]any{"path": route})
		r.logger.Error("navigation to %s failed: %v", route, err)
		r.recordActivity(ActivityEvent{
			EventType: ActivityEventNavigationFailed,
			ToState:   r.state,
			Path:      route,
			Err:       richErr,
		})
	}
}

func (r *Resolver) reset() {
	r.logger.Info("resetting resolver")

	r.userGen++
	if r.userCancel != nil {
		r.userCancel()
		r.userCancel = nil
	}
	r.invalidateRegistration()

	r.token = ""
	r.unpersisted = false
	r.user = nil
	r.registration = nil
	r.registrationResolved = false
	r.registrationUserID = uuid.Nil
	r.loaded = LoadedFlags{}
	r.state = StateLoading

	r.handleLocation(Location{Path: r.nav.CurrentPath(), Query: r.nav.CurrentQueryParams()})
}

func (r *Resolver) cancelFetches() {
	if r.userCancel != nil {
		r.userCancel()
		r.userCancel = nil
	}
	if r.registrationCancel != nil {
		r.registrationCancel()
		r.registrationCancel = nil
	}
}

func userIDString(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID.String()
}
