package authflow

import (
	"context"
)

var statusCtxKey = &contextKey{"status"}
var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithStatusContext sets the resolver Status in the given context
func WithStatusContext(ctx context.Context, status Status) context.Context {
	ctx = context.WithValue(ctx, statusCtxKey, status)
	if status.User != nil {
		ctx = WithUserContext(ctx, status.User)
	}
	return ctx
}

// StatusFromContext finds the resolver Status in the context.
func StatusFromContext(ctx context.Context) (Status, bool) {
	raw, ok := ctx.Value(statusCtxKey).(Status)
	return raw, ok
}

// WithUserContext sets the User in the given context
func WithUserContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext finds the user from the context.
func UserFromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// StateFromContext returns the resolved state stored in ctx, StateLoading
// if there is none.
func StateFromContext(ctx context.Context) ApplicationState {
	status, ok := StatusFromContext(ctx)
	if !ok {
		return StateLoading
	}
	return status.State
}
