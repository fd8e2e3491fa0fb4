package authflow

import (
	"context"
	"fmt"
	"net/url"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Navigator exposes the host's navigation position and lets the resolver
// move it. Subscribe must deliver every location change, including the ones
// caused by ReplaceLocationStrippingParam and NavigateTo.
type Navigator interface {
	CurrentPath() string
	CurrentQueryParams() url.Values
	ReplaceLocationStrippingParam(name string)
	NavigateTo(ctx context.Context, path string) error
	Subscribe(fn func(Location)) (unsubscribe func())
}

// Store is a client scoped key value store holding the credential token.
// Get reports ok=false when the key is not present.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// UserFetcher resolves the user that owns a token. A nil user with a nil
// error means the token does not identify anyone.
type UserFetcher interface {
	FetchByToken(ctx context.Context, token string) (*User, error)
}

// RegistrationFetcher resolves the event registration of a user. A nil
// registration with a nil error means the user has not registered yet.
type RegistrationFetcher interface {
	FetchByUser(ctx context.Context, user *User) (*Registration, error)
}

// Config holds resolver options
type Config interface {
	GetTokenParam() string
	GetStoreKey() string
	GetRoutePrefix() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHFLOW "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
