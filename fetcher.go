package authflow

import (
	"context"
)

// UserFetcherFunc adapts a function into a UserFetcher.
type UserFetcherFunc func(ctx context.Context, token string) (*User, error)

// FetchByToken satisfies the UserFetcher interface.
func (f UserFetcherFunc) FetchByToken(ctx context.Context, token string) (*User, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, token)
}

// RegistrationFetcherFunc adapts a function into a RegistrationFetcher.
type RegistrationFetcherFunc func(ctx context.Context, user *User) (*Registration, error)

// FetchByUser satisfies the RegistrationFetcher interface.
func (f RegistrationFetcherFunc) FetchByUser(ctx context.Context, user *User) (*Registration, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, user)
}

// AbsentUserFetcher resolves every token to no user. It is the default
// until the host wires a real lookup.
type AbsentUserFetcher struct{}

func (AbsentUserFetcher) FetchByToken(context.Context, string) (*User, error) {
	return nil, nil
}

// AbsentRegistrationFetcher resolves every user to no registration.
type AbsentRegistrationFetcher struct{}

func (AbsentRegistrationFetcher) FetchByUser(context.Context, *User) (*Registration, error) {
	return nil, nil
}

// ValidatingUserFetcher checks tokens locally before asking next. Expired
// or malformed tokens resolve to no user without a network round trip;
// any other validation error is returned.
type ValidatingUserFetcher struct {
	validator TokenValidator
	next      UserFetcher
	logger    Logger
}

// NewValidatingUserFetcher wraps next with validator
func NewValidatingUserFetcher(validator TokenValidator, next UserFetcher, logger Logger) *ValidatingUserFetcher {
	if logger == nil {
		logger = defLogger{}
	}
	if next == nil {
		next = AbsentUserFetcher{}
	}
	return &ValidatingUserFetcher{
		validator: validator,
		next:      next,
		logger:    logger,
	}
}

func (f *ValidatingUserFetcher) FetchByToken(ctx context.Context, token string) (*User, error) {
	if f.validator != nil {
		if _, err := f.validator.Validate(token); err != nil {
			if IsTokenExpiredError(err) || IsMalformedError(err) {
				f.logger.Info("rejecting token before user lookup: %v", err)
				return nil, nil
			}
			return nil, err
		}
	}
	return f.next.FetchByToken(ctx, token)
}
