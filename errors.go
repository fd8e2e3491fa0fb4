package authflow

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMissingCredential = "MISSING_CREDENTIAL"
	TextCodeFetchFailure      = "FETCH_FAILURE"
	TextCodeStoreFailure      = "STORE_FAILURE"
	TextCodeNavigationFailure = "NAVIGATION_FAILURE"
	TextCodeResolverClosed    = "RESOLVER_CLOSED"
	TextCodeResolverStarted   = "RESOLVER_STARTED"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
)

// ErrMissingCredential describes a visitor without a token. It is never
// returned, only attached to activity when the resolver settles on auth.
var ErrMissingCredential = goerrors.New("missing credential", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingCredential).
	WithCode(goerrors.CodeUnauthorized)

// ErrFetchFailure wraps user and registration lookup errors
var ErrFetchFailure = goerrors.New("fetch failure", goerrors.CategoryOperation).
	WithTextCode(TextCodeFetchFailure)

// ErrStoreFailure wraps persistent store errors
var ErrStoreFailure = goerrors.New("token store failure", goerrors.CategoryInternal).
	WithTextCode(TextCodeStoreFailure).
	WithCode(goerrors.CodeInternal)

// ErrNavigationFailure wraps navigator errors
var ErrNavigationFailure = goerrors.New("navigation failure", goerrors.CategoryOperation).
	WithTextCode(TextCodeNavigationFailure)

// ErrResolverClosed is returned when using a resolver after Close
var ErrResolverClosed = goerrors.New("resolver closed", goerrors.CategoryConflict).
	WithTextCode(TextCodeResolverClosed).
	WithCode(goerrors.CodeConflict)

// ErrResolverStarted is returned when Start is called twice
var ErrResolverStarted = goerrors.New("resolver already started", goerrors.CategoryConflict).
	WithTextCode(TextCodeResolverStarted).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned by token inspection for expired tokens
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned by token inspection for unparsable tokens
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// wrapFailure wraps err with the category and text code of kind. The
// sentinel itself is left untouched.
func wrapFailure(err error, kind *goerrors.Error, metadata map[string]any) *goerrors.Error {
	wrapped := goerrors.Wrap(err, kind.Category, kind.Message).WithTextCode(kind.TextCode)
	if len(metadata) > 0 {
		wrapped = wrapped.WithMetadata(metadata)
	}
	return wrapped
}

// HasTextCode reports whether err is a rich error carrying code
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
