package authflow

import (
	"fmt"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*TokenClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*TokenClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds.
// It treats malformed errors as "try next" and returns the last malformed
// error if all validators fail.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}

// GivenKey is a verification key registered under a key ID
type GivenKey struct {
	Key    any
	JWTAlg string
}

// TokenInspector validates visitor tokens. Without keys it only decodes the
// claims and checks expiry, which is enough to skip lookups for tokens that
// are obviously dead; with keys it verifies signatures too.
type TokenInspector struct {
	keyFunc  jwt.Keyfunc
	issuer   string
	audience []string
	leeway   time.Duration
	now      func() time.Time
	jwks     *keyfunc.JWKS
}

// TokenInspectorOption customizes a TokenInspector
type TokenInspectorOption func(*TokenInspector) error

// WithSigningKey verifies HMAC signatures with key
func WithSigningKey(key []byte) TokenInspectorOption {
	return func(ti *TokenInspector) error {
		ti.keyFunc = func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return key, nil
		}
		return nil
	}
}

// WithGivenKeys verifies signatures with keys selected by the token kid
func WithGivenKeys(keys map[string]GivenKey) TokenInspectorOption {
	return func(ti *TokenInspector) error {
		ti.keyFunc = keyfunc.NewGiven(givenKeys(keys)).Keyfunc
		return nil
	}
}

// WithJWKSURL verifies signatures against a remote JWK Set, refreshed in
// the background. Call Close to stop the refresh.
func WithJWKSURL(jwksURL string) TokenInspectorOption {
	return func(ti *TokenInspector) error {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				log.Printf("failed to do a background refresh of JWT set: %s", err)
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return fmt.Errorf("failed to get JWK Set: %w", err)
		}
		ti.jwks = jwks
		ti.keyFunc = jwks.Keyfunc
		return nil
	}
}

// WithTokenIssuer requires the iss claim to match
func WithTokenIssuer(issuer string) TokenInspectorOption {
	return func(ti *TokenInspector) error {
		ti.issuer = issuer
		return nil
	}
}

// WithTokenAudience requires the aud claim to contain one of audience
func WithTokenAudience(audience ...string) TokenInspectorOption {
	return func(ti *TokenInspector) error {
		ti.audience = append(ti.audience, audience...)
		return nil
	}
}

// WithTokenLeeway tolerates clock skew when checking exp
func WithTokenLeeway(leeway time.Duration) TokenInspectorOption {
	return func(ti *TokenInspector) error {
		ti.leeway = leeway
		return nil
	}
}

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenInspectorOption {
	return func(ti *TokenInspector) error {
		if clock != nil {
			ti.now = clock
		}
		return nil
	}
}

// NewTokenInspector builds an inspector from opts
func NewTokenInspector(opts ...TokenInspectorOption) (*TokenInspector, error) {
	ti := &TokenInspector{now: time.Now}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(ti); err != nil {
			return nil, err
		}
	}
	return ti, nil
}

// Validate satisfies the TokenValidator interface.
func (ti *TokenInspector) Validate(tokenString string) (*TokenClaims, error) {
	if ti.keyFunc == nil {
		return ti.inspect(tokenString)
	}

	parserOptions := []jwt.ParserOption{jwt.WithTimeFunc(ti.now), jwt.WithExpirationRequired()}
	if ti.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ti.issuer))
	}
	if ti.leeway > 0 {
		parserOptions = append(parserOptions, jwt.WithLeeway(ti.leeway))
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ti.keyFunc, parserOptions...)
	if err != nil {
		return nil, mapJWTError(err)
	}
	if !token.Valid {
		return nil, ErrTokenMalformed
	}
	// aud must contain one of the configured audiences
	if len(ti.audience) > 0 && !audienceMatches(claims.Audience, ti.audience) {
		return nil, wrapFailure(jwt.ErrTokenInvalidAudience, ErrTokenMalformed, nil)
	}
	return claims, nil
}

// Close stops the JWK Set refresh, if any
func (ti *TokenInspector) Close() {
	if ti.jwks != nil {
		ti.jwks.EndBackground()
	}
}

func (ti *TokenInspector) inspect(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, mapJWTError(err)
	}

	if exp := claims.Expires(); !exp.IsZero() && ti.now().After(exp.Add(ti.leeway)) {
		return nil, ErrTokenExpired
	}
	if ti.issuer != "" && claims.Issuer != ti.issuer {
		return nil, wrapFailure(jwt.ErrTokenInvalidIssuer, ErrTokenMalformed, nil)
	}
	if len(ti.audience) > 0 && !audienceMatches(claims.Audience, ti.audience) {
		return nil, wrapFailure(jwt.ErrTokenInvalidAudience, ErrTokenMalformed, nil)
	}
	return claims, nil
}

func mapJWTError(err error) error {
	if goerrors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return wrapFailure(err, ErrTokenMalformed, nil)
}

func audienceMatches(have jwt.ClaimStrings, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func givenKeys(keys map[string]GivenKey) map[string]keyfunc.GivenKey {
	out := make(map[string]keyfunc.GivenKey, len(keys))
	for kid, key := range keys {
		out[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
			Algorithm: key.JWTAlg,
		})
	}
	return out
}
