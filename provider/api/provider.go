// Package api resolves users and registrations against the event API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-authflow"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	defaultTimeout = 10 * time.Second
	userPath       = "/users/@me"
)

var (
	_ authflow.UserFetcher         = (*Provider)(nil)
	_ authflow.RegistrationFetcher = (*Provider)(nil)
)

// Config holds event API configuration.
type Config struct {
	BaseURL string        `json:"base_url" yaml:"base_url"`
	EventID string        `json:"event_id" yaml:"event_id"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	HTTPClient *http.Client `json:"-" yaml:"-"`
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.EventID, validation.Required),
	)
}

// Provider implements authflow.UserFetcher and authflow.RegistrationFetcher
type Provider struct {
	config     Config
	httpClient *http.Client
	logger     authflow.Logger

	mu     sync.RWMutex
	tokens map[uuid.UUID]string
}

// Option customizes a Provider
type Option func(*Provider)

// WithLogger overrides the logger
func WithLogger(logger authflow.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a new event API provider.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid event API configuration")
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	p := &Provider{
		config:     cfg,
		httpClient: client,
		logger:     nopLogger{},
		tokens:     map[uuid.UUID]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// FetchByToken implements authflow.UserFetcher. A rejected token resolves
// to no user.
func (p *Provider) FetchByToken(ctx context.Context, token string) (*authflow.User, error) {
	if token == "" {
		return nil, nil
	}

	status, body, err := p.get(ctx, userPath, token)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		p.logger.Info("event API rejected token (status %d)", status)
		return nil, nil
	case status < 200 || status > 299:
		return nil, responseError("fetch_user", status, body)
	}

	var user authflow.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &ResponseError{Operation: "fetch_user", Status: status, Message: "failed to decode user response", Err: err}
	}

	p.mu.Lock()
	p.tokens[user.ID] = token
	p.mu.Unlock()

	return &user, nil
}

// FetchByUser implements authflow.RegistrationFetcher. A missing
// registration resolves to nil. The request carries the token the user was
// resolved from, if this provider resolved it.
func (p *Provider) FetchByUser(ctx context.Context, user *authflow.User) (*authflow.Registration, error) {
	if user == nil {
		return nil, nil
	}

	path := fmt.Sprintf("/events/%s/registrations/%s",
		url.PathEscape(p.config.EventID), url.PathEscape(user.ID.String()))

	p.mu.RLock()
	token := p.tokens[user.ID]
	p.mu.RUnlock()

	status, body, err := p.get(ctx, path, token)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status < 200 || status > 299:
		return nil, responseError("fetch_registration", status, body)
	}

	var registration authflow.Registration
	if err := json.Unmarshal(body, &registration); err != nil {
		return nil, &ResponseError{Operation: "fetch_registration", Status: status, Message: "failed to decode registration response", Err: err}
	}
	if registration.EventID == "" {
		registration.EventID = p.config.EventID
	}
	return &registration, nil
}

func (p *Provider) get(ctx context.Context, path, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
