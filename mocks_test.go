package authflow_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-authflow"
	"github.com/stretchr/testify/mock"
)

// MockUserFetcher implements authflow.UserFetcher
type MockUserFetcher struct {
	mock.Mock
}

func (m *MockUserFetcher) FetchByToken(ctx context.Context, token string) (*authflow.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*authflow.User)
	return user, args.Error(1)
}

// MockRegistrationFetcher implements authflow.RegistrationFetcher
type MockRegistrationFetcher struct {
	mock.Mock
}

func (m *MockRegistrationFetcher) FetchByUser(ctx context.Context, user *authflow.User) (*authflow.Registration, error) {
	args := m.Called(ctx, user)
	registration, _ := args.Get(0).(*authflow.Registration)
	return registration, args.Error(1)
}

// MockStore implements authflow.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockStatusProvider implements authflow.StatusProvider
type MockStatusProvider struct {
	mock.Mock
}

func (m *MockStatusProvider) Status() authflow.Status {
	args := m.Called()
	return args.Get(0).(authflow.Status)
}

func (m *MockStatusProvider) FetchUser(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStatusProvider) FetchRegistration(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type logCall struct {
	level   string
	message string
}

// captureLogger records formatted log lines
type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: fmt.Sprintf(format, args...)})
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *captureLogger) contains(level, fragment string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.level == level && strings.Contains(c.message, fragment) {
			return true
		}
	}
	return false
}

func (l *captureLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, c := range l.calls {
		if c.level == level {
			out = append(out, c.message)
		}
	}
	return out
}

// activityRecorder collects resolver activity
type activityRecorder struct {
	mu     sync.Mutex
	events []authflow.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event authflow.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) ofType(eventType authflow.ActivityEventType) []authflow.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []authflow.ActivityEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
