package authflow

import (
	"context"
	"net/url"
	"sync"
)

var _ Navigator = (*MemoryNavigator)(nil)

// MemoryNavigator is an in process Navigator backed by a history stack. It
// is used by hosts that drive navigation themselves (server side sessions,
// CLIs) and by tests.
type MemoryNavigator struct {
	mu          sync.Mutex
	history     []Location
	subscribers map[int]func(Location)
	nextID      int
	navigations []string
	navigateErr error
}

// NewMemoryNavigator starts the history at raw, "/" when empty
func NewMemoryNavigator(raw string) (*MemoryNavigator, error) {
	if raw == "" {
		raw = "/"
	}
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	return &MemoryNavigator{
		history:     []Location{loc},
		subscribers: map[int]func(Location){},
	}, nil
}

// Location returns the current location
func (n *MemoryNavigator) Location() Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current()
}

func (n *MemoryNavigator) CurrentPath() string {
	return n.Location().Path
}

func (n *MemoryNavigator) CurrentQueryParams() url.Values {
	loc := n.Location()
	out := url.Values{}
	for k, v := range loc.Query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// ReplaceLocationStrippingParam swaps the current history entry for one
// without the parameter so going back cannot restore it.
func (n *MemoryNavigator) ReplaceLocationStrippingParam(name string) {
	n.mu.Lock()
	loc := n.current().Without(name)
	n.history[len(n.history)-1] = loc
	n.mu.Unlock()

	n.notify(loc)
}

// NavigateTo pushes path onto the history
func (n *MemoryNavigator) NavigateTo(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	if n.navigateErr != nil {
		err := n.navigateErr
		n.mu.Unlock()
		return err
	}
	loc, err := ParseLocation(path)
	if err != nil {
		n.mu.Unlock()
		return err
	}
	n.history = append(n.history, loc)
	n.navigations = append(n.navigations, path)
	n.mu.Unlock()

	n.notify(loc)
	return nil
}

// Visit simulates the visitor opening raw
func (n *MemoryNavigator) Visit(raw string) error {
	loc, err := ParseLocation(raw)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.history = append(n.history, loc)
	n.mu.Unlock()

	n.notify(loc)
	return nil
}

// Back pops the current entry. It returns false on the first entry.
func (n *MemoryNavigator) Back() bool {
	n.mu.Lock()
	if len(n.history) < 2 {
		n.mu.Unlock()
		return false
	}
	n.history = n.history[:len(n.history)-1]
	loc := n.current()
	n.mu.Unlock()

	n.notify(loc)
	return true
}

// History returns a copy of the history stack, oldest first
func (n *MemoryNavigator) History() []Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Location(nil), n.history...)
}

// Navigations returns the paths requested through NavigateTo
func (n *MemoryNavigator) Navigations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.navigations...)
}

// FailNavigation makes NavigateTo return err until called with nil
func (n *MemoryNavigator) FailNavigation(err error) {
	n.mu.Lock()
	n.navigateErr = err
	n.mu.Unlock()
}

func (n *MemoryNavigator) Subscribe(fn func(Location)) func() {
	if fn == nil {
		return func() {}
	}

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subscribers[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subscribers, id)
			n.mu.Unlock()
		})
	}
}

func (n *MemoryNavigator) current() Location {
	return n.history[len(n.history)-1]
}

func (n *MemoryNavigator) notify(loc Location) {
	n.mu.Lock()
	subs := make([]func(Location), 0, len(n.subscribers))
	for i := 0; i < n.nextID; i++ {
		if fn, ok := n.subscribers[i]; ok {
			subs = append(subs, fn)
		}
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(loc)
	}
}
