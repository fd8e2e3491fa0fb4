package authflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-authflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	loc, err := authflow.ParseLocation("https://example.com/register?jwt=abc&ref=mail")
	require.NoError(t, err)
	assert.Equal(t, "/register", loc.Path)
	assert.True(t, loc.Has("jwt"))
	assert.Equal(t, "mail", loc.Query.Get("ref"))

	stripped := loc.Without("jwt")
	assert.False(t, stripped.Has("jwt"))
	assert.True(t, loc.Has("jwt"), "Without must not modify the receiver")
	assert.Equal(t, "/register?ref=mail", stripped.String())

	empty := authflow.MustParseLocation("")
	assert.Equal(t, "/", empty.Path)
	assert.Equal(t, "/", empty.String())
	assert.False(t, authflow.Location{}.Has("jwt"))

	_, err = authflow.ParseLocation("%zz")
	assert.Error(t, err)
	assert.Panics(t, func() { authflow.MustParseLocation("%zz") })
}

func TestMemoryNavigator(t *testing.T) {
	nav, err := authflow.NewMemoryNavigator("/?jwt=abc&ref=mail")
	require.NoError(t, err)

	var seen []string
	unsubscribe := nav.Subscribe(func(loc authflow.Location) {
		seen = append(seen, loc.String())
	})

	assert.Equal(t, "/", nav.CurrentPath())
	params := nav.CurrentQueryParams()
	assert.Equal(t, "abc", params.Get("jwt"))
	params.Set("jwt", "changed")
	assert.Equal(t, "abc", nav.CurrentQueryParams().Get("jwt"), "query params are copied")

	nav.ReplaceLocationStrippingParam("jwt")
	assert.False(t, nav.Location().Has("jwt"))
	assert.Len(t, nav.History(), 1, "stripping replaces the entry")

	require.NoError(t, nav.NavigateTo(context.Background(), "/register"))
	require.NoError(t, nav.Visit("/profile"))
	assert.Equal(t, "/profile", nav.CurrentPath())
	assert.Equal(t, []string{"/register"}, nav.Navigations())

	assert.True(t, nav.Back())
	assert.Equal(t, "/register", nav.CurrentPath())
	assert.True(t, nav.Back())
	assert.False(t, nav.Back())

	unsubscribe()
	unsubscribe()
	require.NoError(t, nav.Visit("/ignored"))

	assert.Equal(t, []string{"/?ref=mail", "/register", "/profile", "/register", "/?ref=mail"}, seen)
}

func TestMemoryNavigatorFailures(t *testing.T) {
	nav, err := authflow.NewMemoryNavigator("")
	require.NoError(t, err)
	assert.Equal(t, "/", nav.CurrentPath())

	boom := errors.New("blocked")
	nav.FailNavigation(boom)
	assert.ErrorIs(t, nav.NavigateTo(context.Background(), "/auth"), boom)
	assert.Empty(t, nav.Navigations())

	nav.FailNavigation(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, nav.NavigateTo(ctx, "/auth"), context.Canceled)

	_, err = authflow.NewMemoryNavigator("%zz")
	assert.Error(t, err)

	assert.NotPanics(t, func() { nav.Subscribe(nil)() })
}
