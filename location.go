package authflow

import (
	"net/url"
	"strings"
)

// Location is a navigation position: a path plus its query parameters
type Location struct {
	Path  string
	Query url.Values
}

// ParseLocation parses a relative or absolute URL into a Location. The
// scheme and host of absolute URLs are dropped.
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, err
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return Location{Path: path, Query: u.Query()}, nil
}

// MustParseLocation is ParseLocation for literals
func MustParseLocation(raw string) Location {
	loc, err := ParseLocation(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// Has reports whether the location carries the query parameter name
func (l Location) Has(name string) bool {
	if l.Query == nil {
		return false
	}
	_, ok := l.Query[name]
	return ok
}

// Without returns a copy of the location with name removed from the query
func (l Location) Without(name string) Location {
	out := Location{Path: l.Path, Query: url.Values{}}
	for k, v := range l.Query {
		if k == name {
			continue
		}
		out.Query[k] = append([]string(nil), v...)
	}
	return out
}

func (l Location) String() string {
	path := l.Path
	if path == "" {
		path = "/"
	}
	if len(l.Query) == 0 {
		return path
	}
	return path + "?" + l.Query.Encode()
}

// samePath compares paths ignoring a trailing slash
func samePath(a, b string) bool {
	trim := func(s string) string {
		if len(s) > 1 {
			return strings.TrimSuffix(s, "/")
		}
		return s
	}
	return trim(a) == trim(b)
}
