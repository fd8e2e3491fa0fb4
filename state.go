package authflow

import "strings"

// ApplicationState is the page the visitor should be on
type ApplicationState string

const (
	StateLoading  ApplicationState = "loading"
	StateAuth     ApplicationState = "auth"
	StateRegister ApplicationState = "register"
	StateProfile  ApplicationState = "profile"
)

// IsLoading reports whether the state has not been decided yet
func (s ApplicationState) IsLoading() bool {
	return s == "" || s == StateLoading
}

// Route returns the path the state maps to under prefix. Loading has no
// route and returns an empty string.
func (s ApplicationState) Route(prefix ...string) string {
	if s.IsLoading() {
		return ""
	}
	p := "/"
	if len(prefix) > 0 && prefix[0] != "" {
		p = strings.TrimSuffix(prefix[0], "/") + "/"
	}
	return p + string(s)
}

func (s ApplicationState) String() string {
	if s == "" {
		return string(StateLoading)
	}
	return string(s)
}

// DecideState maps the presence of token, user and registration to the
// target state.
//
//	token  user  registration  state
//	no     -     -             auth
//	yes    no    -             auth
//	yes    yes   no            register
//	yes    yes   yes           profile
func DecideState(hasToken, hasUser, hasRegistration bool) ApplicationState {
	if !hasToken || !hasUser {
		return StateAuth
	}
	if !hasRegistration {
		return StateRegister
	}
	return StateProfile
}

// LoadedFlags track which resolution stages completed for the current
// dependency chain.
type LoadedFlags struct {
	Token        bool `json:"token"`
	User         bool `json:"user"`
	Registration bool `json:"registration"`
}

// All reports whether every stage completed
func (f LoadedFlags) All() bool {
	return f.Token && f.User && f.Registration
}

// Status is the read only view the UI layer consumes
type Status struct {
	Loading      bool             `json:"loading"`
	State        ApplicationState `json:"state"`
	Path         string           `json:"path"`
	Token        string           `json:"-"`
	HasToken     bool             `json:"has_token"`
	User         *User            `json:"user,omitempty"`
	Registration *Registration    `json:"registration,omitempty"`
	Loaded       LoadedFlags      `json:"loaded"`
}

// Ready reports whether the state is decided and the visitor is on its page
func (s Status) Ready() bool {
	return !s.Loading
}
