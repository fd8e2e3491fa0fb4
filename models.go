package authflow

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the account identified by a credential token
type User struct {
	ID        uuid.UUID      `json:"id"`
	Username  string         `json:"username,omitempty"`
	Email     string         `json:"email,omitempty"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Registration is the user's sign up for the event
type Registration struct {
	ID        uuid.UUID      `json:"id"`
	EventID   string         `json:"event_id,omitempty"`
	UserID    uuid.UUID      `json:"user_id"`
	Status    string         `json:"status,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
