package domain

import "errors"

// UserProfile is the authenticated principal as reported by the platform API.
type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// Role is the platform role carried on the profile. Empty means an ordinary user.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
)

// Validate validates the profile as received from the API. Returns an error describing the first failure.
func (u *UserProfile) Validate() error {
	if u.ID == "" {
		return errors.New("user id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// IsAdmin reports whether the profile carries the ADMIN role.
func (u *UserProfile) IsAdmin() bool {
	return u.Role == RoleAdmin
}
