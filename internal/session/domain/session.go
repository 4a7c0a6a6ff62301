package domain

import (
	userdomain "al-ilm/companion/internal/user/domain"
)

// Status is the observable state of the session state machine.
type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusError         Status = "error"
)

// Session is the in-memory authentication state. Copies of it are handed to
// observers; the store owns the single mutable instance.
type Session struct {
	Token           string
	User            *userdomain.UserProfile
	IsAuthenticated bool
	IsLoading       bool
	LastError       string
}

// Status derives the state-machine status from the session fields.
func (s Session) Status() Status {
	switch {
	case s.IsLoading:
		return StatusLoading
	case s.IsAuthenticated:
		return StatusAuthenticated
	case s.LastError != "":
		return StatusError
	default:
		return StatusAnonymous
	}
}

// Consistent reports whether the authentication invariant holds:
// IsAuthenticated exactly when both token and user are present.
func (s Session) Consistent() bool {
	return s.IsAuthenticated == (s.Token != "" && s.User != nil)
}

// AuthGrant is a token and profile pair returned by the auth API on a
// successful password, device, or refresh exchange.
type AuthGrant struct {
	Token string
	User  userdomain.UserProfile
}
