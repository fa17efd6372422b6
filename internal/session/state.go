package session

import (
	"github.com/PMGEECODE/destinypal-sub002/internal/models"
)

// AuthState is a snapshot of the session. The manager hands out copies, so
// readers never observe a half-applied transition.
type AuthState struct {
	User                *models.AuthUser
	Profile             models.UserProfile
	IsLoading           bool
	IsAuthenticated     bool
	PendingVerification *models.PendingVerification
	Error               string // empty when no error is pending display

	// 2FA challenge state, live only between a login that required a second
	// factor and the verification that completes it.
	TwoFactorRequired bool
	TwoFactorMethod   models.TwoFactorMethod
}

// initialState is the not-yet-resolved session: loading until the first
// bootstrap settles it.
func initialState() AuthState {
	return AuthState{IsLoading: true}
}

// clone deep-copies the snapshot so callers can't mutate manager state
// through the returned pointers.
func (s AuthState) clone() AuthState {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Profile != nil {
		p := make(models.UserProfile, len(s.Profile))
		for k, v := range s.Profile {
			p[k] = v
		}
		out.Profile = p
	}
	if s.PendingVerification != nil {
		pv := *s.PendingVerification
		out.PendingVerification = &pv
	}
	return out
}
