package session

import "github.com/krancour/cloudbalance"

// Phase is the coarse state of a session as far as identity is concerned.
type Phase int

const (
	// LoggedOut means there is no session token.
	LoggedOut Phase = iota
	// LoggedInAsSelf means the session token belongs to the user who logged in.
	LoggedInAsSelf
	// LoggedInImpersonating means an administrator's session has been swapped
	// for one belonging to another user, and the administrator's token is held
	// in reserve.
	LoggedInImpersonating
)

func (p Phase) String() string {
	switch p {
	case LoggedOut:
		return "LoggedOut"
	case LoggedInAsSelf:
		return "LoggedInAsSelf"
	case LoggedInImpersonating:
		return "LoggedInImpersonating"
	}
	return "Unknown"
}

// State is the authentication context held by a Store. Values returned by the
// Store are copies; mutating them has no effect on the Store.
type State struct {
	SessionToken    string                 `json:"sessionToken,omitempty"`
	User            *cloudbalance.Identity `json:"user,omitempty"`
	IsAuthenticated bool                   `json:"isAuthenticated"`
	// IsLoading is true while a request that may change identity is in
	// flight.
	IsLoading bool `json:"isLoading"`
	// Error is the user-facing message of the most recent failure, if any.
	Error                     string `json:"error,omitempty"`
	IsImpersonating           bool   `json:"isImpersonating"`
	OriginalAdminSessionToken string `json:"originalAdminSessionToken,omitempty"`
}

func (s State) Phase() Phase {
	switch {
	case !s.IsAuthenticated:
		return LoggedOut
	case s.IsImpersonating:
		return LoggedInImpersonating
	}
	return LoggedInAsSelf
}

// Role returns the current user's role, or the empty string if there is no
// current user.
func (s State) Role() cloudbalance.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s State) clone() State {
	if s.User != nil {
		user := *s.User
		s.User = &user
	}
	return s
}

func (s State) snapshot() Snapshot {
	snap := Snapshot{
		SessionToken:              s.SessionToken,
		IsImpersonating:           s.IsImpersonating,
		OriginalAdminSessionToken: s.OriginalAdminSessionToken,
	}
	if s.User != nil {
		user := *s.User
		snap.User = &user
	}
	return snap
}

func stateFromSnapshot(snap Snapshot) State {
	state := State{
		SessionToken:              snap.SessionToken,
		IsImpersonating:           snap.IsImpersonating,
		OriginalAdminSessionToken: snap.OriginalAdminSessionToken,
	}
	if snap.User != nil {
		user := *snap.User
		state.User = &user
	}
	state.IsAuthenticated = state.SessionToken != "" && state.User != nil
	return state
}

func stateFromGrant(grant cloudbalance.SessionGrant) State {
	user := grant.Identity()
	return State{
		SessionToken:    grant.SessionToken,
		User:            &user,
		IsAuthenticated: true,
	}
}
