package session

import (
	"context"
	"encoding/json"

	"github.com/krancour/cloudbalance"
	"github.com/pkg/errors"
)

// The keys a session is persisted under. Every backend writes all of them as
// one group.
const (
	KeySessionToken              = "sessionToken"
	KeyUser                      = "user"
	KeyIsImpersonating           = "isImpersonating"
	KeyOriginalAdminSessionToken = "originalAdminSessionToken"
)

// Keys lists every storage key.
var Keys = []string{
	KeySessionToken,
	KeyUser,
	KeyIsImpersonating,
	KeyOriginalAdminSessionToken,
}

// ErrInconsistentSnapshot is returned when stored keys describe a session that
// could not have been produced by any transition.
type ErrInconsistentSnapshot struct {
	Reason string
}

func (e *ErrInconsistentSnapshot) Error() string {
	return "inconsistent stored session: " + e.Reason
}

// Snapshot is the durable mirror of a session. Zero values stand for absent
// keys.
type Snapshot struct {
	SessionToken              string
	User                      *cloudbalance.Identity
	IsImpersonating           bool
	OriginalAdminSessionToken string
}

// Empty returns true if the snapshot describes no session at all.
func (s Snapshot) Empty() bool {
	return s.SessionToken == "" &&
		s.User == nil &&
		!s.IsImpersonating &&
		s.OriginalAdminSessionToken == ""
}

// Consistent checks the snapshot against the session invariants: a token and
// a user are present together or not at all, and an original administrator
// token is present if and only if impersonation is.
func (s Snapshot) Consistent() error {
	if s.Empty() {
		return nil
	}
	switch {
	case s.SessionToken == "":
		return &ErrInconsistentSnapshot{Reason: "no session token"}
	case s.User == nil:
		return &ErrInconsistentSnapshot{Reason: "no user"}
	case !s.User.Role.Valid():
		return &ErrInconsistentSnapshot{
			Reason: "unrecognized role " + string(s.User.Role),
		}
	case s.IsImpersonating && s.OriginalAdminSessionToken == "":
		return &ErrInconsistentSnapshot{
			Reason: "impersonating without an original session token",
		}
	case !s.IsImpersonating && s.OriginalAdminSessionToken != "":
		return &ErrInconsistentSnapshot{
			Reason: "original session token without impersonation",
		}
	}
	return nil
}

// Entries renders the snapshot as string key/value pairs, omitting absent
// keys. The user is JSON-encoded and the impersonation flag is "true" or
// absent.
func (s Snapshot) Entries() (map[string]string, error) {
	entries := map[string]string{}
	if s.SessionToken != "" {
		entries[KeySessionToken] = s.SessionToken
	}
	if s.User != nil {
		userBytes, err := json.Marshal(s.User)
		if err != nil {
			return nil, errors.Wrap(err, "error marshaling user")
		}
		entries[KeyUser] = string(userBytes)
	}
	if s.IsImpersonating {
		entries[KeyIsImpersonating] = "true"
	}
	if s.OriginalAdminSessionToken != "" {
		entries[KeyOriginalAdminSessionToken] = s.OriginalAdminSessionToken
	}
	return entries, nil
}

// SnapshotFromEntries is the inverse of Snapshot.Entries. Unknown keys are
// ignored.
func SnapshotFromEntries(entries map[string]string) (Snapshot, error) {
	snap := Snapshot{
		SessionToken:              entries[KeySessionToken],
		IsImpersonating:           entries[KeyIsImpersonating] == "true",
		OriginalAdminSessionToken: entries[KeyOriginalAdminSessionToken],
	}
	if userStr, ok := entries[KeyUser]; ok && userStr != "" {
		user := cloudbalance.Identity{}
		if err := json.Unmarshal([]byte(userStr), &user); err != nil {
			return snap, errors.Wrap(err, "error unmarshaling stored user")
		}
		snap.User = &user
	}
	return snap, nil
}

// Storage is a durable mirror of the session. Implementations must write all
// keys of a snapshot as one group so that a crash cannot leave a partial
// session behind.
type Storage interface {
	// Load returns the stored snapshot, which is empty if nothing is stored.
	Load(context.Context) (Snapshot, error)
	// Save replaces whatever is stored with the snapshot. Keys absent from
	// the snapshot are deleted.
	Save(context.Context, Snapshot) error
	// Clear deletes every key.
	Clear(context.Context) error
}
