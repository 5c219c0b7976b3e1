package impersonation

import (
	"context"

	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/session"
)

// ErrRejected is returned when an impersonation request fails a
// precondition checked before anything is sent to the API server.
type ErrRejected struct {
	Reason string
}

func (e *ErrRejected) Error() string {
	return e.Reason
}

var (
	// ErrNotAdmin is returned when anyone other than an authenticated
	// administrator tries to impersonate.
	ErrNotAdmin = &ErrRejected{
		Reason: "Only administrators can impersonate other users",
	}
	// ErrAlreadyImpersonating is returned when an impersonation is attempted
	// from within another one.
	ErrAlreadyImpersonating = &ErrRejected{
		Reason: "Cannot create nested impersonation sessions",
	}
	// ErrTargetNotCustomer is returned when the target of an impersonation is
	// not a customer.
	ErrTargetNotCustomer = &ErrRejected{
		Reason: "Admin can only impersonate customers",
	}
	// ErrSelfImpersonation is returned when an administrator targets their
	// own account.
	ErrSelfImpersonation = &ErrRejected{Reason: "Cannot impersonate yourself"}
	// ErrNotImpersonating is returned when there is no impersonation to
	// revert.
	ErrNotImpersonating = &ErrRejected{
		Reason: "Not currently impersonating any user",
	}
)

// Store is the subset of *session.Store a Controller drives.
type Store interface {
	State() session.State
	Impersonate(ctx context.Context, targetUserID int64) error
	RevertImpersonation(context.Context) error
	RecordError(error)
}

// Controller checks the preconditions of impersonation before handing off to
// the session store. Rejections are recorded in the store's error and
// returned; they never change identity.
type Controller struct {
	store Store
}

func NewController(store Store) *Controller {
	return &Controller{
		store: store,
	}
}

// Impersonate switches to the target user's identity.
func (c *Controller) Impersonate(ctx context.Context, targetUserID int64) error {
	if targetUserID < 1 {
		return c.reject(cloudbalance.NewErrValidation("target user is required"))
	}
	state := c.store.State()
	if err := checkImpersonator(state); err != nil {
		return c.reject(err)
	}
	if state.User.ID == targetUserID {
		return c.reject(ErrSelfImpersonation)
	}
	return c.store.Impersonate(ctx, targetUserID)
}

// ImpersonateUser is like Impersonate, but since the target user's role is
// known it also refuses targets that are not customers without a round trip.
func (c *Controller) ImpersonateUser(
	ctx context.Context,
	target cloudbalance.User,
) error {
	state := c.store.State()
	if err := checkImpersonator(state); err != nil {
		return c.reject(err)
	}
	if target.Role != cloudbalance.RoleCustomer {
		return c.reject(ErrTargetNotCustomer)
	}
	return c.Impersonate(ctx, target.ID)
}

// Revert returns to the original administrator's identity.
func (c *Controller) Revert(ctx context.Context) error {
	if c.store.State().Phase() != session.LoggedInImpersonating {
		return c.reject(ErrNotImpersonating)
	}
	return c.store.RevertImpersonation(ctx)
}

// Candidates returns the users that the current user could impersonate. It
// returns nothing unless the current user is an administrator who is not
// already impersonating.
func (c *Controller) Candidates(users []cloudbalance.User) []cloudbalance.User {
	state := c.store.State()
	if checkImpersonator(state) != nil {
		return nil
	}
	candidates := []cloudbalance.User{}
	for _, user := range users {
		if user.Role == cloudbalance.RoleCustomer && user.ID != state.User.ID {
			candidates = append(candidates, user)
		}
	}
	return candidates
}

func checkImpersonator(state session.State) error {
	switch state.Phase() {
	case session.LoggedOut:
		return ErrNotAdmin
	case session.LoggedInImpersonating:
		return ErrAlreadyImpersonating
	}
	if state.Role() != cloudbalance.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

func (c *Controller) reject(err error) error {
	c.store.RecordError(err)
	return err
}
