package assignments

import (
	"context"
	"sort"

	"github.com/golang/glog"
	"github.com/krancour/cloudbalance"
	"github.com/pkg/errors"
)

// ErrNotAssignable is returned for users whose role already grants access to
// every account.
type ErrNotAssignable struct {
	Role cloudbalance.Role
}

func (e *ErrNotAssignable) Error() string {
	return "accounts cannot be assigned to users with role " + e.Role.Short()
}

// Client is the subset of cloudbalance.UsersClient needed to change a user's
// account assignments.
type Client interface {
	Get(ctx context.Context, id int64) (cloudbalance.User, error)
	AssignAccounts(
		ctx context.Context,
		id int64,
		accountIDs []int64,
	) (cloudbalance.User, error)
	RemoveAccounts(
		ctx context.Context,
		id int64,
		accountIDs []int64,
	) (cloudbalance.User, error)
}

// Plan is the difference between a user's current and desired account sets.
type Plan struct {
	Add    []int64
	Remove []int64
}

// NewPlan computes the changes that turn current into desired. Both results
// are sorted and free of duplicates.
func NewPlan(current, desired []int64) Plan {
	currentSet := toSet(current)
	desiredSet := toSet(desired)
	plan := Plan{}
	for id := range desiredSet {
		if _, ok := currentSet[id]; !ok {
			plan.Add = append(plan.Add, id)
		}
	}
	for id := range currentSet {
		if _, ok := desiredSet[id]; !ok {
			plan.Remove = append(plan.Remove, id)
		}
	}
	sortIDs(plan.Add)
	sortIDs(plan.Remove)
	return plan
}

func (p Plan) Empty() bool {
	return len(p.Add) == 0 && len(p.Remove) == 0
}

// Inverse returns the plan that undoes this one.
func (p Plan) Inverse() Plan {
	return Plan{
		Add:    p.Remove,
		Remove: p.Add,
	}
}

// Apply carries out the plan for the given user: additions first, then
// removals. If the removals fail after the additions succeeded, the inverse of
// what was applied is replayed before the original error is returned, so the
// user is never left half changed.
func Apply(
	ctx context.Context,
	client Client,
	user cloudbalance.User,
	plan Plan,
) (cloudbalance.User, error) {
	if user.Role != cloudbalance.RoleCustomer {
		return user, &ErrNotAssignable{Role: user.Role}
	}
	if plan.Empty() {
		return user, nil
	}
	updated, applied, err := execute(ctx, client, user, plan)
	if err == nil {
		return updated, nil
	}
	if applied.Empty() {
		return user, err
	}
	undo := applied.Inverse()
	if _, _, rerr := execute(ctx, client, user, undo); rerr != nil {
		glog.Warningf(
			"error rolling back account changes %+v for user %d: %s",
			applied,
			user.ID,
			rerr,
		)
		return user, errors.Wrapf(err, "rollback also failed (%s)", rerr)
	}
	return user, err
}

// execute issues the plan's additions, then its removals, stopping at the
// first failure. It returns the part of the plan that took effect.
func execute(
	ctx context.Context,
	client Client,
	user cloudbalance.User,
	plan Plan,
) (cloudbalance.User, Plan, error) {
	updated := user
	applied := Plan{}
	var err error
	if len(plan.Add) > 0 {
		if updated, err = client.AssignAccounts(ctx, user.ID, plan.Add); err != nil {
			return user, applied, errors.Wrapf(
				err,
				"error assigning accounts to user %d",
				user.ID,
			)
		}
		applied.Add = plan.Add
	}
	if len(plan.Remove) > 0 {
		if updated, err = client.RemoveAccounts(
			ctx,
			user.ID,
			plan.Remove,
		); err != nil {
			return user, applied, errors.Wrapf(
				err,
				"error removing accounts from user %d",
				user.ID,
			)
		}
		applied.Remove = plan.Remove
	}
	return updated, applied, nil
}

// Set makes the user's assigned accounts exactly the desired set.
func Set(
	ctx context.Context,
	client Client,
	userID int64,
	desired []int64,
) (cloudbalance.User, Plan, error) {
	user, err := client.Get(ctx, userID)
	if err != nil {
		return user, Plan{}, err
	}
	current := make([]int64, len(user.AssignedAccounts))
	for i, account := range user.AssignedAccounts {
		current[i] = account.ID
	}
	plan := NewPlan(current, desired)
	user, err = Apply(ctx, client, user, plan)
	return user, plan, err
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
