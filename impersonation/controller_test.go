package impersonation

import (
	"context"
	"testing"

	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/session"
	"github.com/stretchr/testify/require"
)

type countingGateway struct {
	impersonations int
	reverts        int
}

func (c *countingGateway) Login(
	_ context.Context,
	creds cloudbalance.Credentials,
) (cloudbalance.SessionGrant, error) {
	role, _ := cloudbalance.ParseRole(creds.Username)
	return cloudbalance.SessionGrant{
		SessionToken: "tok-" + creds.Username,
		UserID:       1,
		Username:     creds.Username,
		Role:         role,
	}, nil
}

func (c *countingGateway) Logout(context.Context, string) error {
	return nil
}

func (c *countingGateway) Impersonate(
	_ context.Context,
	targetUserID int64,
) (cloudbalance.SessionGrant, error) {
	c.impersonations++
	return cloudbalance.SessionGrant{
		SessionToken: "custtok",
		UserID:       targetUserID,
		Username:     "customer",
		Role:         cloudbalance.RoleCustomer,
	}, nil
}

func (c *countingGateway) RevertImpersonation(
	context.Context,
) (cloudbalance.SessionGrant, error) {
	c.reverts++
	return cloudbalance.SessionGrant{
		SessionToken: "freshtok",
		UserID:       1,
		Username:     "admin",
		Role:         cloudbalance.RoleAdmin,
	}, nil
}

// newTestController returns a controller whose store is logged in with the
// given role. The empty role means logged out.
func newTestController(
	t *testing.T,
	role cloudbalance.Role,
) (*Controller, *session.Store, *countingGateway) {
	gw := &countingGateway{}
	store := session.NewStore(
		session.NewMemoryStorage(),
		func(cloudbalance.TokenSource) session.Gateway { return gw },
	)
	if role != "" {
		require.NoError(
			t,
			store.Login(
				context.Background(),
				cloudbalance.Credentials{Username: role.Short()},
			),
		)
	}
	return NewController(store), store, gw
}

func TestImpersonate(t *testing.T) {
	testCases := []struct {
		name         string
		role         cloudbalance.Role
		impersonated bool
		targetUserID int64
		expectedErr  error
	}{
		{
			name:         "logged out",
			targetUserID: 5,
			expectedErr:  ErrNotAdmin,
		},
		{
			name:         "read only user",
			role:         cloudbalance.RoleReadOnly,
			targetUserID: 5,
			expectedErr:  ErrNotAdmin,
		},
		{
			name:         "customer",
			role:         cloudbalance.RoleCustomer,
			targetUserID: 5,
			expectedErr:  ErrNotAdmin,
		},
		{
			name:         "already impersonating",
			role:         cloudbalance.RoleAdmin,
			impersonated: true,
			targetUserID: 6,
			expectedErr:  ErrAlreadyImpersonating,
		},
		{
			name:         "self",
			role:         cloudbalance.RoleAdmin,
			targetUserID: 1,
			expectedErr:  ErrSelfImpersonation,
		},
		{
			name:         "admin",
			role:         cloudbalance.RoleAdmin,
			targetUserID: 5,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			controller, store, gw := newTestController(t, testCase.role)
			if testCase.impersonated {
				require.NoError(t, controller.Impersonate(context.Background(), 5))
				gw.impersonations = 0
			}
			before := store.State()
			err := controller.Impersonate(
				context.Background(),
				testCase.targetUserID,
			)
			after := store.State()
			if testCase.expectedErr != nil {
				require.Equal(t, testCase.expectedErr, err)
				require.Equal(t, 0, gw.impersonations)
				require.Equal(t, testCase.expectedErr.Error(), after.Error)
				after.Error = ""
				require.Equal(t, before, after)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 1, gw.impersonations)
			require.Equal(t, session.LoggedInImpersonating, after.Phase())
			require.Equal(t, "tok-ADMIN", after.OriginalAdminSessionToken)
		})
	}
}

func TestImpersonateUser(t *testing.T) {
	controller, store, gw := newTestController(t, cloudbalance.RoleAdmin)
	err := controller.ImpersonateUser(
		context.Background(),
		cloudbalance.User{ID: 2, Role: cloudbalance.RoleReadOnly},
	)
	require.Equal(t, ErrTargetNotCustomer, err)
	require.Equal(t, 0, gw.impersonations)
	require.Equal(t, session.LoggedInAsSelf, store.State().Phase())

	err = controller.ImpersonateUser(
		context.Background(),
		cloudbalance.User{ID: 5, Role: cloudbalance.RoleCustomer},
	)
	require.NoError(t, err)
	require.Equal(t, 1, gw.impersonations)
	require.Equal(t, session.LoggedInImpersonating, store.State().Phase())
}

func TestRevert(t *testing.T) {
	t.Run("not impersonating", func(t *testing.T) {
		controller, store, gw := newTestController(t, cloudbalance.RoleAdmin)
		err := controller.Revert(context.Background())
		require.Equal(t, ErrNotImpersonating, err)
		require.Equal(t, 0, gw.reverts)
		require.Equal(t, ErrNotImpersonating.Error(), store.State().Error)
	})

	t.Run("impersonating", func(t *testing.T) {
		controller, store, gw := newTestController(t, cloudbalance.RoleAdmin)
		require.NoError(t, controller.Impersonate(context.Background(), 5))
		require.NoError(t, controller.Revert(context.Background()))
		require.Equal(t, 1, gw.reverts)
		state := store.State()
		require.Equal(t, session.LoggedInAsSelf, state.Phase())
		require.Equal(t, "freshtok", state.SessionToken)
		require.Equal(t, cloudbalance.RoleAdmin, state.Role())
	})
}

func TestCandidates(t *testing.T) {
	users := []cloudbalance.User{
		{ID: 1, Role: cloudbalance.RoleAdmin},
		{ID: 2, Role: cloudbalance.RoleReadOnly},
		{ID: 5, Role: cloudbalance.RoleCustomer},
		{ID: 6, Role: cloudbalance.RoleCustomer},
	}
	controller, _, _ := newTestController(t, cloudbalance.RoleAdmin)
	candidates := controller.Candidates(users)
	require.Len(t, candidates, 2)
	require.Equal(t, int64(5), candidates[0].ID)
	require.Equal(t, int64(6), candidates[1].ID)

	require.NoError(t, controller.Impersonate(context.Background(), 5))
	require.Empty(t, controller.Candidates(users))

	controller, _, _ = newTestController(t, cloudbalance.RoleReadOnly)
	require.Empty(t, controller.Candidates(users))
}
