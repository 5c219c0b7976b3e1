package mockapi

import (
	"testing"
	"time"

	"github.com/krancour/cloudbalance"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAdminID    int64 = 1
	testReadOnlyID int64 = 2
	testCustomerID int64 = 3
)

func testConfig() Config {
	return Config{
		SessionTimeout:    15 * time.Minute,
		ResetTokenTimeout: time.Hour,
		SeedAdminUsername: "admin",
		SeedAdminPassword: "admin123",
		SeedDemoData:      true,
		PasswordHashCost:  bcrypt.MinCost,
		AllowedOrigins:    []string{"http://localhost:3000"},
	}
}

func newTestService(t *testing.T) *Service {
	s, err := NewService(testConfig())
	require.NoError(t, err)
	return s
}

func login(t *testing.T, s *Service, username, password string) principal {
	grant, err := s.Login(
		cloudbalance.Credentials{Username: username, Password: password},
	)
	require.NoError(t, err)
	p, err := s.authenticate(grant.SessionToken)
	require.NoError(t, err)
	return p
}

func TestNewService(t *testing.T) {
	s := newTestService(t)
	users := s.ListUsers()
	require.Len(t, users, 3)
	require.Equal(t, "admin", users[0].Username)
	require.Equal(t, cloudbalance.RoleAdmin, users[0].Role)
	require.Equal(t, DemoCustomerUsername, users[2].Username)
	require.Len(t, users[2].AssignedAccounts, 2)
	require.Len(t, s.ListAccounts(), 3)
	require.Len(t, s.ListOrphanedAccounts(), 1)
}

func TestNewServiceWithoutDemoData(t *testing.T) {
	config := testConfig()
	config.SeedDemoData = false
	s, err := NewService(config)
	require.NoError(t, err)
	require.Len(t, s.ListUsers(), 1)
	require.Empty(t, s.ListAccounts())
}

func TestLogin(t *testing.T) {
	s := newTestService(t)
	grant, err := s.Login(
		cloudbalance.Credentials{Username: "admin", Password: "admin123"},
	)
	require.NoError(t, err)
	require.NotEmpty(t, grant.SessionToken)
	require.Equal(t, testAdminID, grant.UserID)
	require.Equal(t, cloudbalance.RoleAdmin, grant.Role)

	_, err = s.Login(
		cloudbalance.Credentials{Username: "admin", Password: "nope"},
	)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
	_, err = s.Login(
		cloudbalance.Credentials{Username: "nobody", Password: "admin123"},
	)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
}

func TestSlidingExpiry(t *testing.T) {
	s := newTestService(t)
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	p := login(t, s, "admin", "admin123")

	// Activity inside the timeout keeps pushing expiry out.
	for i := 0; i < 3; i++ {
		now = now.Add(10 * time.Minute)
		_, err := s.authenticate(p.token)
		require.NoError(t, err)
	}

	now = now.Add(16 * time.Minute)
	_, err := s.authenticate(p.token)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
}

func TestLogout(t *testing.T) {
	s := newTestService(t)
	p := login(t, s, "admin", "admin123")
	s.Logout(p)
	_, err := s.authenticate(p.token)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
}

func TestImpersonate(t *testing.T) {
	testCases := []struct {
		name       string
		username   string
		password   string
		nested     bool
		targetID   int64
		assertions func(cloudbalance.SessionGrant, error)
	}{
		{
			name:     "admin impersonates customer",
			username: "admin",
			password: "admin123",
			targetID: testCustomerID,
			assertions: func(grant cloudbalance.SessionGrant, err error) {
				require.NoError(t, err)
				require.Equal(t, testCustomerID, grant.UserID)
				require.Equal(t, cloudbalance.RoleCustomer, grant.Role)
			},
		},
		{
			name:     "read-only user is denied",
			username: DemoReadOnlyUsername,
			password: DemoPassword,
			targetID: testCustomerID,
			assertions: func(_ cloudbalance.SessionGrant, err error) {
				require.IsType(t, &cloudbalance.ErrAuthorization{}, err)
			},
		},
		{
			name:     "target not found",
			username: "admin",
			password: "admin123",
			targetID: 42,
			assertions: func(_ cloudbalance.SessionGrant, err error) {
				require.IsType(t, &cloudbalance.ErrNotFound{}, err)
			},
		},
		{
			name:     "target is not a customer",
			username: "admin",
			password: "admin123",
			targetID: testReadOnlyID,
			assertions: func(_ cloudbalance.SessionGrant, err error) {
				require.IsType(t, &cloudbalance.ErrBadRequest{}, err)
				require.Equal(
					t,
					"Admin can only impersonate customers",
					cloudbalance.Message(err),
				)
			},
		},
		{
			name:     "nested impersonation",
			username: "admin",
			password: "admin123",
			nested:   true,
			targetID: testCustomerID,
			assertions: func(_ cloudbalance.SessionGrant, err error) {
				require.IsType(t, &cloudbalance.ErrBadRequest{}, err)
				require.Equal(
					t,
					"Cannot create nested impersonation sessions",
					cloudbalance.Message(err),
				)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			s := newTestService(t)
			p := login(t, s, testCase.username, testCase.password)
			if testCase.nested {
				grant, err := s.Impersonate(p, testCustomerID)
				require.NoError(t, err)
				p, err = s.authenticate(grant.SessionToken)
				require.NoError(t, err)
				require.True(t, p.impersonating)
			}
			testCase.assertions(s.Impersonate(p, testCase.targetID))
		})
	}
}

func TestRevertImpersonation(t *testing.T) {
	t.Run("not an impersonation session", func(t *testing.T) {
		s := newTestService(t)
		p := login(t, s, "admin", "admin123")
		_, err := s.RevertImpersonation(p)
		require.IsType(t, &cloudbalance.ErrBadRequest{}, err)
	})

	t.Run("original session still alive", func(t *testing.T) {
		s := newTestService(t)
		admin := login(t, s, "admin", "admin123")
		grant, err := s.Impersonate(admin, testCustomerID)
		require.NoError(t, err)
		customer, err := s.authenticate(grant.SessionToken)
		require.NoError(t, err)
		grant, err = s.RevertImpersonation(customer)
		require.NoError(t, err)
		require.Equal(t, admin.token, grant.SessionToken)
		require.Equal(t, testAdminID, grant.UserID)
		_, err = s.authenticate(customer.token)
		require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
	})

	t.Run("original session expired", func(t *testing.T) {
		s := newTestService(t)
		now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return now }
		admin := login(t, s, "admin", "admin123")
		grant, err := s.Impersonate(admin, testCustomerID)
		require.NoError(t, err)
		// Keep the impersonation session alive while the admin's lapses.
		var customer principal
		for i := 0; i < 3; i++ {
			now = now.Add(10 * time.Minute)
			customer, err = s.authenticate(grant.SessionToken)
			require.NoError(t, err)
		}
		grant, err = s.RevertImpersonation(customer)
		require.NoError(t, err)
		require.NotEqual(t, admin.token, grant.SessionToken)
		require.Equal(t, testAdminID, grant.UserID)
		_, err = s.authenticate(grant.SessionToken)
		require.NoError(t, err)
	})
}

func TestPasswordReset(t *testing.T) {
	s := newTestService(t)
	p := login(t, s, DemoCustomerUsername, DemoPassword)

	msg := s.ForgotPassword("nobody@example.com")
	require.Equal(t, msg, s.ForgotPassword("Customer@cloudbalance.local"))
	_, ok := s.SentResetToken("nobody@example.com")
	require.False(t, ok)
	token, ok := s.SentResetToken("customer@cloudbalance.local")
	require.True(t, ok)

	require.NoError(t, s.ValidateResetToken(token))
	require.IsType(
		t,
		&cloudbalance.ErrBadRequest{},
		s.ValidateResetToken("bogus"),
	)

	require.NoError(t, s.ResetPassword(token, "newpassword"))
	// Tokens are single use and existing sessions end.
	require.IsType(
		t,
		&cloudbalance.ErrBadRequest{},
		s.ResetPassword(token, "another"),
	)
	_, err := s.authenticate(p.token)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
	login(t, s, DemoCustomerUsername, "newpassword")
}

func TestResetTokenExpiry(t *testing.T) {
	s := newTestService(t)
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.ForgotPassword("customer@cloudbalance.local")
	token, ok := s.SentResetToken("customer@cloudbalance.local")
	require.True(t, ok)
	now = now.Add(2 * time.Hour)
	require.IsType(
		t,
		&cloudbalance.ErrBadRequest{},
		s.ValidateResetToken(token),
	)
}

func TestCreateUser(t *testing.T) {
	s := newTestService(t)
	user, err := s.CreateUser(
		cloudbalance.UserCreate{
			Username:   "newcustomer",
			Password:   "secret1",
			FirstName:  "New",
			LastName:   "Customer",
			Email:      "new@example.com",
			Role:       cloudbalance.RoleCustomer,
			AccountIDs: []int64{3},
		},
	)
	require.NoError(t, err)
	require.Equal(t, int64(4), user.ID)
	require.Len(t, user.AssignedAccounts, 1)
	require.Empty(t, s.ListOrphanedAccounts())

	_, err = s.CreateUser(
		cloudbalance.UserCreate{
			Username: "newcustomer",
			Password: "secret1",
			Email:    "other@example.com",
			Role:     cloudbalance.RoleCustomer,
		},
	)
	require.IsType(t, &cloudbalance.ErrConflict{}, err)

	_, err = s.CreateUser(
		cloudbalance.UserCreate{
			Username:   "reader",
			Password:   "secret1",
			Email:      "reader@example.com",
			Role:       cloudbalance.RoleReadOnly,
			AccountIDs: []int64{1},
		},
	)
	require.IsType(t, &cloudbalance.ErrBadRequest{}, err)
}

func TestUpdateUserOwnRole(t *testing.T) {
	s := newTestService(t)
	admin := login(t, s, "admin", "admin123")
	_, err := s.UpdateUser(
		admin,
		testAdminID,
		cloudbalance.UserUpdate{Role: cloudbalance.RoleReadOnly},
	)
	require.IsType(t, &cloudbalance.ErrBadRequest{}, err)

	user, err := s.UpdateUser(
		admin,
		testCustomerID,
		cloudbalance.UserUpdate{Role: cloudbalance.RoleReadOnly},
	)
	require.NoError(t, err)
	require.Equal(t, cloudbalance.RoleReadOnly, user.Role)
	require.Empty(t, user.AssignedAccounts)
}

func TestRejectedUpdateLeavesUserUnchanged(t *testing.T) {
	testCases := []struct {
		name       string
		update     cloudbalance.UserUpdate
		assertions func(t *testing.T, err error)
	}{
		{
			name: "email taken",
			update: cloudbalance.UserUpdate{
				Username: "renamed",
				Email:    "readonly@cloudbalance.local",
				Role:     cloudbalance.RoleReadOnly,
			},
			assertions: func(t *testing.T, err error) {
				require.IsType(t, &cloudbalance.ErrConflict{}, err)
			},
		},
		{
			name: "username taken",
			update: cloudbalance.UserUpdate{
				FirstName: "Renamed",
				Username:  DemoReadOnlyUsername,
			},
			assertions: func(t *testing.T, err error) {
				require.IsType(t, &cloudbalance.ErrConflict{}, err)
			},
		},
		{
			name: "unknown account",
			update: cloudbalance.UserUpdate{
				Username:   "renamed",
				AccountIDs: []int64{42},
			},
			assertions: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
		{
			name: "accounts for a non-customer role",
			update: cloudbalance.UserUpdate{
				Role:       cloudbalance.RoleAdmin,
				AccountIDs: []int64{1},
			},
			assertions: func(t *testing.T, err error) {
				require.IsType(t, &cloudbalance.ErrBadRequest{}, err)
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			s := newTestService(t)
			admin := login(t, s, "admin", "admin123")
			before, err := s.GetUser(testCustomerID)
			require.NoError(t, err)
			_, err = s.UpdateUser(admin, testCustomerID, testCase.update)
			testCase.assertions(t, err)
			after, err := s.GetUser(testCustomerID)
			require.NoError(t, err)
			require.Equal(t, before, after)
			login(t, s, DemoCustomerUsername, DemoPassword)
		})
	}
}

func TestAccountAccess(t *testing.T) {
	s := newTestService(t)
	customer := login(t, s, DemoCustomerUsername, DemoPassword)

	_, err := s.GetAccount(customer, 1)
	require.NoError(t, err)
	_, err = s.GetAccount(customer, 3)
	require.IsType(t, &cloudbalance.ErrAuthorization{}, err)

	accounts, err := s.ListAccessibleAccounts(customer, testCustomerID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	_, err = s.ListAccessibleAccounts(customer, testAdminID)
	require.IsType(t, &cloudbalance.ErrAuthorization{}, err)

	_, err = s.SetAccountActive(1, false)
	require.NoError(t, err)
	_, err = s.EC2Instances(customer, 1)
	require.IsType(t, &cloudbalance.ErrBadRequest{}, err)
	instances, err := s.EC2Instances(customer, 2)
	require.NoError(t, err)
	require.Len(t, instances, 2)
	require.Equal(t, []string{"234567890123"}, s.AvailableAccounts(customer))
}

func TestCostData(t *testing.T) {
	s := newTestService(t)
	s.costRecords = nil
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	s.AddCostRecords(
		CostRecord{Date: march, AccountID: "123456789012", Service: "EC2", Region: "us-east-1", Cost: 10},
		CostRecord{Date: april, AccountID: "123456789012", Service: "EC2", Region: "us-east-1", Cost: 5},
		CostRecord{Date: march, AccountID: "234567890123", Service: "S3", Region: "us-west-2", Cost: 2},
		CostRecord{Date: march, AccountID: "345678901234", Service: "RDS", Region: "eu-west-1", Cost: 100},
	)
	filter := cloudbalance.CostFilter{
		StartDate: cloudbalance.NewDate(2024, time.March, 1),
		EndDate:   cloudbalance.NewDate(2024, time.April, 30),
	}

	admin := login(t, s, "admin", "admin123")
	report, err := s.CostData(admin, filter)
	require.NoError(t, err)
	require.Equal(t, 4, report.TotalRecords)
	require.Equal(t, []string{"2024-03", "2024-04"}, report.TimeUnits)
	require.Equal(t, "RDS", report.Groups[0].Key)
	require.Equal(t, 112.0, report.Totals["2024-03"])

	customer := login(t, s, DemoCustomerUsername, DemoPassword)
	report, err = s.CostData(customer, filter)
	require.NoError(t, err)
	require.Equal(t, 3, report.TotalRecords)
	require.Len(t, report.Groups, 2)
	require.Equal(t, "EC2", report.Groups[0].Key)
	require.Equal(t, 15.0, report.Groups[0].Total)

	filter.GroupBy = "Region"
	filter.Services = []string{"S3"}
	report, err = s.CostData(customer, filter)
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)
	require.Equal(t, "us-west-2", report.Groups[0].Key)

	filter.GroupBy = "Color"
	_, err = s.CostData(customer, filter)
	require.IsType(t, &cloudbalance.ErrBadRequest{}, err)

	values, err := s.FilterValues(customer, "Service")
	require.NoError(t, err)
	require.Equal(t, []string{"EC2", "S3"}, values)
}
