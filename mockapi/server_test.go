package mockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/impersonation"
	"github.com/krancour/cloudbalance/session"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	service *Service
	server  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	service := newTestService(t)
	server := httptest.NewServer(NewServer(testConfig(), service).Handler())
	t.Cleanup(server.Close)
	return &testServer{
		service: service,
		server:  server,
	}
}

func (ts *testServer) apiAddress() string {
	return ts.server.URL + "/api"
}

func (ts *testServer) connect() (
	*session.Store,
	*session.MemoryStorage,
	cloudbalance.Client,
) {
	storage := session.NewMemoryStorage()
	store, client := session.Connect(ts.apiAddress(), false, storage)
	return store, storage, client
}

func (ts *testServer) loggedIn(
	t *testing.T,
	username string,
	password string,
) (*session.Store, cloudbalance.Client) {
	store, _, client := ts.connect()
	require.NoError(
		t,
		store.Login(
			context.Background(),
			cloudbalance.Credentials{Username: username, Password: password},
		),
	)
	return store, client
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(
		http.MethodOptions,
		ts.apiAddress()+"/auth/login",
		nil,
	)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(
		t,
		"http://localhost:3000",
		resp.Header.Get("Access-Control-Allow-Origin"),
	)
}

func TestValidationFailure(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(
		ts.apiAddress()+"/auth/login",
		"application/json",
		strings.NewReader(`{"username": ""}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	envelope := struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.False(t, envelope.Success)
	require.Equal(t, "Validation failed", envelope.Message)
	require.NotEmpty(t, envelope.Data)
}

func TestMalformedRequestBody(t *testing.T) {
	ts := newTestServer(t)
	store, _ := ts.loggedIn(t, "admin", "admin123")
	req, err := http.NewRequest(
		http.MethodPut,
		ts.apiAddress()+"/accounts/1",
		strings.NewReader(`{"accountName": `),
	)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+store.Token())
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListenAndServe(t *testing.T) {
	config := testConfig()
	config.Port = 0
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewServer(config, newTestService(t)).ListenAndServe(ctx)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "server did not shut down")
	}
}

func TestUnauthenticatedRequest(t *testing.T) {
	ts := newTestServer(t)
	client := cloudbalance.NewClient(ts.apiAddress(), nil, false)
	_, err := client.Users().List(context.Background())
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
	require.Equal(t, "Authentication required", cloudbalance.Message(err))
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	store, storage, client := ts.connect()

	require.NoError(
		t,
		store.Login(
			ctx,
			cloudbalance.Credentials{Username: "admin", Password: "admin123"},
		),
	)
	state := store.State()
	require.Equal(t, session.LoggedInAsSelf, state.Phase())
	require.Equal(t, cloudbalance.RoleAdmin, state.Role())
	adminToken := state.SessionToken

	me, err := client.Auth().CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "admin", me.Username)

	require.NoError(t, store.Impersonate(ctx, testCustomerID))
	state = store.State()
	require.Equal(t, session.LoggedInImpersonating, state.Phase())
	require.Equal(t, DemoCustomerUsername, state.User.Username)
	require.Equal(t, adminToken, state.OriginalAdminSessionToken)
	require.Equal(t, "true", storage.Entries()[session.KeyIsImpersonating])

	// Data calls now carry the impersonation token.
	me, err = client.Auth().CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, DemoCustomerUsername, me.Username)
	accounts, err := client.CostExplorer().GetAvailableAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"123456789012", "234567890123"}, accounts)

	require.NoError(t, store.RevertImpersonation(ctx))
	state = store.State()
	require.Equal(t, session.LoggedInAsSelf, state.Phase())
	require.Equal(t, "admin", state.User.Username)
	require.Empty(t, state.OriginalAdminSessionToken)
	_, ok := storage.Entries()[session.KeyIsImpersonating]
	require.False(t, ok)

	token := state.SessionToken
	require.NoError(t, store.Logout(ctx))
	require.Equal(t, session.LoggedOut, store.State().Phase())
	require.Empty(t, storage.Entries())
	_, err = cloudbalance.NewClient(
		ts.apiAddress(),
		cloudbalance.StaticToken(token),
		false,
	).Auth().CurrentUser(ctx)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
}

func TestLoginFailure(t *testing.T) {
	ts := newTestServer(t)
	store, _, _ := ts.connect()
	err := store.Login(
		context.Background(),
		cloudbalance.Credentials{Username: "admin", Password: "wrong"},
	)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
	state := store.State()
	require.Equal(t, session.LoggedOut, state.Phase())
	require.Equal(t, "Invalid username or password", state.Error)
}

func TestImpersonationRejections(t *testing.T) {
	testCases := []struct {
		name       string
		username   string
		password   string
		setup      func(*testing.T, *impersonation.Controller)
		targetID   int64
		assertions func(*testing.T, *session.Store, error)
	}{
		{
			name:     "target is not a customer",
			username: "admin",
			password: "admin123",
			targetID: testReadOnlyID,
			assertions: func(t *testing.T, store *session.Store, err error) {
				require.IsType(t, &cloudbalance.ErrConflict{}, err)
				state := store.State()
				require.Equal(t, session.LoggedInAsSelf, state.Phase())
				require.Equal(t, "Admin can only impersonate customers", state.Error)
			},
		},
		{
			name:     "self impersonation",
			username: "admin",
			password: "admin123",
			targetID: testAdminID,
			assertions: func(t *testing.T, store *session.Store, err error) {
				require.Equal(t, impersonation.ErrSelfImpersonation, err)
				state := store.State()
				require.Equal(t, session.LoggedInAsSelf, state.Phase())
				require.Equal(t, "Cannot impersonate yourself", state.Error)
			},
		},
		{
			name:     "nested impersonation is rejected locally",
			username: "admin",
			password: "admin123",
			setup: func(t *testing.T, c *impersonation.Controller) {
				require.NoError(t, c.Impersonate(context.Background(), testCustomerID))
			},
			targetID: testCustomerID,
			assertions: func(t *testing.T, store *session.Store, err error) {
				require.Equal(t, impersonation.ErrAlreadyImpersonating, err)
				state := store.State()
				require.Equal(t, session.LoggedInImpersonating, state.Phase())
				require.Equal(
					t,
					"Cannot create nested impersonation sessions",
					state.Error,
				)
			},
		},
		{
			name:     "non-admin is rejected locally",
			username: DemoReadOnlyUsername,
			password: DemoPassword,
			targetID: testCustomerID,
			assertions: func(t *testing.T, store *session.Store, err error) {
				require.Equal(t, impersonation.ErrNotAdmin, err)
				require.Equal(t, session.LoggedInAsSelf, store.State().Phase())
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ts := newTestServer(t)
			store, _ := ts.loggedIn(t, testCase.username, testCase.password)
			controller := impersonation.NewController(store)
			if testCase.setup != nil {
				testCase.setup(t, controller)
			}
			err := controller.Impersonate(context.Background(), testCase.targetID)
			testCase.assertions(t, store, err)
		})
	}
}

func TestImpersonateWithExpiredSession(t *testing.T) {
	ts := newTestServer(t)
	now := time.Now()
	ts.service.now = func() time.Time { return now }
	store, storage, _ := ts.connect()
	require.NoError(
		t,
		store.Login(
			context.Background(),
			cloudbalance.Credentials{Username: "admin", Password: "admin123"},
		),
	)
	now = now.Add(time.Hour)
	err := store.Impersonate(context.Background(), testCustomerID)
	require.IsType(t, &cloudbalance.ErrAuthentication{}, err)
	state := store.State()
	require.Equal(t, session.LoggedOut, state.Phase())
	require.NotEmpty(t, state.Error)
	require.Empty(t, storage.Entries())
}

func TestRevertWhenNotImpersonatingServerSide(t *testing.T) {
	ts := newTestServer(t)
	_, client := ts.loggedIn(t, "admin", "admin123")
	_, err := client.Auth().RevertImpersonation(context.Background())
	require.IsType(t, &cloudbalance.ErrConflict{}, err)
	require.Equal(
		t,
		"This is not an impersonation session",
		cloudbalance.Message(err),
	)
}

func TestRoleGating(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, customer := ts.loggedIn(t, DemoCustomerUsername, DemoPassword)
	_, err := customer.Users().List(ctx)
	require.IsType(t, &cloudbalance.ErrAuthorization{}, err)
	_, err = customer.CloudAccounts().Get(ctx, 3)
	require.IsType(t, &cloudbalance.ErrAuthorization{}, err)
	account, err := customer.CloudAccounts().Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "production", account.AccountName)

	_, readOnly := ts.loggedIn(t, DemoReadOnlyUsername, DemoPassword)
	users, err := readOnly.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	_, err = readOnly.Users().Update(
		ctx,
		testCustomerID,
		cloudbalance.UserUpdate{FirstName: "Nope"},
	)
	require.IsType(t, &cloudbalance.ErrAuthorization{}, err)
}

func TestUserManagement(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	_, admin := ts.loggedIn(t, "admin", "admin123")

	user, err := admin.Users().Create(
		ctx,
		cloudbalance.UserCreate{
			Username:  "jdoe",
			Password:  "secret1",
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     "jdoe@example.com",
			Role:      cloudbalance.RoleCustomer,
		},
	)
	require.NoError(t, err)
	require.Equal(t, "jdoe", user.Username)
	require.NotNil(t, user.Created)

	_, err = admin.Users().Create(
		ctx,
		cloudbalance.UserCreate{
			Username: "jdoe",
			Password: "secret1",
			Email:    "other@example.com",
			Role:     cloudbalance.RoleCustomer,
		},
	)
	require.IsType(t, &cloudbalance.ErrConflict{}, err)

	user, err = admin.Users().AssignAccounts(ctx, user.ID, []int64{3})
	require.NoError(t, err)
	require.Len(t, user.AssignedAccounts, 1)
	orphaned, err := admin.CloudAccounts().ListOrphaned(ctx)
	require.NoError(t, err)
	require.Empty(t, orphaned)

	user, err = admin.Users().RemoveAccounts(ctx, user.ID, []int64{3})
	require.NoError(t, err)
	require.Empty(t, user.AssignedAccounts)

	_, err = admin.Users().Update(
		ctx,
		testAdminID,
		cloudbalance.UserUpdate{Role: cloudbalance.RoleReadOnly},
	)
	require.IsType(t, &cloudbalance.ErrBadRequest{}, err)
	require.Equal(t, "Cannot change your own role", cloudbalance.Message(err))
}

func TestAccountManagement(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	_, admin := ts.loggedIn(t, "admin", "admin123")

	account, err := admin.CloudAccounts().Create(
		ctx,
		cloudbalance.CloudAccountCreate{
			AccountID:   "456789012345",
			AccountName: "analytics",
			ARN:         "arn:aws:iam::456789012345:role/CloudBalance",
			Provider:    "AWS",
			Region:      "us-east-2",
		},
	)
	require.NoError(t, err)
	require.True(t, account.IsActive())

	account, err = admin.CloudAccounts().SetActive(ctx, account.ID, false)
	require.NoError(t, err)
	require.False(t, account.IsActive())
	_, err = admin.AWSResources().EC2Instances(ctx, account.ID)
	require.IsType(t, &cloudbalance.ErrBadRequest{}, err)

	groups, err := admin.AWSResources().AutoScalingGroups(ctx, 1)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	accessible, err := admin.CloudAccounts().ListAccessible(ctx, testCustomerID)
	require.NoError(t, err)
	require.Len(t, accessible, 2)
}

func TestCostExplorerScoping(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	now := time.Now().UTC()
	filter := cloudbalance.CostFilter{
		StartDate: cloudbalance.NewDate(now.Year(), now.Month()-2, 1),
		EndDate:   cloudbalance.NewDate(now.Year(), now.Month(), 28),
	}

	_, admin := ts.loggedIn(t, "admin", "admin123")
	adminReport, err := admin.CostExplorer().GetCostData(ctx, filter)
	require.NoError(t, err)
	require.Len(t, adminReport.TimeUnits, 3)

	_, customer := ts.loggedIn(t, DemoCustomerUsername, DemoPassword)
	customerReport, err := customer.CostExplorer().GetCostData(ctx, filter)
	require.NoError(t, err)
	require.Less(t, customerReport.TotalRecords, adminReport.TotalRecords)

	values, err := customer.CostExplorer().GetFilterValues(ctx, "AccountID")
	require.NoError(t, err)
	require.Equal(t, []string{"123456789012", "234567890123"}, values)
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	auth := cloudbalance.NewAuthClient(ts.apiAddress(), nil, false)

	msg, err := auth.ForgotPassword(ctx, "customer@cloudbalance.local")
	require.NoError(t, err)
	require.NotEmpty(t, msg)
	token, ok := ts.service.SentResetToken("customer@cloudbalance.local")
	require.True(t, ok)

	valid, err := auth.ValidateResetToken(ctx, token)
	require.NoError(t, err)
	require.True(t, valid)
	valid, err = auth.ValidateResetToken(ctx, "bogus")
	require.NoError(t, err)
	require.False(t, valid)

	_, err = auth.ResetPassword(ctx, token, "brandnew")
	require.NoError(t, err)
	_, err = auth.Login(
		ctx,
		cloudbalance.Credentials{
			Username: DemoCustomerUsername,
			Password: "brandnew",
		},
	)
	require.NoError(t, err)
}
