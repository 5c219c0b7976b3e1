package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/mockapi"
	"github.com/krancour/cloudbalance/session"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// setup starts a mock API server and points the CLI's configuration at it
// and at a session file in a temporary directory.
func setup(t *testing.T) *session.FileStorage {
	service, err := mockapi.NewService(
		mockapi.Config{
			SessionTimeout:    15 * time.Minute,
			ResetTokenTimeout: time.Hour,
			SeedAdminUsername: "admin",
			SeedAdminPassword: "admin123",
			SeedDemoData:      true,
			PasswordHashCost:  bcrypt.MinCost,
		},
	)
	require.NoError(t, err)
	server := httptest.NewServer(
		mockapi.NewServer(mockapi.Config{}, service).Handler(),
	)
	t.Cleanup(server.Close)
	sessionFile := filepath.Join(t.TempDir(), "session")
	t.Setenv("CLOUDBALANCE_API_ADDRESS", server.URL+"/api")
	t.Setenv("CLOUDBALANCE_SESSION_BACKEND", sessionBackendFile)
	t.Setenv("CLOUDBALANCE_SESSION_FILE", sessionFile)
	return session.NewFileStorage(sessionFile)
}

func run(args ...string) error {
	return newApp().Run(append([]string{"cloudbalance"}, args...))
}

func loadSnapshot(t *testing.T, storage *session.FileStorage) session.Snapshot {
	snap, err := storage.Load(context.Background())
	require.NoError(t, err)
	return snap
}

func TestLoginAndImpersonation(t *testing.T) {
	storage := setup(t)

	require.Equal(t, errNotLoggedIn, run("whoami"))

	require.NoError(t, run("login", "-u", "admin", "-p", "admin123"))
	snap := loadSnapshot(t, storage)
	require.NotEmpty(t, snap.SessionToken)
	require.Equal(t, "admin", snap.User.Username)
	adminToken := snap.SessionToken

	require.Error(t, run("login", "-u", "admin", "-p", "admin123"))
	require.NoError(t, run("whoami", "-o", "json"))
	require.NoError(t, run("user", "list", "--impersonable"))

	require.NoError(t, run("impersonate", "3"))
	snap = loadSnapshot(t, storage)
	require.True(t, snap.IsImpersonating)
	require.Equal(t, adminToken, snap.OriginalAdminSessionToken)
	require.Equal(t, cloudbalance.RoleCustomer, snap.User.Role)

	// Customers may not manage users, even by way of impersonation.
	require.Error(t, run("user", "list"))
	require.NoError(t, run("cost", "accounts"))
	require.Error(t, run("impersonate", "3"))

	require.NoError(t, run("revert"))
	snap = loadSnapshot(t, storage)
	require.False(t, snap.IsImpersonating)
	require.Equal(t, "admin", snap.User.Username)

	require.NoError(t, run("logout"))
	require.True(t, loadSnapshot(t, storage).Empty())
	require.NoError(t, run("logout"))
}

func TestLoginFailure(t *testing.T) {
	storage := setup(t)
	err := run("login", "-u", "admin", "-p", "wrong")
	require.Error(t, err)
	require.Equal(t, "Invalid username or password", err.Error())
	require.True(t, loadSnapshot(t, storage).Empty())
}

func TestImpersonateNonCustomer(t *testing.T) {
	storage := setup(t)
	require.NoError(t, run("login", "-u", "admin", "-p", "admin123"))
	err := run("impersonate", "2")
	require.Error(t, err)
	require.Equal(t, "Admin can only impersonate customers", err.Error())
	require.False(t, loadSnapshot(t, storage).IsImpersonating)
}

func TestDeadSessionIsCleared(t *testing.T) {
	storage := setup(t)
	require.NoError(t, run("login", "-u", "admin", "-p", "admin123"))
	snap := loadSnapshot(t, storage)
	// Invalidate the token behind the CLI's back.
	require.NoError(
		t,
		cloudbalance.NewAuthClient(
			os.Getenv("CLOUDBALANCE_API_ADDRESS"),
			nil,
			false,
		).Logout(context.Background(), snap.SessionToken),
	)
	err := run("user", "list")
	require.Error(t, err)
	require.True(t, cloudbalance.IsAuthError(err))
	require.True(t, loadSnapshot(t, storage).Empty())
}

func TestRoleGating(t *testing.T) {
	setup(t)
	require.NoError(
		t,
		run("login", "-u", mockapi.DemoReadOnlyUsername, "-p", mockapi.DemoPassword),
	)
	require.NoError(t, run("user", "list", "-o", "yaml"))
	require.NoError(t, run("account", "orphaned"))
	err := run("account", "deactivate", "--id", "1")
	require.Error(t, err)
	require.Equal(t, "READ_ONLY users may not use this command", err.Error())
	require.NoError(t, run("aws", "ec2", "1"))
	require.NoError(t, run("route", "check", "/onboarding"))
}

func TestAccountAssignment(t *testing.T) {
	setup(t)
	require.NoError(t, run("login", "-u", "admin", "-p", "admin123"))
	require.NoError(t, run("user", "accounts", "set", "--id", "3", "-a", "2", "-a", "3"))
	require.NoError(t, run("user", "get", "--id", "3"))
	require.Error(t, run("user", "accounts", "set", "--id", "2", "-a", "1"))
}

func TestUnknownSessionBackend(t *testing.T) {
	setup(t)
	t.Setenv("CLOUDBALANCE_SESSION_BACKEND", "carrier-pigeon")
	require.Error(t, run("whoami"))
}

func TestValidateOutputFormat(t *testing.T) {
	for _, format := range []string{"table", "YAML", "json"} {
		require.NoError(t, validateOutputFormat(format))
	}
	require.Error(t, validateOutputFormat("xml"))
}

func TestTransitionErr(t *testing.T) {
	store := session.NewStore(
		session.NewMemoryStorage(),
		func(cloudbalance.TokenSource) session.Gateway { return nil },
	)
	superseded := session.ErrStaleResponse
	// Nothing recorded: the returned error is reported as is.
	require.Equal(t, superseded, transitionErr(store, superseded))

	store.RecordError(cloudbalance.NewErrConflict("Email is already in use"))
	require.EqualError(
		t,
		transitionErr(store, superseded),
		"Email is already in use",
	)
}

func TestTraceTransitions(t *testing.T) {
	store := session.NewStore(
		session.NewMemoryStorage(),
		func(cloudbalance.TokenSource) session.Gateway { return nil },
	)
	stop := traceTransitions(store)
	store.RecordError(cloudbalance.NewErrValidation("bad input"))
	store.ClearError()
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.Fail(t, "tracing did not stop")
	}
}
