package cloudbalance

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestIsAuthError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		isAuth bool
	}{
		{
			name:   "nil",
			err:    nil,
			isAuth: false,
		},
		{
			name:   "authentication",
			err:    NewErrAuthentication("expired"),
			isAuth: true,
		},
		{
			name:   "authorization",
			err:    NewErrAuthorization("denied"),
			isAuth: true,
		},
		{
			name:   "wrapped authentication",
			err:    errors.Wrap(NewErrAuthentication("expired"), "error listing users"),
			isAuth: true,
		},
		{
			name:   "not found",
			err:    NewErrNotFound("User not found"),
			isAuth: false,
		},
		{
			name:   "network",
			err:    &ErrNetwork{Reason: "connection refused"},
			isAuth: false,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.isAuth, IsAuthError(testCase.err))
		})
	}
}

func TestMessage(t *testing.T) {
	require.Equal(t, "", Message(nil))
	require.Equal(
		t,
		"Can only impersonate customer users",
		Message(
			errors.Wrap(
				NewErrConflict("Can only impersonate customer users"),
				"error impersonating",
			),
		),
	)
	require.Equal(
		t,
		"username and password are required",
		Message(NewErrValidation("username and password are required", "detail")),
	)
	require.Equal(
		t,
		"Received 502 from API server.",
		Message(&ErrServer{StatusCode: 502}),
	)
	require.Equal(
		t,
		"Could not reach API server: dial failed",
		Message(&ErrNetwork{Reason: "dial failed"}),
	)
}

func TestErrValidationError(t *testing.T) {
	require.Equal(
		t,
		"Invalid request: bad",
		NewErrValidation("bad").Error(),
	)
	require.Equal(
		t,
		"Invalid request: bad:\n  0. one\n  1. two",
		NewErrValidation("bad", "one", "two").Error(),
	)
}

func TestErrBadRequestError(t *testing.T) {
	err := &ErrBadRequest{
		Reason: "Validation failed",
		Details: map[string]string{
			"username": "is required",
			"email":    "is malformed",
		},
	}
	require.Equal(
		t,
		"Bad request: Validation failed:\n  email: is malformed\n  username: is required",
		err.Error(),
	)
}
