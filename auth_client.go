package cloudbalance

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// AuthClient is the gateway for every API operation that creates, replaces or
// destroys a session, plus the password reset flow.
type AuthClient interface {
	// Login exchanges credentials for a session token and the identity it
	// belongs to.
	Login(context.Context, Credentials) (SessionGrant, error)
	// Logout invalidates the given session token server-side.
	Logout(ctx context.Context, token string) error
	// ForgotPassword asks the API server to email a reset link. The API server
	// answers identically whether or not the address is registered; the
	// returned string is its message.
	ForgotPassword(ctx context.Context, email string) (string, error)
	// ValidateResetToken reports whether a password reset token is still
	// usable.
	ValidateResetToken(ctx context.Context, token string) (bool, error)
	// ResetPassword sets a new password using a valid reset token.
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	// CurrentUser returns the user the current session token belongs to.
	CurrentUser(context.Context) (User, error)
	// Impersonate obtains a session token for the target user. Only
	// administrators may impersonate, and only customers may be impersonated.
	Impersonate(ctx context.Context, targetUserID int64) (SessionGrant, error)
	// RevertImpersonation ends the impersonation the current session token
	// belongs to and obtains a fresh token for the original administrator.
	RevertImpersonation(context.Context) (SessionGrant, error)
}

type authClient struct {
	*baseClient
}

func NewAuthClient(
	apiAddress string,
	tokens TokenSource,
	allowInsecure bool,
) AuthClient {
	return &authClient{
		baseClient: newBaseClient(apiAddress, tokens, allowInsecure),
	}
}

func (a *authClient) Login(
	ctx context.Context,
	credentials Credentials,
) (SessionGrant, error) {
	grant := SessionGrant{}
	if err := validate(
		CredentialsSchema,
		credentials,
		"username and password are required",
	); err != nil {
		return grant, err
	}
	if err := a.executeAPIRequest(
		ctx,
		apiRequest{
			method:     http.MethodPost,
			path:       "auth/login",
			reqBodyObj: credentials,
			anonymous:  true,
			respObj:    &grant,
		},
	); err != nil {
		return grant, err
	}
	return grant, grant.validate()
}

func (a *authClient) Logout(ctx context.Context, token string) error {
	if token == "" {
		return NewErrValidation("no session token to invalidate")
	}
	return a.executeAPIRequest(
		ctx,
		apiRequest{
			method:      http.MethodPost,
			path:        "auth/logout",
			reqBodyObj:  struct{}{},
			bearerToken: token,
		},
	)
}

func (a *authClient) ForgotPassword(
	ctx context.Context,
	email string,
) (string, error) {
	body := struct {
		Email string `json:"email"`
	}{
		Email: email,
	}
	if err := validate(
		ForgotPasswordSchema,
		body,
		"a valid email address is required",
	); err != nil {
		return "", err
	}
	var msg string
	return msg, a.executeAPIRequest(
		ctx,
		apiRequest{
			method:     http.MethodPost,
			path:       "auth/forgot-password",
			reqBodyObj: body,
			anonymous:  true,
			respMsg:    &msg,
		},
	)
}

func (a *authClient) ValidateResetToken(
	ctx context.Context,
	token string,
) (bool, error) {
	if token == "" {
		return false, NewErrValidation("a reset token is required")
	}
	var valid bool
	err := a.executeAPIRequest(
		ctx,
		apiRequest{
			method:      http.MethodPost,
			path:        "auth/validate-reset-token",
			queryParams: map[string]string{"token": token},
			anonymous:   true,
			respObj:     &valid,
		},
	)
	// The API server answers an invalid or expired token with a 400.
	if _, ok := errors.Cause(err).(*ErrBadRequest); ok {
		return false, nil
	}
	return valid, err
}

func (a *authClient) ResetPassword(
	ctx context.Context,
	token string,
	newPassword string,
) (string, error) {
	body := struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}{
		Token:       token,
		NewPassword: newPassword,
	}
	if err := validate(
		ResetPasswordSchema,
		body,
		"a reset token and a password of at least 6 characters are required",
	); err != nil {
		return "", err
	}
	var msg string
	return msg, a.executeAPIRequest(
		ctx,
		apiRequest{
			method:     http.MethodPost,
			path:       "auth/reset-password",
			reqBodyObj: body,
			anonymous:  true,
			respMsg:    &msg,
		},
	)
}

func (a *authClient) CurrentUser(ctx context.Context) (User, error) {
	user := User{}
	return user, a.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    "users/me",
			respObj: &user,
		},
	)
}

func (a *authClient) Impersonate(
	ctx context.Context,
	targetUserID int64,
) (SessionGrant, error) {
	grant := SessionGrant{}
	body := struct {
		TargetUserID int64 `json:"targetUserId"`
	}{
		TargetUserID: targetUserID,
	}
	if err := validate(
		ImpersonateSchema,
		body,
		"a target user ID is required",
	); err != nil {
		return grant, err
	}
	if err := a.executeAPIRequest(
		ctx,
		apiRequest{
			method:     http.MethodPost,
			path:       "users/impersonate",
			reqBodyObj: body,
			respObj:    &grant,
		},
	); err != nil {
		return grant, asConflict(err)
	}
	return grant, grant.validate()
}

func (a *authClient) RevertImpersonation(
	ctx context.Context,
) (SessionGrant, error) {
	grant := SessionGrant{}
	if err := a.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodPost,
			path:    "users/revert-impersonation",
			respObj: &grant,
		},
	); err != nil {
		return grant, asConflict(err)
	}
	return grant, grant.validate()
}

// asConflict converts the 400s the impersonation endpoints use to report
// business rule violations (nested impersonation, non-customer targets) into
// conflicts.
func asConflict(err error) error {
	if badReq, ok := errors.Cause(err).(*ErrBadRequest); ok {
		return NewErrConflict(badReq.Reason)
	}
	return err
}
