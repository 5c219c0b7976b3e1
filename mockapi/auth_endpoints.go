package mockapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/krancour/cloudbalance"
)

type authEndpoints struct {
	*baseEndpoints
}

func (a *authEndpoints) register(router *mux.Router) {
	router.HandleFunc("/auth/login", a.login).Methods(http.MethodPost)
	router.HandleFunc(
		"/auth/logout",
		a.tokenAuth().Decorate(a.logout),
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/auth/check",
		a.tokenAuth().Decorate(a.check),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/auth/forgot-password",
		a.forgotPassword,
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/auth/validate-reset-token",
		a.validateResetToken,
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/auth/reset-password",
		a.resetPassword,
	).Methods(http.MethodPost)
}

func (a *authEndpoints) login(w http.ResponseWriter, r *http.Request) {
	credentials := cloudbalance.Credentials{}
	a.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.CredentialsSchema,
			reqBodyObj:          &credentials,
			endpointLogic: func() (interface{}, error) {
				return a.service.Login(credentials)
			},
			successMsg: "Login successful",
		},
	)
}

func (a *authEndpoints) logout(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				a.service.Logout(principalFromContext(r.Context()))
				return nil, nil
			},
			successMsg: "Logout successful",
		},
	)
}

func (a *authEndpoints) check(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return nil, nil
			},
			successMsg: "Authenticated",
		},
	)
}

func (a *authEndpoints) forgotPassword(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Email string `json:"email"`
	}{}
	a.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.ForgotPasswordSchema,
			reqBodyObj:          &body,
			endpointLogic: func() (interface{}, error) {
				return messageResponse{
					message: a.service.ForgotPassword(body.Email),
				}, nil
			},
		},
	)
}

func (a *authEndpoints) validateResetToken(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				if err := a.service.ValidateResetToken(
					r.URL.Query().Get("token"),
				); err != nil {
					return nil, err
				}
				return true, nil
			},
			successMsg: "Token is valid",
		},
	)
}

func (a *authEndpoints) resetPassword(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}{}
	a.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.ResetPasswordSchema,
			reqBodyObj:          &body,
			endpointLogic: func() (interface{}, error) {
				return nil, a.service.ResetPassword(body.Token, body.NewPassword)
			},
			successMsg: "Password has been reset successfully",
		},
	)
}
