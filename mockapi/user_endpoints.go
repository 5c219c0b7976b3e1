package mockapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/krancour/cloudbalance"
)

type userEndpoints struct {
	*baseEndpoints
}

func (u *userEndpoints) register(router *mux.Router) {
	adminOrReadOnly := u.tokenAuth(
		cloudbalance.RoleAdmin,
		cloudbalance.RoleReadOnly,
	)
	admin := u.tokenAuth(cloudbalance.RoleAdmin)

	router.HandleFunc(
		"/users/me",
		u.tokenAuth().Decorate(u.me),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/users/impersonate",
		u.tokenAuth().Decorate(u.impersonate),
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/users/revert-impersonation",
		u.tokenAuth().Decorate(u.revertImpersonation),
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/users",
		adminOrReadOnly.Decorate(u.list),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/users",
		admin.Decorate(u.create),
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/users/{id:[0-9]+}",
		adminOrReadOnly.Decorate(u.get),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/users/{id:[0-9]+}",
		admin.Decorate(u.update),
	).Methods(http.MethodPut)
	router.HandleFunc(
		"/users/{id:[0-9]+}/accounts",
		admin.Decorate(u.assignAccounts),
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/users/{id:[0-9]+}/accounts",
		admin.Decorate(u.removeAccounts),
	).Methods(http.MethodDelete)
}

func (u *userEndpoints) me(w http.ResponseWriter, r *http.Request) {
	u.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return principalFromContext(r.Context()).user, nil
			},
		},
	)
}

func (u *userEndpoints) impersonate(w http.ResponseWriter, r *http.Request) {
	body := struct {
		TargetUserID int64 `json:"targetUserId"`
	}{}
	u.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.ImpersonateSchema,
			reqBodyObj:          &body,
			endpointLogic: func() (interface{}, error) {
				return u.service.Impersonate(
					principalFromContext(r.Context()),
					body.TargetUserID,
				)
			},
			successMsg: "Successfully impersonating user",
		},
	)
}

func (u *userEndpoints) revertImpersonation(
	w http.ResponseWriter,
	r *http.Request,
) {
	u.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return u.service.RevertImpersonation(principalFromContext(r.Context()))
			},
			successMsg: "Successfully reverted to admin user",
		},
	)
}

func (u *userEndpoints) list(w http.ResponseWriter, r *http.Request) {
	u.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return u.service.ListUsers(), nil
			},
		},
	)
}

func (u *userEndpoints) create(w http.ResponseWriter, r *http.Request) {
	userCreate := cloudbalance.UserCreate{}
	u.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.UserCreateSchema,
			reqBodyObj:          &userCreate,
			endpointLogic: func() (interface{}, error) {
				return u.service.CreateUser(userCreate)
			},
			successCode: http.StatusCreated,
			successMsg:  "User created successfully",
		},
	)
}

func (u *userEndpoints) get(w http.ResponseWriter, r *http.Request) {
	u.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				id, err := idVar(r, "id")
				if err != nil {
					return nil, err
				}
				return u.service.GetUser(id)
			},
		},
	)
}

func (u *userEndpoints) update(w http.ResponseWriter, r *http.Request) {
	userUpdate := cloudbalance.UserUpdate{}
	u.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.UserUpdateSchema,
			reqBodyObj:          &userUpdate,
			endpointLogic: func() (interface{}, error) {
				id, err := idVar(r, "id")
				if err != nil {
					return nil, err
				}
				return u.service.UpdateUser(
					principalFromContext(r.Context()),
					id,
					userUpdate,
				)
			},
			successMsg: "User updated successfully",
		},
	)
}

func (u *userEndpoints) assignAccounts(w http.ResponseWriter, r *http.Request) {
	accountIDs := []int64{}
	u.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.AccountIDsSchema,
			reqBodyObj:          &accountIDs,
			endpointLogic: func() (interface{}, error) {
				id, err := idVar(r, "id")
				if err != nil {
					return nil, err
				}
				return u.service.AssignAccounts(id, accountIDs)
			},
			successMsg: "Accounts assigned successfully",
		},
	)
}

func (u *userEndpoints) removeAccounts(w http.ResponseWriter, r *http.Request) {
	accountIDs := []int64{}
	u.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.AccountIDsSchema,
			reqBodyObj:          &accountIDs,
			endpointLogic: func() (interface{}, error) {
				id, err := idVar(r, "id")
				if err != nil {
					return nil, err
				}
				return u.service.RemoveAccounts(id, accountIDs)
			},
			successMsg: "Accounts removed successfully",
		},
	)
}
