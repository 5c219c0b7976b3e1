package mockapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/krancour/cloudbalance"
)

type accountEndpoints struct {
	*baseEndpoints
}

func (a *accountEndpoints) register(router *mux.Router) {
	adminOrReadOnly := a.tokenAuth(
		cloudbalance.RoleAdmin,
		cloudbalance.RoleReadOnly,
	)
	admin := a.tokenAuth(cloudbalance.RoleAdmin)
	anyRole := a.tokenAuth(cloudbalance.Roles...)

	router.HandleFunc(
		"/accounts",
		adminOrReadOnly.Decorate(a.list),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/accounts",
		admin.Decorate(a.create),
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/accounts/orphaned",
		adminOrReadOnly.Decorate(a.listOrphaned),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/accounts/user/{userID:[0-9]+}",
		adminOrReadOnly.Decorate(a.listByUser),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/accounts/user/{userID:[0-9]+}/accessible",
		anyRole.Decorate(a.listAccessible),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/accounts/{id:[0-9]+}",
		anyRole.Decorate(a.get),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/accounts/{id:[0-9]+}",
		admin.Decorate(a.update),
	).Methods(http.MethodPut)
	router.HandleFunc(
		"/accounts/{id:[0-9]+}/status",
		admin.Decorate(a.setActive),
	).Methods(http.MethodPut)
}

func (a *accountEndpoints) list(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return a.service.ListAccounts(), nil
			},
		},
	)
}

func (a *accountEndpoints) listOrphaned(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return a.service.ListOrphanedAccounts(), nil
			},
		},
	)
}

func (a *accountEndpoints) listByUser(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				userID, err := idVar(r, "userID")
				if err != nil {
					return nil, err
				}
				return a.service.ListAccountsByUser(userID)
			},
		},
	)
}

func (a *accountEndpoints) listAccessible(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				userID, err := idVar(r, "userID")
				if err != nil {
					return nil, err
				}
				return a.service.ListAccessibleAccounts(
					principalFromContext(r.Context()),
					userID,
				)
			},
		},
	)
}

func (a *accountEndpoints) get(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				id, err := idVar(r, "id")
				if err != nil {
					return nil, err
				}
				return a.service.GetAccount(principalFromContext(r.Context()), id)
			},
		},
	)
}

func (a *accountEndpoints) create(w http.ResponseWriter, r *http.Request) {
	accountCreate := cloudbalance.CloudAccountCreate{}
	a.serveAPIRequest(
		apiRequest{
			w:                   w,
			r:                   r,
			reqBodySchemaLoader: cloudbalance.CloudAccountCreateSchema,
			reqBodyObj:          &accountCreate,
			endpointLogic: func() (interface{}, error) {
				return a.service.CreateAccount(accountCreate)
			},
			successCode: http.StatusCreated,
			successMsg:  "Cloud account created successfully",
		},
	)
}

func (a *accountEndpoints) update(w http.ResponseWriter, r *http.Request) {
	accountUpdate := cloudbalance.CloudAccountUpdate{}
	a.serveAPIRequest(
		apiRequest{
			w:          w,
			r:          r,
			reqBodyObj: &accountUpdate,
			endpointLogic: func() (interface{}, error) {
				id, err := idVar(r, "id")
				if err != nil {
					return nil, err
				}
				return a.service.UpdateAccount(id, accountUpdate)
			},
			successMsg: "Cloud account updated successfully",
		},
	)
}

func (a *accountEndpoints) setActive(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				id, err := idVar(r, "id")
				if err != nil {
					return nil, err
				}
				active, err := strconv.ParseBool(r.URL.Query().Get("active"))
				if err != nil {
					return nil, cloudbalance.NewErrBadRequest(
						"Query parameter active must be true or false",
					)
				}
				account, err := a.service.SetAccountActive(id, active)
				if err != nil {
					return nil, err
				}
				msg := "Cloud account deactivated successfully"
				if active {
					msg = "Cloud account activated successfully"
				}
				return messageResponse{message: msg, data: account}, nil
			},
		},
	)
}
