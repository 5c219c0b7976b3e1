package mockapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/krancour/cloudbalance"
)

// costEndpoints answer without the envelope, as the real API server does.
type costEndpoints struct {
	*baseEndpoints
}

func (c *costEndpoints) register(router *mux.Router) {
	anyRole := c.tokenAuth(cloudbalance.Roles...)
	router.HandleFunc(
		"/cost-explorer/data",
		anyRole.Decorate(c.data),
	).Methods(http.MethodPost)
	router.HandleFunc(
		"/cost-explorer/filter-values/{field}",
		anyRole.Decorate(c.filterValues),
	).Methods(http.MethodGet)
	router.HandleFunc(
		"/cost-explorer/available-accounts",
		anyRole.Decorate(c.availableAccounts),
	).Methods(http.MethodGet)
}

func (c *costEndpoints) data(w http.ResponseWriter, r *http.Request) {
	filter := cloudbalance.CostFilter{}
	c.serveAPIRequest(
		apiRequest{
			w:          w,
			r:          r,
			reqBodyObj: &filter,
			endpointLogic: func() (interface{}, error) {
				return c.service.CostData(principalFromContext(r.Context()), filter)
			},
			raw: true,
		},
	)
}

func (c *costEndpoints) filterValues(w http.ResponseWriter, r *http.Request) {
	c.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return c.service.FilterValues(
					principalFromContext(r.Context()),
					mux.Vars(r)["field"],
				)
			},
			raw: true,
		},
	)
}

func (c *costEndpoints) availableAccounts(
	w http.ResponseWriter,
	r *http.Request,
) {
	c.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				return c.service.AvailableAccounts(principalFromContext(r.Context())), nil
			},
			raw: true,
		},
	)
}

type awsEndpoints struct {
	*baseEndpoints
}

func (a *awsEndpoints) register(router *mux.Router) {
	router.HandleFunc(
		"/aws-services/{kind:ec2|rds|asg}/{accountID:[0-9]+}",
		a.tokenAuth(cloudbalance.Roles...).Decorate(a.list),
	).Methods(http.MethodGet)
}

func (a *awsEndpoints) list(w http.ResponseWriter, r *http.Request) {
	a.serveAPIRequest(
		apiRequest{
			w: w,
			r: r,
			endpointLogic: func() (interface{}, error) {
				accountID, err := strconv.ParseInt(mux.Vars(r)["accountID"], 10, 64)
				if err != nil {
					return nil, cloudbalance.NewErrBadRequest("Invalid account ID")
				}
				p := principalFromContext(r.Context())
				switch mux.Vars(r)["kind"] {
				case "ec2":
					return a.service.EC2Instances(p, accountID)
				case "rds":
					return a.service.RDSInstances(p, accountID)
				default:
					return a.service.AutoScalingGroups(p, accountID)
				}
			},
			successMsg: "Resources fetched successfully",
		},
	)
}
