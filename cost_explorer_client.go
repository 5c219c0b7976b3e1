package cloudbalance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// CostFilterFields are the dimensions the cost explorer can list distinct
// values for.
var CostFilterFields = []string{
	"Service",
	"InstanceType",
	"AccountID",
	"UsageType",
	"Platform",
	"Region",
	"UsageTypeGroup",
	"PurchaseOption",
	"ApiOperation",
	"Resource",
	"AvailabilityZone",
	"Tenancy",
	"ChargeType",
}

// CostExplorerClient reads cost data aggregated by the API server. Results are
// scoped to the accounts the current session's user may access.
type CostExplorerClient interface {
	GetCostData(context.Context, CostFilter) (CostReport, error)
	// GetFilterValues lists the distinct values of one of CostFilterFields.
	GetFilterValues(ctx context.Context, field string) ([]string, error)
	GetAvailableAccounts(context.Context) ([]string, error)
}

type costExplorerClient struct {
	*baseClient
}

func NewCostExplorerClient(
	apiAddress string,
	tokens TokenSource,
	allowInsecure bool,
) CostExplorerClient {
	return &costExplorerClient{
		baseClient: newBaseClient(apiAddress, tokens, allowInsecure),
	}
}

func (c *costExplorerClient) GetCostData(
	ctx context.Context,
	filter CostFilter,
) (CostReport, error) {
	report := CostReport{}
	if filter.StartDate.IsZero() || filter.EndDate.IsZero() {
		return report, NewErrValidation("start and end dates are required")
	}
	if filter.EndDate.Before(filter.StartDate.Time) {
		return report, NewErrValidation("end date precedes start date")
	}
	return report, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:     http.MethodPost,
			path:       "cost-explorer/data",
			reqBodyObj: filter,
			respObj:    &report,
			raw:        true,
		},
	)
}

func (c *costExplorerClient) GetFilterValues(
	ctx context.Context,
	field string,
) ([]string, error) {
	values := []string{}
	if !isCostFilterField(field) {
		return values, NewErrValidation(
			fmt.Sprintf("unknown filter field %q", field),
			"valid fields are: "+strings.Join(CostFilterFields, ", "),
		)
	}
	return values, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    fmt.Sprintf("cost-explorer/filter-values/%s", field),
			respObj: &values,
			raw:     true,
		},
	)
}

func (c *costExplorerClient) GetAvailableAccounts(
	ctx context.Context,
) ([]string, error) {
	accounts := []string{}
	return accounts, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    "cost-explorer/available-accounts",
			respObj: &accounts,
			raw:     true,
		},
	)
}

func isCostFilterField(field string) bool {
	for _, f := range CostFilterFields {
		if f == field {
			return true
		}
	}
	return false
}
