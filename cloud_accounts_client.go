package cloudbalance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// CloudAccountsClient manages onboarded cloud accounts.
type CloudAccountsClient interface {
	List(context.Context) ([]CloudAccount, error)
	Get(ctx context.Context, id int64) (CloudAccount, error)
	// ListOrphaned returns accounts not assigned to any customer.
	ListOrphaned(context.Context) ([]CloudAccount, error)
	// ListByUser returns the accounts explicitly assigned to a user.
	ListByUser(ctx context.Context, userID int64) ([]CloudAccount, error)
	// ListAccessible returns every account a user may see, which for
	// administrators and read-only users is all of them.
	ListAccessible(ctx context.Context, userID int64) ([]CloudAccount, error)
	Create(context.Context, CloudAccountCreate) (CloudAccount, error)
	Update(
		ctx context.Context,
		id int64,
		update CloudAccountUpdate,
	) (CloudAccount, error)
	SetActive(ctx context.Context, id int64, active bool) (CloudAccount, error)
}

type cloudAccountsClient struct {
	*baseClient
}

func NewCloudAccountsClient(
	apiAddress string,
	tokens TokenSource,
	allowInsecure bool,
) CloudAccountsClient {
	return &cloudAccountsClient{
		baseClient: newBaseClient(apiAddress, tokens, allowInsecure),
	}
}

func (c *cloudAccountsClient) List(
	ctx context.Context,
) ([]CloudAccount, error) {
	return c.list(ctx, "accounts")
}

func (c *cloudAccountsClient) Get(
	ctx context.Context,
	id int64,
) (CloudAccount, error) {
	account := CloudAccount{}
	return account, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    fmt.Sprintf("accounts/%d", id),
			respObj: &account,
		},
	)
}

func (c *cloudAccountsClient) ListOrphaned(
	ctx context.Context,
) ([]CloudAccount, error) {
	return c.list(ctx, "accounts/orphaned")
}

func (c *cloudAccountsClient) ListByUser(
	ctx context.Context,
	userID int64,
) ([]CloudAccount, error) {
	return c.list(ctx, fmt.Sprintf("accounts/user/%d", userID))
}

func (c *cloudAccountsClient) ListAccessible(
	ctx context.Context,
	userID int64,
) ([]CloudAccount, error) {
	return c.list(ctx, fmt.Sprintf("accounts/user/%d/accessible", userID))
}

func (c *cloudAccountsClient) list(
	ctx context.Context,
	path string,
) ([]CloudAccount, error) {
	accounts := []CloudAccount{}
	return accounts, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    path,
			respObj: &accounts,
		},
	)
}

func (c *cloudAccountsClient) Create(
	ctx context.Context,
	accountCreate CloudAccountCreate,
) (CloudAccount, error) {
	account := CloudAccount{}
	if err := validate(
		CloudAccountCreateSchema,
		accountCreate,
		"invalid cloud account",
	); err != nil {
		return account, err
	}
	return account, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:      http.MethodPost,
			path:        "accounts",
			reqBodyObj:  accountCreate,
			successCode: http.StatusCreated,
			respObj:     &account,
		},
	)
}

func (c *cloudAccountsClient) Update(
	ctx context.Context,
	id int64,
	accountUpdate CloudAccountUpdate,
) (CloudAccount, error) {
	account := CloudAccount{}
	return account, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:     http.MethodPut,
			path:       fmt.Sprintf("accounts/%d", id),
			reqBodyObj: accountUpdate,
			respObj:    &account,
		},
	)
}

func (c *cloudAccountsClient) SetActive(
	ctx context.Context,
	id int64,
	active bool,
) (CloudAccount, error) {
	account := CloudAccount{}
	return account, c.executeAPIRequest(
		ctx,
		apiRequest{
			method:      http.MethodPut,
			path:        fmt.Sprintf("accounts/%d/status", id),
			queryParams: map[string]string{"active": strconv.FormatBool(active)},
			respObj:     &account,
		},
	)
}
