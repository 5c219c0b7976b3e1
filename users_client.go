package cloudbalance

import (
	"context"
	"fmt"
	"net/http"
)

// UsersClient manages CloudBalance users. Listing and retrieval require the
// ADMIN or READ_ONLY role; everything else requires ADMIN.
type UsersClient interface {
	List(context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(context.Context, UserCreate) (User, error)
	Update(ctx context.Context, id int64, update UserUpdate) (User, error)
	// AssignAccounts grants a customer access to additional cloud accounts.
	AssignAccounts(ctx context.Context, id int64, accountIDs []int64) (User, error)
	// RemoveAccounts revokes a customer's access to cloud accounts.
	RemoveAccounts(ctx context.Context, id int64, accountIDs []int64) (User, error)
}

type usersClient struct {
	*baseClient
}

func NewUsersClient(
	apiAddress string,
	tokens TokenSource,
	allowInsecure bool,
) UsersClient {
	return &usersClient{
		baseClient: newBaseClient(apiAddress, tokens, allowInsecure),
	}
}

func (u *usersClient) List(ctx context.Context) ([]User, error) {
	users := []User{}
	return users, u.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    "users",
			respObj: &users,
		},
	)
}

func (u *usersClient) Get(ctx context.Context, id int64) (User, error) {
	user := User{}
	return user, u.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    fmt.Sprintf("users/%d", id),
			respObj: &user,
		},
	)
}

func (u *usersClient) Create(
	ctx context.Context,
	userCreate UserCreate,
) (User, error) {
	user := User{}
	if err := validate(
		UserCreateSchema,
		userCreate,
		"invalid user",
	); err != nil {
		return user, err
	}
	return user, u.executeAPIRequest(
		ctx,
		apiRequest{
			method:      http.MethodPost,
			path:        "users",
			reqBodyObj:  userCreate,
			successCode: http.StatusCreated,
			respObj:     &user,
		},
	)
}

func (u *usersClient) Update(
	ctx context.Context,
	id int64,
	userUpdate UserUpdate,
) (User, error) {
	user := User{}
	if err := validate(
		UserUpdateSchema,
		userUpdate,
		"invalid user update",
	); err != nil {
		return user, err
	}
	return user, u.executeAPIRequest(
		ctx,
		apiRequest{
			method:     http.MethodPut,
			path:       fmt.Sprintf("users/%d", id),
			reqBodyObj: userUpdate,
			respObj:    &user,
		},
	)
}

func (u *usersClient) AssignAccounts(
	ctx context.Context,
	id int64,
	accountIDs []int64,
) (User, error) {
	return u.changeAccounts(ctx, http.MethodPost, id, accountIDs)
}

func (u *usersClient) RemoveAccounts(
	ctx context.Context,
	id int64,
	accountIDs []int64,
) (User, error) {
	return u.changeAccounts(ctx, http.MethodDelete, id, accountIDs)
}

func (u *usersClient) changeAccounts(
	ctx context.Context,
	method string,
	id int64,
	accountIDs []int64,
) (User, error) {
	user := User{}
	if err := validate(
		AccountIDsSchema,
		accountIDs,
		"at least one account ID is required",
	); err != nil {
		return user, err
	}
	return user, u.executeAPIRequest(
		ctx,
		apiRequest{
			method:     method,
			path:       fmt.Sprintf("users/%d/accounts", id),
			reqBodyObj: accountIDs,
			respObj:    &user,
		},
	)
}
