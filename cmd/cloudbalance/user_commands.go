package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/assignments"
	"github.com/krancour/cloudbalance/authz"
	"github.com/krancour/cloudbalance/impersonation"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var userProfileFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    flagUsername,
		Aliases: []string{"u"},
		Usage:   "The user's login name",
	},
	&cli.StringFlag{
		Name:    flagPassword,
		Aliases: []string{"p"},
		Usage:   "The user's password; at least 6 characters",
	},
	&cli.StringFlag{
		Name:  flagFirstName,
		Usage: "The user's first name",
	},
	&cli.StringFlag{
		Name:  flagLastName,
		Usage: "The user's last name",
	},
	&cli.StringFlag{
		Name:    flagEmail,
		Aliases: []string{"e"},
		Usage:   "The user's email address",
	},
	&cli.StringFlag{
		Name:    flagRole,
		Aliases: []string{"r"},
		Usage:   "The user's role; one of ADMIN, READ_ONLY, CUSTOMER",
	},
	&cli.Int64SliceFlag{
		Name:    flagAccount,
		Aliases: []string{"a"},
		Usage: "Assign the cloud account with the specified ID; customers " +
			"only; may be repeated",
	},
}

var userCommand = &cli.Command{
	Name:  "user",
	Usage: "Manage users",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "Create a new user",
			Flags: append(
				[]cli.Flag{cliFlagOutput},
				userProfileFlags...,
			),
			Action: userCreate,
		},
		{
			Name:   "get",
			Usage:  "Retrieve a user",
			Flags:  []cli.Flag{cliFlagID, cliFlagOutput},
			Action: userGet,
		},
		{
			Name:  "list",
			Usage: "Retrieve all users",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name: flagImpersonable,
					Usage: "List only the users the current session could " +
						"impersonate",
				},
				cliFlagOutput,
			},
			Action: userList,
		},
		{
			Name:  "update",
			Usage: "Update a user; omitted fields are left unchanged",
			Flags: append(
				[]cli.Flag{cliFlagID, cliFlagOutput},
				userProfileFlags...,
			),
			Action: userUpdate,
		},
		{
			Name:  "accounts",
			Usage: "Manage a customer's cloud account assignments",
			Subcommands: []*cli.Command{
				{
					Name: "set",
					Usage: "Assign exactly the specified cloud accounts to a " +
						"customer",
					Flags: []cli.Flag{
						cliFlagID,
						&cli.Int64SliceFlag{
							Name:    flagAccount,
							Aliases: []string{"a"},
							Usage: "The ID of a cloud account the customer should " +
								"see; may be repeated; omit to remove all",
						},
					},
					Action: userAccountsSet,
				},
			},
		},
	},
}

func userCreate(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	role, err := roleFlag(c)
	if err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.UsersPath)
	if err != nil {
		return err
	}

	user, err := client.Users().Create(
		c.Context,
		cloudbalance.UserCreate{
			Username:   c.String(flagUsername),
			Password:   c.String(flagPassword),
			FirstName:  c.String(flagFirstName),
			LastName:   c.String(flagLastName),
			Email:      c.String(flagEmail),
			Role:       role,
			AccountIDs: c.Int64Slice(flagAccount),
		},
	)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	fmt.Printf("Created user %d.\n\n", user.ID)
	return printUser(output, user)
}

func userGet(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.UsersPath)
	if err != nil {
		return err
	}

	user, err := client.Users().Get(c.Context, c.Int64(flagID))
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	return printUser(output, user)
}

func userList(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.UsersPath)
	if err != nil {
		return err
	}

	users, err := client.Users().List(c.Context)
	if err != nil {
		return checkErr(c.Context, store, err)
	}
	if c.Bool(flagImpersonable) {
		users = impersonation.NewController(store).Candidates(users)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}

	return printOutput(output, users, func(table *uitable.Table) {
		table.AddRow("ID", "USERNAME", "NAME", "EMAIL", "ROLE", "ACCOUNTS", "AGE")
		for _, user := range users {
			table.AddRow(
				user.ID,
				user.Username,
				user.Identity().Name(),
				user.Email,
				user.Role.Short(),
				len(user.AssignedAccounts),
				age(user.Created),
			)
		}
	})
}

func userUpdate(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	var role cloudbalance.Role
	if c.String(flagRole) != "" {
		var err error
		if role, err = roleFlag(c); err != nil {
			return err
		}
	}

	store, client, err := getAuthorizedSession(c, authz.UsersPath)
	if err != nil {
		return err
	}

	update := cloudbalance.UserUpdate{
		Username:  c.String(flagUsername),
		Password:  c.String(flagPassword),
		FirstName: c.String(flagFirstName),
		LastName:  c.String(flagLastName),
		Email:     c.String(flagEmail),
		Role:      role,
	}
	if c.IsSet(flagAccount) {
		update.AccountIDs = c.Int64Slice(flagAccount)
	}
	user, err := client.Users().Update(c.Context, c.Int64(flagID), update)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	fmt.Printf("Updated user %d.\n\n", user.ID)
	return printUser(output, user)
}

func userAccountsSet(c *cli.Context) error {
	store, client, err := getAuthorizedSession(c, authz.UsersPath)
	if err != nil {
		return err
	}

	user, plan, err := assignments.Set(
		c.Context,
		client.Users(),
		c.Int64(flagID),
		c.Int64Slice(flagAccount),
	)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	if plan.Empty() {
		fmt.Printf("Accounts assigned to %s are unchanged.\n", user.Username)
		return nil
	}
	fmt.Printf(
		"Assigned %v and removed %v for %s.\n",
		plan.Add,
		plan.Remove,
		user.Username,
	)
	return nil
}

func roleFlag(c *cli.Context) (cloudbalance.Role, error) {
	role, ok := cloudbalance.ParseRole(c.String(flagRole))
	if !ok {
		return role, errors.Errorf(
			"unrecognized role %q; supported roles: ADMIN, READ_ONLY, CUSTOMER",
			c.String(flagRole),
		)
	}
	return role, nil
}

func printUser(output string, user cloudbalance.User) error {
	return printOutput(output, user, func(table *uitable.Table) {
		table.AddRow("ID", "USERNAME", "NAME", "EMAIL", "ROLE", "AGE")
		table.AddRow(
			user.ID,
			user.Username,
			user.Identity().Name(),
			user.Email,
			user.Role.Short(),
			age(user.Created),
		)
		if len(user.AssignedAccounts) > 0 {
			table.AddRow("")
			table.AddRow("ACCOUNT ID", "AWS ACCOUNT", "NAME", "REGION")
			for _, account := range user.AssignedAccounts {
				table.AddRow(
					account.ID,
					account.AccountID,
					account.AccountName,
					account.Region,
				)
			}
		}
	})
}
