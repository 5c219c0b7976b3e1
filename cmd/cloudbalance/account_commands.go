package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/authz"
	"github.com/urfave/cli/v2"
)

var accountCommand = &cli.Command{
	Name:  "account",
	Usage: "Manage onboarded cloud accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "accessible",
			Usage: "List the active accounts a user can see",
			Flags: []cli.Flag{
				&cli.Int64Flag{
					Name:  flagUser,
					Usage: "List accounts for the user with the specified ID; defaults to the current user",
				},
				cliFlagOutput,
			},
			Action: accountAccessible,
		},
		{
			Name:   "activate",
			Usage:  "Resume cost and resource collection for an account",
			Flags:  []cli.Flag{cliFlagID},
			Action: accountActivate,
		},
		{
			Name:  "create",
			Usage: "Onboard a new AWS account",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagID,
					Aliases:  []string{"i"},
					Usage:    "The 12-digit AWS account ID (required)",
					Required: true,
				},
				&cli.StringFlag{
					Name:     flagName,
					Aliases:  []string{"n"},
					Usage:    "A display name for the account (required)",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagARN,
					Usage: "The ARN of the role CloudBalance assumes in the account",
				},
				&cli.StringFlag{
					Name:  flagProvider,
					Usage: "The cloud provider",
					Value: "AWS",
				},
				&cli.StringFlag{
					Name:  flagRegion,
					Usage: "The account's primary region",
					Value: "us-east-1",
				},
				cliFlagOutput,
			},
			Action: accountCreate,
		},
		{
			Name:   "deactivate",
			Usage:  "Suspend cost and resource collection for an account",
			Flags:  []cli.Flag{cliFlagID},
			Action: accountDeactivate,
		},
		{
			Name:   "get",
			Usage:  "Retrieve an account",
			Flags:  []cli.Flag{cliFlagID, cliFlagOutput},
			Action: accountGet,
		},
		{
			Name:   "list",
			Usage:  "Retrieve all accounts",
			Flags:  []cli.Flag{cliFlagOutput},
			Action: accountList,
		},
		{
			Name:   "orphaned",
			Usage:  "Retrieve accounts not assigned to any customer",
			Flags:  []cli.Flag{cliFlagOutput},
			Action: accountOrphaned,
		},
	},
}

func accountList(c *cli.Context) error {
	return listAccounts(
		c,
		authz.UsersPath,
		func(client cloudbalance.Client) ([]cloudbalance.CloudAccount, error) {
			return client.CloudAccounts().List(c.Context)
		},
	)
}

func accountOrphaned(c *cli.Context) error {
	return listAccounts(
		c,
		authz.UsersPath,
		func(client cloudbalance.Client) ([]cloudbalance.CloudAccount, error) {
			return client.CloudAccounts().ListOrphaned(c.Context)
		},
	)
}

func accountAccessible(c *cli.Context) error {
	return listAccounts(
		c,
		authz.AWSServicesPath,
		func(client cloudbalance.Client) ([]cloudbalance.CloudAccount, error) {
			userID := c.Int64(flagUser)
			if userID == 0 {
				user, err := client.Auth().CurrentUser(c.Context)
				if err != nil {
					return nil, err
				}
				userID = user.ID
			}
			return client.CloudAccounts().ListAccessible(c.Context, userID)
		},
	)
}

func listAccounts(
	c *cli.Context,
	route string,
	list func(cloudbalance.Client) ([]cloudbalance.CloudAccount, error),
) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, route)
	if err != nil {
		return err
	}

	accounts, err := list(client)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return nil
	}

	return printOutput(output, accounts, func(table *uitable.Table) {
		addAccountHeader(table)
		for _, account := range accounts {
			addAccountRow(table, account)
		}
	})
}

func accountGet(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.AWSServicesPath)
	if err != nil {
		return err
	}

	account, err := client.CloudAccounts().Get(c.Context, c.Int64(flagID))
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	return printOutput(output, account, func(table *uitable.Table) {
		addAccountHeader(table)
		addAccountRow(table, account)
	})
}

func accountCreate(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.OnboardingPath)
	if err != nil {
		return err
	}

	account, err := client.CloudAccounts().Create(
		c.Context,
		cloudbalance.CloudAccountCreate{
			AccountID:   c.String(flagID),
			AccountName: c.String(flagName),
			ARN:         c.String(flagARN),
			Provider:    c.String(flagProvider),
			Region:      c.String(flagRegion),
		},
	)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	fmt.Printf("Onboarded account %q.\n\n", account.AccountName)
	return printOutput(output, account, func(table *uitable.Table) {
		addAccountHeader(table)
		addAccountRow(table, account)
	})
}

func accountActivate(c *cli.Context) error {
	return setAccountActive(c, true)
}

func accountDeactivate(c *cli.Context) error {
	return setAccountActive(c, false)
}

func setAccountActive(c *cli.Context, active bool) error {
	store, client, err := getAuthorizedSession(c, authz.OnboardingPath)
	if err != nil {
		return err
	}

	account, err := client.CloudAccounts().SetActive(
		c.Context,
		c.Int64(flagID),
		active,
	)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	if active {
		fmt.Printf("Account %q is active.\n", account.AccountName)
	} else {
		fmt.Printf("Account %q is inactive.\n", account.AccountName)
	}
	return nil
}

func addAccountHeader(table *uitable.Table) {
	table.AddRow("ID", "AWS ACCOUNT", "NAME", "PROVIDER", "REGION", "ACTIVE?", "AGE")
}

func addAccountRow(table *uitable.Table, account cloudbalance.CloudAccount) {
	table.AddRow(
		account.ID,
		account.AccountID,
		account.AccountName,
		account.Provider,
		account.Region,
		account.IsActive(),
		age(account.Created),
	)
}
