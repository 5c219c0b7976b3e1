package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gosuri/uitable"
	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/authz"
	"github.com/krancour/cloudbalance/impersonation"
	"github.com/krancour/cloudbalance/session"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/ssh/terminal"
)

var loginCommand = &cli.Command{
	Name:  "login",
	Usage: "Log in to CloudBalance",
	Description: "Prompts for any credentials not given as flags when run " +
		"interactively.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagUsername,
			Aliases: []string{"u"},
			Usage:   "Log in as the specified user",
		},
		&cli.StringFlag{
			Name:    flagPassword,
			Aliases: []string{"p"},
			Usage:   "Specify the password for non-interactive login",
		},
	},
	Action: login,
}

var logoutCommand = &cli.Command{
	Name:   "logout",
	Usage:  "Log out of CloudBalance",
	Action: logout,
}

var whoamiCommand = &cli.Command{
	Name:   "whoami",
	Usage:  "Show who the current session belongs to",
	Flags:  []cli.Flag{cliFlagOutput},
	Action: whoami,
}

var impersonateCommand = &cli.Command{
	Name:      "impersonate",
	Usage:     "Act as a customer; administrators only",
	ArgsUsage: "USER_ID",
	Action:    impersonate,
}

var revertCommand = &cli.Command{
	Name:   "revert",
	Usage:  "Stop impersonating and return to the administrator's session",
	Action: revert,
}

var passwordCommand = &cli.Command{
	Name:  "password",
	Usage: "Recover a forgotten password",
	Subcommands: []*cli.Command{
		{
			Name:      "forgot",
			Usage:     "Request a password reset link",
			ArgsUsage: "EMAIL",
			Action:    passwordForgot,
		},
		{
			Name:      "validate",
			Usage:     "Check whether a password reset token is still usable",
			ArgsUsage: "TOKEN",
			Action:    passwordValidate,
		},
		{
			Name:      "reset",
			Usage:     "Set a new password using a password reset token",
			ArgsUsage: "TOKEN",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Specify the new password for non-interactive use",
				},
			},
			Action: passwordReset,
		},
	},
}

func isInteractive() bool {
	return terminal.IsTerminal(int(os.Stdin.Fd()))
}

func login(c *cli.Context) error {
	username := c.String(flagUsername)
	password := c.String(flagPassword)

	store, _, err := getSession(c)
	if err != nil {
		return err
	}
	defer traceTransitions(store)()
	state := store.State()
	if decision, _ := authz.DefaultGuard().Resolve(
		state,
		authz.LoginPath,
	); decision != authz.Allow {
		return errors.Errorf(
			"you are already logged in as %s; please use `cloudbalance logout` "+
				"first",
			state.User.Username,
		)
	}

	if username == "" || password == "" {
		if !isInteractive() {
			return errors.New(
				"username and password are required when not running interactively",
			)
		}
	}
	if username == "" {
		if err = survey.AskOne(
			&survey.Input{Message: "Username"},
			&username,
			survey.WithValidator(survey.Required),
		); err != nil {
			return err
		}
	}
	if password == "" {
		if err = survey.AskOne(
			&survey.Password{Message: "Password"},
			&password,
			survey.WithValidator(survey.Required),
		); err != nil {
			return err
		}
	}

	if err = store.Login(
		c.Context,
		cloudbalance.Credentials{
			Username: username,
			Password: password,
		},
	); err != nil {
		return transitionErr(store, err)
	}
	user := store.State().User
	fmt.Printf("You are logged in as %s (%s).\n", user.Name(), user.Role.Short())
	return nil
}

func logout(c *cli.Context) error {
	store, _, err := getSession(c)
	if err != nil {
		return err
	}
	defer traceTransitions(store)()
	if store.State().Phase() == session.LoggedOut {
		fmt.Println("You are not logged in.")
		return nil
	}
	if err := store.Logout(c.Context); err != nil {
		return errors.Wrap(err, "error clearing session")
	}
	fmt.Println("You have been logged out.")
	return nil
}

func whoami(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	store, _, err := getAuthorizedSession(c, authz.DefaultPath)
	if err != nil {
		return err
	}
	state := store.State()

	obj := struct {
		*cloudbalance.Identity
		Impersonating bool `json:"impersonating"`
	}{
		Identity:      state.User,
		Impersonating: state.IsImpersonating,
	}
	return printOutput(output, obj, func(table *uitable.Table) {
		table.AddRow("ID", "USERNAME", "NAME", "ROLE", "IMPERSONATING?")
		table.AddRow(
			state.User.ID,
			state.User.Username,
			state.User.Name(),
			state.User.Role.Short(),
			state.IsImpersonating,
		)
	})
}

func impersonate(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("exactly one USER_ID is required")
	}
	targetID, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return errors.Errorf("invalid user ID %q", c.Args().First())
	}

	store, client, err := getAuthorizedSession(c, authz.UsersPath)
	if err != nil {
		return err
	}
	defer traceTransitions(store)()
	controller := impersonation.NewController(store)

	target, err := client.Users().Get(c.Context, targetID)
	if err != nil {
		return checkErr(c.Context, store, err)
	}
	if err := controller.ImpersonateUser(c.Context, target); err != nil {
		return transitionErr(store, err)
	}
	fmt.Printf(
		"You are now impersonating %s. Use `cloudbalance revert` to return to "+
			"your own session.\n",
		store.State().User.Name(),
	)
	return nil
}

func revert(c *cli.Context) error {
	store, _, err := getAuthorizedSession(c, authz.DefaultPath)
	if err != nil {
		return err
	}
	defer traceTransitions(store)()
	if err := impersonation.NewController(store).Revert(c.Context); err != nil {
		return transitionErr(store, err)
	}
	fmt.Printf("You are %s again.\n", store.State().User.Name())
	return nil
}

// getAuthClient returns a client for the password recovery commands, which
// need no session.
func getAuthClient(c *cli.Context) (cloudbalance.AuthClient, error) {
	cfg, err := getConfig(c)
	if err != nil {
		return nil, err
	}
	return cloudbalance.NewAuthClient(cfg.APIAddress, nil, cfg.Insecure), nil
}

func passwordForgot(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("exactly one EMAIL is required")
	}
	client, err := getAuthClient(c)
	if err != nil {
		return err
	}
	msg, err := client.ForgotPassword(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func passwordValidate(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("exactly one TOKEN is required")
	}
	client, err := getAuthClient(c)
	if err != nil {
		return err
	}
	valid, err := client.ValidateResetToken(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	if !valid {
		return errors.New("the reset token is invalid or has expired")
	}
	fmt.Println("The reset token is valid.")
	return nil
}

func passwordReset(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("exactly one TOKEN is required")
	}
	password := c.String(flagPassword)
	if password == "" {
		if !isInteractive() {
			return errors.New(
				"a new password is required when not running interactively",
			)
		}
		var confirmation string
		for {
			if err := survey.AskOne(
				&survey.Password{Message: "New password"},
				&password,
				survey.WithValidator(survey.MinLength(6)),
			); err != nil {
				return err
			}
			if err := survey.AskOne(
				&survey.Password{Message: "Confirm new password"},
				&confirmation,
			); err != nil {
				return err
			}
			if password == confirmation {
				break
			}
			fmt.Println("Passwords do not match.")
		}
	}
	client, err := getAuthClient(c)
	if err != nil {
		return err
	}
	msg, err := client.ResetPassword(c.Context, c.Args().First(), password)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}
