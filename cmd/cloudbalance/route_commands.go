package main

import (
	"fmt"

	"github.com/krancour/cloudbalance/authz"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var routeCommand = &cli.Command{
	Name:  "route",
	Usage: "Inspect dashboard routes",
	Subcommands: []*cli.Command{
		{
			Name:      "check",
			Usage:     "Show whether the current session may open a dashboard route",
			ArgsUsage: "PATH",
			Action:    routeCheck,
		},
	},
}

func routeCheck(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("exactly one PATH is required")
	}
	path := c.Args().First()

	store, _, err := getSession(c)
	if err != nil {
		return err
	}

	switch decision, target := authz.DefaultGuard().Resolve(
		store.State(),
		path,
	); decision {
	case authz.Allow:
		fmt.Printf("%s: allowed\n", path)
	case authz.RedirectToLogin, authz.RedirectToDefault:
		fmt.Printf("%s: redirected to %s\n", path, target)
	case authz.NotFound:
		fmt.Printf("%s: not found\n", path)
	default:
		fmt.Printf("%s: %s\n", path, decision)
	}
	return nil
}
