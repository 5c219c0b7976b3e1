package main

import "github.com/urfave/cli/v2"

const (
	flagAccount   = "account"
	flagEmail     = "email"
	flagEnd       = "end"
	flagFirstName = "first-name"
	flagGroupBy   = "group-by"
	flagID        = "id"
	flagImpersonable = "impersonable"
	flagInsecure  = "insecure"
	flagLastName  = "last-name"
	flagName      = "name"
	flagOutput    = "output"
	flagPassword  = "password"
	flagProvider  = "provider"
	flagRegion    = "region"
	flagRole      = "role"
	flagARN       = "arn"
	flagServer    = "server"
	flagService   = "service"
	flagStart     = "start"
	flagUser      = "user"
	flagUsername  = "username"
	flagVerbose   = "verbose"
)

var (
	cliFlagOutput = &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage: "Return output in the specified format; supported formats: table, " +
			"yaml, json",
		Value: "table",
	}
	cliFlagID = &cli.Int64Flag{
		Name:     flagID,
		Aliases:  []string{"i"},
		Usage:    "The numeric ID of the object (required)",
		Required: true,
	}
)
