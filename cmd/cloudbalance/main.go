package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/krancour/cloudbalance/pkg/version"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()
	fmt.Println()
	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Printf("\n%s\n\n", err)
		os.Exit(1)
	}
	fmt.Println()
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "cloudbalance"
	app.Usage = "Explore cloud costs and manage CloudBalance"
	app.Version = fmt.Sprintf(
		"%s -- commit %s",
		version.Version(),
		version.Commit(),
	)
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagServer,
			Aliases: []string{"s"},
			Usage: "Use the API server at the specified address; overrides " +
				"CLOUDBALANCE_API_ADDRESS",
		},
		&cli.BoolFlag{
			Name:    flagInsecure,
			Aliases: []string{"k"},
			Usage:   "Allow insecure API server connections when using TLS",
		},
		&cli.BoolFlag{
			Name:  flagVerbose,
			Usage: "Log session transitions to stderr",
		},
	}
	app.Before = configureLogging
	app.Commands = []*cli.Command{
		accountCommand,
		awsCommand,
		costCommand,
		impersonateCommand,
		loginCommand,
		logoutCommand,
		passwordCommand,
		revertCommand,
		routeCommand,
		userCommand,
		whoamiCommand,
	}
	return app
}

// configureLogging points glog at stderr. glog's flags are never parsed from
// the command line, so they are set directly.
func configureLogging(c *cli.Context) error {
	if err := flag.Set("logtostderr", "true"); err != nil {
		return err
	}
	if c.Bool(flagVerbose) {
		return flag.Set("v", "2")
	}
	return nil
}
