package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/krancour/cloudbalance/mockapi"
	"github.com/krancour/cloudbalance/pkg/version"
)

func main() {
	// We need to parse flags for glog-related options to take effect
	flag.Parse()

	glog.Infof(
		"Starting CloudBalance mock API server -- version %s -- commit %s",
		version.Version(),
		version.Commit(),
	)

	config, err := mockapi.ConfigFromEnvironment()
	if err != nil {
		glog.Fatal(err)
	}
	service, err := mockapi.NewService(config)
	if err != nil {
		glog.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	err = mockapi.NewServer(config, service).ListenAndServe(ctx)
	if err != nil && err != http.ErrServerClosed && err != context.Canceled {
		glog.Fatal(err)
	}
	glog.Info("mock API server stopped")
}
