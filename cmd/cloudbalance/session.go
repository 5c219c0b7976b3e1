package main

import (
	"context"

	"github.com/golang/glog"
	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/authz"
	"github.com/krancour/cloudbalance/session"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var errNotLoggedIn = errors.New(
	"you are not logged in; please use `cloudbalance login` to continue",
)

// getSession restores the session saved by a previous invocation and returns
// it along with a client whose requests carry the session's token.
func getSession(c *cli.Context) (*session.Store, cloudbalance.Client, error) {
	cfg, err := getConfig(c)
	if err != nil {
		return nil, nil, err
	}
	storage, err := getStorage(cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error opening session storage")
	}
	store, client := session.Connect(cfg.APIAddress, cfg.Insecure, storage)
	if err := store.Rehydrate(c.Context); err != nil {
		return nil, nil, errors.Wrap(err, "error restoring session")
	}
	return store, client, nil
}

// getAuthorizedSession is getSession followed by a check that the session may
// enter the given route.
func getAuthorizedSession(
	c *cli.Context,
	route string,
) (*session.Store, cloudbalance.Client, error) {
	store, client, err := getSession(c)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(store.State(), route); err != nil {
		return nil, nil, err
	}
	return store, client, nil
}

func authorize(state session.State, route string) error {
	switch decision, _ := authz.DefaultGuard().Resolve(state, route); decision {
	case authz.Allow:
		return nil
	case authz.RedirectToLogin:
		return errNotLoggedIn
	case authz.RedirectToDefault:
		return errors.Errorf(
			"%s users may not use this command",
			state.Role().Short(),
		)
	default:
		return errors.Errorf(
			"cannot authorize %s: %s",
			route,
			decision,
		)
	}
}

// checkErr ends the local session when the API server no longer honors its
// token.
func checkErr(ctx context.Context, store *session.Store, err error) error {
	if err == nil || !cloudbalance.IsAuthError(err) {
		return err
	}
	if rerr := store.Reset(ctx); rerr != nil {
		glog.Warningf("error clearing rejected session: %s", rerr)
	}
	return errors.Wrap(
		err,
		"the session has ended; please use `cloudbalance login` to continue",
	)
}

// transitionErr returns the message a failed transition recorded in the
// session, or err itself when nothing was recorded, e.g. for a response that
// was superseded.
func transitionErr(store *session.Store, err error) error {
	if msg := store.State().Error; msg != "" {
		return errors.New(msg)
	}
	return err
}

// traceTransitions logs every state the session passes through until the
// returned function is called.
func traceTransitions(store *session.Store) func() {
	states, unsubscribe := store.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for state := range states {
			glog.V(2).Infof(
				"session: phase=%s loading=%t error=%q",
				state.Phase(),
				state.IsLoading,
				state.Error,
			)
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}
