package main

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/krancour/cloudbalance/redis"
	"github.com/krancour/cloudbalance/session"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const envconfigPrefix = "CLOUDBALANCE"

const (
	sessionBackendFile  = "file"
	sessionBackendRedis = "redis"
)

type config struct {
	APIAddress string `envconfig:"API_ADDRESS" default:"http://localhost:8080/api"`
	Insecure   bool   `envconfig:"INSECURE"`
	// SessionBackend selects where the session is kept between invocations:
	// "file" or "redis".
	SessionBackend string `envconfig:"SESSION_BACKEND" default:"file"`
	SessionFile    string `envconfig:"SESSION_FILE"`
}

// getConfig reads CLOUDBALANCE_* environment variables, then applies any
// global flags on top.
func getConfig(c *cli.Context) (config, error) {
	cfg := config{}
	if err := envconfig.Process(envconfigPrefix, &cfg); err != nil {
		return cfg, errors.Wrap(err, "error reading configuration from environment")
	}
	if server := c.String(flagServer); server != "" {
		cfg.APIAddress = server
	}
	if c.Bool(flagInsecure) {
		cfg.Insecure = true
	}
	return cfg, nil
}

func getStorage(cfg config) (session.Storage, error) {
	switch cfg.SessionBackend {
	case sessionBackendFile:
		path := cfg.SessionFile
		if path == "" {
			var err error
			if path, err = session.DefaultFilePath(); err != nil {
				return nil, err
			}
		}
		return session.NewFileStorage(path), nil
	case sessionBackendRedis:
		redisConfig, err := redis.ConfigFromEnvironment()
		if err != nil {
			return nil, err
		}
		return redis.NewSessionStorage(
			redisConfig.Client(),
			redisConfig.Prefix,
		), nil
	}
	return nil, errors.Errorf(
		"unrecognized session backend %q; supported backends: %s, %s",
		cfg.SessionBackend,
		sessionBackendFile,
		sessionBackendRedis,
	)
}
