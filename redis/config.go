package redis

import (
	"crypto/tls"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envconfigPrefix = "REDIS"

// Config represents common configuration options for a Redis connection
type Config struct {
	Host      string `envconfig:"HOST" default:"localhost"`
	Port      int    `envconfig:"PORT" default:"6379"`
	Password  string `envconfig:"PASSWORD"`
	DB        int    `envconfig:"DB"`
	EnableTLS bool   `envconfig:"ENABLE_TLS"`
	// Prefix namespaces every key this process writes.
	Prefix string `envconfig:"PREFIX" default:"cloudbalance"`
}

// ConfigFromEnvironment returns a Config populated from REDIS_* environment
// variables.
func ConfigFromEnvironment() (Config, error) {
	c := Config{}
	err := envconfig.Process(envconfigPrefix, &c)
	return c, errors.Wrap(
		err,
		"error getting redis configuration from environment",
	)
}

// Client returns a connection to the Redis database described by the Config.
func (c Config) Client() *redis.Client {
	redisOpts := &redis.Options{
		Addr:       fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password:   c.Password,
		DB:         c.DB,
		MaxRetries: 5,
	}
	if c.EnableTLS {
		redisOpts.TLSConfig = &tls.Config{
			ServerName: c.Host,
		}
	}
	return redis.NewClient(redisOpts)
}
