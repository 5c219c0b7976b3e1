package mockapi

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const envconfigPrefix = "MOCKAPI"

// Config represents configuration options for the mock API server.
type Config struct {
	Port int `envconfig:"PORT" default:"8080"`
	// SessionTimeout is how long a session survives without activity. Every
	// authenticated request pushes expiry out by this much again.
	SessionTimeout    time.Duration `envconfig:"SESSION_TIMEOUT" default:"15m"`
	ResetTokenTimeout time.Duration `envconfig:"RESET_TOKEN_TIMEOUT" default:"1h"`
	SeedAdminUsername string        `envconfig:"SEED_ADMIN_USERNAME" default:"admin"`
	SeedAdminPassword string        `envconfig:"SEED_ADMIN_PASSWORD" default:"admin123"`
	// SeedDemoData adds read-only and customer users, accounts, cost records
	// and AWS resources on top of the administrator.
	SeedDemoData     bool     `envconfig:"SEED_DEMO_DATA" default:"true"`
	PasswordHashCost int      `envconfig:"PASSWORD_HASH_COST" default:"10"`
	AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// ConfigFromEnvironment returns a Config populated from MOCKAPI_* environment
// variables.
func ConfigFromEnvironment() (Config, error) {
	c := Config{}
	if err := envconfig.Process(envconfigPrefix, &c); err != nil {
		return c, errors.Wrap(
			err,
			"error getting mock API server configuration from environment",
		)
	}
	if c.PasswordHashCost < bcrypt.MinCost || c.PasswordHashCost > bcrypt.MaxCost {
		return c, errors.Errorf(
			"password hash cost %d is outside the range %d-%d",
			c.PasswordHashCost,
			bcrypt.MinCost,
			bcrypt.MaxCost,
		)
	}
	return c, nil
}
