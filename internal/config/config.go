// Package config loads application configuration from environment
// variables. A .env file in the working directory is read first when
// present; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS (optional)
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	DBAutoMigrate  bool   // DB_AUTO_MIGRATE, default true
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST
	LogLevel       string // LOG_LEVEL (debug, info, warn, error)
	RabbitURL      string // RABBITMQ_URL or AMQP_URL; empty disables event publishing
	// CatalogUTCOffsetHours shifts "today" for the showtime listings,
	// CATALOG_UTC_OFFSET_HOURS, default 3.
	CatalogUTCOffsetHours int
}

// LoadDotEnv reads .env (or the given files) into the environment without
// overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads configuration values from the environment. Every missing
// or malformed required variable is reported in the returned error.
func Load() (Config, error) {
	var r reader
	cfg := Config{
		Env:                   r.must("APP_ENV"),
		Port:                  r.must("APP_PORT"),
		DBUser:                r.must("DB_USER"),
		DBPass:                os.Getenv("DB_PASS"),
		DBHost:                r.must("DB_HOST"),
		DBPort:                r.must("DB_PORT"),
		DBName:                r.must("DB_NAME"),
		DBAutoMigrate:         envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:             r.must("JWT_SECRET"),
		AccessTTLMin:          r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:        r.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:            r.mustInt("BCRYPT_COST"),
		LogLevel:              envStr("LOG_LEVEL", "info"),
		RabbitURL:             envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		CatalogUTCOffsetHours: envInt("CATALOG_UTC_OFFSET_HOURS", 3),
	}
	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type reader struct{ errs []error }

// must retrieves the value of a required environment variable.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must but converts the value into an integer.
func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
