// Package config loads the settings of the library CLI.
//
// Values are layered: built-in defaults, then an optional YAML file, then an optional
// .env file, then LIBRARY_* environment variables. Command-line flags are applied by
// the caller, which then calls Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"library-catalog/library"
)

// DefaultPath is read when no config file is named and it exists.
const DefaultPath = "library.yaml"

// Config is the full CLI configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LoanDays int            `yaml:"loanDays" validate:"gt=0,lte=365"`
	LogLevel string         `yaml:"logLevel" validate:"oneof=trace debug info warn error disabled"`
}

// DatabaseConfig selects and tunes the store.
type DatabaseConfig struct {
	Driver       string        `yaml:"driver" validate:"oneof=sqlite3 postgres mysql"`
	DSN          string        `yaml:"dsn" validate:"required_unless=Driver sqlite3"`
	Path         string        `yaml:"path" validate:"required_without=DSN"`
	Seed         bool          `yaml:"seed"`
	MaxOpenConns int           `yaml:"maxOpenConns" validate:"gte=0"`
	BusyTimeout  time.Duration `yaml:"busyTimeout" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:      library.DriverSQLite,
			Path:        "library.db",
			Seed:        true,
			BusyTimeout: 5 * time.Second,
		},
		LoanDays: library.DefaultLoanDays,
		LogLevel: "warn",
	}
}

// Load builds a Config from defaults, the YAML file at path (DefaultPath when empty and
// present), envFile (".env" when empty and present) and the environment. The result is
// not validated.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if envFile == "" {
		envFile = ".env"
		if _, err := os.Stat(envFile); err != nil {
			envFile = ""
		}
	}
	if envFile != "" {
		// Existing environment variables win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("LIBRARY_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("LIBRARY_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("LIBRARY_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LIBRARY_DB_SEED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LIBRARY_DB_SEED: %w", err)
		}
		cfg.Database.Seed = b
	}
	if v := os.Getenv("LIBRARY_DB_MAX_OPEN_CONNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LIBRARY_DB_MAX_OPEN_CONNS: %w", err)
		}
		cfg.Database.MaxOpenConns = n
	}
	if v := os.Getenv("LIBRARY_DB_BUSY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LIBRARY_DB_BUSY_TIMEOUT: %w", err)
		}
		cfg.Database.BusyTimeout = d
	}
	if v := os.Getenv("LIBRARY_LOAN_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LIBRARY_LOAN_DAYS: %w", err)
		}
		cfg.LoanDays = n
	}
	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks the assembled configuration.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			parts := make([]string, 0, len(ve))
			for _, fe := range ve {
				parts = append(parts, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid %s", strings.Join(parts, ", "))
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Store returns the connection settings for library.NewDatabase.
func (c Config) Store() library.Config {
	return library.Config{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		Path:         c.Database.Path,
		Seed:         c.Database.Seed,
		MaxOpenConns: c.Database.MaxOpenConns,
		BusyTimeout:  c.Database.BusyTimeout,
	}
}
