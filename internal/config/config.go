// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultShutdownTimeoutSeconds = 30
	defaultQueryTimeoutSeconds    = 5
	defaultEventsSubject          = "courtside.results"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
	// Postgres connection string; DATABASE_URL overrides it
	URL string `yaml:"url,omitempty"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	HTTP struct {
		AllowedOrigins         []string `yaml:"allowed_origins"`
		ShutdownTimeoutSeconds int      `yaml:"shutdown_timeout_seconds"`
		QueryTimeoutSeconds    int      `yaml:"query_timeout_seconds"`
	} `yaml:"http"`

	Audit struct {
		// Cron expression; empty disables the integrity audit
		Interval string `yaml:"interval"`
	} `yaml:"audit"`

	Mutations struct {
		// Toggles allowed per editor per minute; 0 disables limiting
		MaxPerMinute int `yaml:"max_per_minute"`
	} `yaml:"mutations"`

	Events struct {
		NATSURL string `yaml:"nats_url"`
		Subject string `yaml:"subject"`
	} `yaml:"events"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes yaml, overlays secrets from the environment, applies defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		cfg.Events.NATSURL = url
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.HTTP.ShutdownTimeoutSeconds <= 0 {
		c.HTTP.ShutdownTimeoutSeconds = defaultShutdownTimeoutSeconds
	}
	if c.HTTP.QueryTimeoutSeconds <= 0 {
		c.HTTP.QueryTimeoutSeconds = defaultQueryTimeoutSeconds
	}
	if c.Events.Subject == "" {
		c.Events.Subject = defaultEventsSubject
	}
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.App.SecretKey == "" && c.App.Environment != "development" {
		return fmt.Errorf("APP_SECRET_KEY is required outside development")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Audit.Interval != "" {
		if _, err := cron.ParseStandard(c.Audit.Interval); err != nil {
			return fmt.Errorf("invalid audit interval %q: %w", c.Audit.Interval, err)
		}
	}
	if c.Mutations.MaxPerMinute < 0 {
		return fmt.Errorf("mutations max_per_minute must be 0 or greater")
	}

	return nil
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.HTTP.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.HTTP.QueryTimeoutSeconds) * time.Second
}
