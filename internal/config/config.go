package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AsOfLayout is the accepted AS_OF format.
const AsOfLayout = "2006-01-02"

var knownSystems = map[string]bool{
	"":         true,
	"system_a": true,
	"system_b": true,
	"system_c": true,
}

type Config struct {
	Port            string `mapstructure:"PORT"`
	Env             string `mapstructure:"ENV"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	MLLPAddr        string `mapstructure:"MLLP_ADDR"`
	Workers         int    `mapstructure:"WORKERS"`
	CARCMappingFile string `mapstructure:"CARC_MAPPING_FILE"`
	AsOf            string `mapstructure:"AS_OF"`
	DefaultSystem   string `mapstructure:"DEFAULT_SYSTEM"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32  `mapstructure:"DB_MIN_CONNS"`
	DBSchema        string `mapstructure:"DB_SCHEMA"`

	// clock is fixed at load time so a whole run shares one "now".
	clock time.Time
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MLLP_ADDR", ":2575")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_SCHEMA", "public")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("MLLP_ADDR")
	v.BindEnv("WORKERS")
	v.BindEnv("CARC_MAPPING_FILE")
	v.BindEnv("AS_OF")
	v.BindEnv("DEFAULT_SYSTEM")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DB_SCHEMA")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.DefaultSystem = strings.ToLower(strings.TrimSpace(cfg.DefaultSystem))
	cfg.clock = time.Now()

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the engine is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Now returns the reference time for date-dependent rules such as coverage
// termination: AS_OF when set, otherwise the wall clock captured at Load.
func (c *Config) Now() time.Time {
	if c.AsOf != "" {
		if t, err := time.Parse(AsOfLayout, c.AsOf); err == nil {
			return t
		}
	}
	if c.clock.IsZero() {
		return time.Now()
	}
	return c.clock
}

// RequireDatabase reports an error when DATABASE_URL is unset. Only the
// commands that touch Postgres call it.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.AsOf != "" {
		if _, err := time.Parse(AsOfLayout, c.AsOf); err != nil {
			return fmt.Errorf("AS_OF must be YYYY-MM-DD, got %q", c.AsOf)
		}
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if !knownSystems[c.DefaultSystem] {
		return fmt.Errorf("DEFAULT_SYSTEM must be system_a, system_b or system_c, got %q", c.DefaultSystem)
	}
	return nil
}
