package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Frontend  FrontendConfig  `mapstructure:"frontend"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects where the inventory document lives. Path is used by
// the file driver, DatabaseURL and Document by the postgres driver.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
	Document    string `mapstructure:"document"`
}

type FrontendConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

// RateLimitConfig throttles mutating API calls per client IP. Zero
// WritesPerMinute disables throttling.
type RateLimitConfig struct {
	WritesPerMinute int `mapstructure:"writes_per_minute"`
	Burst           int `mapstructure:"burst"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads configuration from defaults, an optional config file, a .env
// file and the environment, in increasing order of precedence.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "nexstock")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_header_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", DriverFile)
	v.SetDefault("store.path", "backend/inventory.json")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.document", "default")

	v.SetDefault("frontend.dir", "frontend")

	v.SetDefault("logger.level", "info")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.token", "")

	v.SetDefault("ratelimit.writes_per_minute", 0)
	v.SetDefault("ratelimit.burst", 10)
}

func bindEnvVars(v *viper.Viper) error {
	binds := map[string][]string{
		"server.port":                 {"SERVER_PORT", "PORT"},
		"store.path":                  {"STORE_PATH", "INVENTORY_FILE"},
		"store.database_url":          {"STORE_DATABASE_URL", "DATABASE_URL"},
		"logger.level":                {"LOGGER_LEVEL", "LOG_LEVEL"},
		"metrics.token":               {"METRICS_TOKEN"},
		"metrics.enabled":             {"METRICS_ENABLED"},
		"frontend.dir":                {"FRONTEND_DIR"},
		"ratelimit.burst":             {"RATELIMIT_BURST"},
		"ratelimit.writes_per_minute": {"RATELIMIT_WRITES_PER_MINUTE"},
	}
	for key, envs := range binds {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	switch cfg.Store.Driver {
	case DriverFile:
		if strings.TrimSpace(cfg.Store.Path) == "" {
			return fmt.Errorf("store path is required for the file driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(cfg.Store.DatabaseURL) == "" {
			return fmt.Errorf("store database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.RateLimit.WritesPerMinute < 0 {
		return fmt.Errorf("ratelimit writes_per_minute must not be negative")
	}

	return nil
}
