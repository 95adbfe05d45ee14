// ABOUTME: Configuration loading and parsing for hermes-gateway
// ABOUTME: Supports YAML files with environment variable expansion and env fallbacks

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Every knob has a local-development default so the gateway starts with no
// config file at all; production deployments override via file or env.
const (
	defaultHTTPAddr         = "0.0.0.0:8080"
	defaultRedisURL         = "redis://localhost:6379"
	defaultControlPlaneURL  = "http://localhost:50051"
	defaultMemoryServiceURL = "http://localhost:50052"
	defaultIAMServiceURL    = "http://localhost:50053"
	defaultAccessTokenHours = 24
	defaultHeartbeat        = 30 * time.Second

	// DevJWTSecret is the local-development fallback signing secret. The
	// gateway logs a warning when it is in use.
	DevJWTSecret = "development-secret-change-in-production"
)

// Config represents the complete hermes-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Backends BackendsConfig `yaml:"backends"`
	Auth     AuthConfig     `yaml:"auth"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// RedisConfig holds the session store / event source connection endpoint
type RedisConfig struct {
	URL string `yaml:"url"`
}

// BackendsConfig holds the three backend service endpoints
type BackendsConfig struct {
	ControlPlaneURL  string `yaml:"control_plane_url"`
	MemoryServiceURL string `yaml:"memory_service_url"`
	IAMServiceURL    string `yaml:"iam_service_url"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	AccessTokenHours int    `yaml:"access_token_hours"`
}

// StreamConfig holds streaming-connection timing configuration
type StreamConfig struct {
	HeartbeatInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval"`
}

// DatabaseConfig holds workspace database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded. An
// empty path skips the file and builds the config from environment
// variables and defaults alone; a missing file at a non-empty path is an
// error.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyEnv fills unset fields from the environment. File values win over
// env values; env values win over defaults.
func (c *Config) applyEnv() error {
	if c.Server.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			if _, err := strconv.Atoi(port); err != nil {
				return fmt.Errorf("PORT must be a number: %q", port)
			}
			c.Server.HTTPAddr = "0.0.0.0:" + port
		}
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if c.Backends.ControlPlaneURL == "" {
		c.Backends.ControlPlaneURL = os.Getenv("CONTROL_PLANE_URL")
	}
	if c.Backends.MemoryServiceURL == "" {
		c.Backends.MemoryServiceURL = os.Getenv("MEMORY_SERVICE_URL")
	}
	if c.Backends.IAMServiceURL == "" {
		c.Backends.IAMServiceURL = os.Getenv("IAM_SERVICE_URL")
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if c.Auth.AccessTokenHours == 0 {
		if hours := os.Getenv("JWT_EXPIRY_HOURS"); hours != "" {
			n, err := strconv.Atoi(hours)
			if err != nil {
				return fmt.Errorf("JWT_EXPIRY_HOURS must be a number: %q", hours)
			}
			c.Auth.AccessTokenHours = n
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = defaultHTTPAddr
	}
	if c.Redis.URL == "" {
		c.Redis.URL = defaultRedisURL
	}
	if c.Backends.ControlPlaneURL == "" {
		c.Backends.ControlPlaneURL = defaultControlPlaneURL
	}
	if c.Backends.MemoryServiceURL == "" {
		c.Backends.MemoryServiceURL = defaultMemoryServiceURL
	}
	if c.Backends.IAMServiceURL == "" {
		c.Backends.IAMServiceURL = defaultIAMServiceURL
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = DevJWTSecret
	}
	if c.Auth.AccessTokenHours == 0 {
		c.Auth.AccessTokenHours = defaultAccessTokenHours
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/gateway.db"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure
// encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.AccessTokenHours <= 0 {
		return fmt.Errorf("auth.access_token_hours must be positive, got %d", c.Auth.AccessTokenHours)
	}
	if c.Stream.HeartbeatInterval < time.Second {
		return fmt.Errorf("stream.heartbeat_interval must be at least 1s, got %s", c.Stream.HeartbeatInterval)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func (c *Config) parseDurations() error {
	if c.Stream.HeartbeatIntervalRaw == "" {
		c.Stream.HeartbeatInterval = defaultHeartbeat
		return nil
	}

	d, err := time.ParseDuration(c.Stream.HeartbeatIntervalRaw)
	if err != nil {
		return fmt.Errorf("parsing heartbeat_interval %q: %w", c.Stream.HeartbeatIntervalRaw, err)
	}
	c.Stream.HeartbeatInterval = d
	return nil
}
