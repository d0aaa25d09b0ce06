package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the location of the optional YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/foodgram/config.yaml",
}

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string `koanf:"server_port"`
	ServerHost string `koanf:"server_host"`

	// Database configuration
	DBHost     string `koanf:"db_host"`
	DBPort     string `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_ssl_mode"`

	// Redis configuration, used for rate limiting only
	RedisURL      string `koanf:"redis_url"`
	RedisPassword string `koanf:"redis_password"`

	// JWT configuration
	JWTSecret string        `koanf:"jwt_secret"`
	JWTTTL    time.Duration `koanf:"jwt_ttl"`

	// Image storage. Empty S3Bucket means images go to MediaDir.
	S3Bucket string `koanf:"s3_bucket"`
	S3Region string `koanf:"s3_region"`
	MediaDir string `koanf:"media_dir"`
	MediaURL string `koanf:"media_url"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	CORSOrigins []string `koanf:"cors_origins"`

	// ShoppingListHeader prepends a column header line to the exported list.
	ShoppingListHeader bool `koanf:"shopping_list_header"`

	RateLimitCreate int           `koanf:"rate_limit_create"`
	RateLimitUpdate int           `koanf:"rate_limit_update"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DSN returns the lib/pq connection string for the configured database.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func defaultConfig() *Config {
	return &Config{
		ServerPort:         "8080",
		ServerHost:         "0.0.0.0",
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "postgres",
		DBName:             "foodgram",
		DBSSLMode:          "disable",
		JWTTTL:             24 * time.Hour,
		MediaDir:           "media",
		MediaURL:           "/media",
		LogLevel:           "info",
		LogFormat:          "json",
		CORSOrigins:        []string{"http://localhost:3000"},
		ShoppingListHeader: false,
		RateLimitCreate:    20,
		RateLimitUpdate:    60,
		RateLimitWindow:    time.Hour,
	}
}

// envKeys maps environment variables onto koanf keys. Unlisted variables are ignored.
var envKeys = map[string]string{
	"SERVER_PORT":          "server_port",
	"SERVER_HOST":          "server_host",
	"DB_HOST":              "db_host",
	"DB_PORT":              "db_port",
	"DB_USER":              "db_user",
	"DB_PASSWORD":          "db_password",
	"DB_NAME":              "db_name",
	"DB_SSL_MODE":          "db_ssl_mode",
	"REDIS_URL":            "redis_url",
	"REDIS_PASSWORD":       "redis_password",
	"JWT_SECRET":           "jwt_secret",
	"JWT_TTL":              "jwt_ttl",
	"S3_BUCKET_NAME":       "s3_bucket",
	"AWS_REGION":           "s3_region",
	"MEDIA_DIR":            "media_dir",
	"MEDIA_URL":            "media_url",
	"LOG_LEVEL":            "log_level",
	"LOG_FORMAT":           "log_format",
	"CORS_ORIGINS":         "cors_origins",
	"SHOPPING_LIST_HEADER": "shopping_list_header",
	"RATE_LIMIT_CREATE":    "rate_limit_create",
	"RATE_LIMIT_UPDATE":    "rate_limit_update",
	"RATE_LIMIT_WINDOW":    "rate_limit_window",
}

func envTransform(s string) string {
	return envKeys[s]
}

// LoadConfig builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. Secrets missing after that are read
// from the Docker secrets directory.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// CORS_ORIGINS arrives as a single comma separated string.
	if raw := k.String("cors_origins"); raw != "" && strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		if err := k.Set("cors_origins", origins); err != nil {
			return nil, fmt.Errorf("failed to set cors origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	loadSecrets(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadSecrets fills sensitive values that were not provided through the environment.
// CI only ever uses environment variables.
func loadSecrets(cfg *Config) {
	if GetEnvironment() == CI {
		return
	}
	if cfg.DBPassword == "" {
		cfg.DBPassword = readSecret("db_password")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = readSecret("jwt_secret")
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = readSecret("redis_password")
	}
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
