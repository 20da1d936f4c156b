package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the campuswatch service
type Config struct {
	Server struct {
		Host       string `mapstructure:"host"`
		Port       int    `mapstructure:"port"`
		CORSOrigin string `mapstructure:"cors_origin"`
	} `mapstructure:"server"`

	MongoDB struct {
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
		Enabled  bool   `mapstructure:"enabled"`
		// ProbeTimeout bounds the per-request liveness probe that decides
		// which backend serves the request.
		ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
		MaxPoolSize  uint64        `mapstructure:"max_pool_size"`
	} `mapstructure:"mongodb"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
	} `mapstructure:"auth"`
}

// ListenAddr returns the host:port the API server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origin", "*")

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "campuswatch")
	viper.SetDefault("mongodb.enabled", true)
	viper.SetDefault("mongodb.probe_timeout", 2*time.Second)
	viper.SetDefault("mongodb.max_pool_size", 10)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.jwt_expiry", 24*time.Hour)
}

// LoadConfig reads configuration from config.yaml and the environment.
// Environment variables use the CAMPUSWATCH_ prefix with underscores, e.g.
// CAMPUSWATCH_AUTH_JWT_SECRET.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("campuswatch")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration for security and correctness
func validateConfig(config *Config) error {
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set CAMPUSWATCH_AUTH_JWT_SECRET)")
	}
	if len(config.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	if config.MongoDB.Enabled {
		if !strings.HasPrefix(config.MongoDB.URI, "mongodb://") && !strings.HasPrefix(config.MongoDB.URI, "mongodb+srv://") {
			return fmt.Errorf("invalid MongoDB URI: must start with mongodb:// or mongodb+srv://")
		}
		if _, err := url.Parse(config.MongoDB.URI); err != nil {
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if config.MongoDB.ProbeTimeout <= 0 {
			return fmt.Errorf("mongodb.probe_timeout must be positive")
		}
	}

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	return nil
}
