package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Content      ContentConfig      `mapstructure:"content"`
	Achievements AchievementsConfig `mapstructure:"achievements"`
	Tts          TtsConfig          `mapstructure:"tts"`
	Cors         CorsConfig         `mapstructure:"cors"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig selects the backend of the client stores
type StorageConfig struct {
	Backend        string `mapstructure:"backend"` // "memory", "sqlite" or "redis"
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
}

type AuthConfig struct {
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Mode  string `mapstructure:"mode"` // "development" or "production"
}

type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

type AchievementsConfig struct {
	// Retroactive awards count badges to students already past the count
	Retroactive bool `mapstructure:"retroactive"`
}

type TtsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Type            string `mapstructure:"type"`
	Voice           string `mapstructure:"voice"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

const defaultSessionSecret = "change-this-secret-in-production"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("database.path", "./starpath.db")

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_key_prefix", "starpath:")

	v.SetDefault("auth.session_secret", defaultSessionSecret)
	v.SetDefault("auth.session_ttl", "720h")
	v.SetDefault("auth.secure_cookies", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.mode", "development")

	v.SetDefault("content.dir", "./data/lessons")

	v.SetDefault("achievements.retroactive", false)

	v.SetDefault("tts.enabled", false)
	v.SetDefault("tts.type", "google")
	v.SetDefault("tts.voice", "en-US-Standard-C")
	v.SetDefault("tts.credentials_file", "")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:8080"})
}

// Load reads config.yaml from . or ./config if present, then STARPATH_*
// environment variables, e.g. STARPATH_STORAGE_BACKEND=redis.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix("STARPATH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		return errors.New("storage.redis_addr is required for the redis backend")
	}
	if c.Auth.SessionSecret == "" {
		return errors.New("auth.session_secret is required")
	}
	return nil
}

// DefaultSecret reports whether the session secret was never changed.
func (c *Config) DefaultSecret() bool {
	return c.Auth.SessionSecret == defaultSessionSecret
}
