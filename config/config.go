package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LegacyDefaultSecret is the signing key older deployments shipped with.
// It is public knowledge and never accepted in release mode.
const LegacyDefaultSecret = "neporrex_proj080612@"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsRelease reports whether the process runs with production settings.
func (s ServerConfig) IsRelease() bool {
	return s.Mode == "release"
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Path         string `mapstructure:"path"`
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type DiscordConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RedirectURI  string        `mapstructure:"redirect_uri"`
	BotToken     string        `mapstructure:"bot_token"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type DashboardConfig struct {
	URL string `mapstructure:"url"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	PerMinute int    `mapstructure:"per_minute"`
	Burst     int    `mapstructure:"burst"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
	FailOpen  bool   `mapstructure:"fail_open"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// envBindings maps config keys to the environment variables operators set.
var envBindings = map[string]string{
	"discord.client_id":     "DISCORD_CLIENT_ID",
	"discord.client_secret": "DISCORD_CLIENT_SECRET",
	"discord.redirect_uri":  "REDIRECT_URI",
	"discord.bot_token":     "DISCORD_BOT_TOKEN",
	"discord.timeout":       "DISCORD_TIMEOUT",
	"dashboard.url":         "DASHBOARD_URL",
	"jwt.secret":            "API_SECRET_KEY",
	"jwt.ttl":               "JWT_TTL",
	"database.driver":       "DATABASE_DRIVER",
	"database.path":         "DATABASE_PATH",
	"database.dsn":          "DATABASE_DSN",
	"server.host":           "API_HOST",
	"server.port":           "API_PORT",
	"server.mode":           "GIN_MODE",
	"ratelimit.enabled":     "RATELIMIT_ENABLED",
	"ratelimit.per_minute":  "RATELIMIT_PER_MINUTE",
	"ratelimit.redis_addr":  "RATELIMIT_REDIS_ADDR",
	"logging.level":         "LOG_LEVEL",
	"logging.format":        "LOG_FORMAT",
	"logging.output":        "LOG_OUTPUT",
	"logging.file_path":     "LOG_FILE_PATH",
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/happy.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)

	v.SetDefault("discord.redirect_uri", "http://localhost:8000/api/auth/callback")
	v.SetDefault("discord.timeout", 10*time.Second)

	v.SetDefault("dashboard.url", "http://localhost:5173")

	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("jwt.issuer", "happybot")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.per_minute", 120)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.fail_open", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "logs/happybot.log")
}

// BindEnv binds every known key to its environment variable.
func BindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

// LoadConfig reads configuration from defaults, an optional .env file, the
// environment and an optional config file, in increasing precedence for the
// file over defaults and the environment over both.
func LoadConfig(path string) (*Config, error) {
	return Load(viper.New(), path)
}

// Load is LoadConfig on a caller supplied viper instance, so that command
// line flags bound to v take part in resolution.
func Load(v *viper.Viper, path string) (*Config, error) {
	// .env 文件是可选的
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Server.Mode = strings.ToLower(cfg.Server.Mode)
	return &cfg, nil
}

// ConfigError reports a missing or unusable required setting.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// ValidateBot checks what the gateway bot needs to start.
func (c *Config) ValidateBot() error {
	if c.Discord.BotToken == "" {
		return &ConfigError{Key: "DISCORD_BOT_TOKEN", Reason: "bot token is required"}
	}
	return c.validateDatabase()
}

// ValidateAPI checks what the dashboard API needs to start. It returns a
// non-empty warning when an ephemeral signing key had to be generated.
func (c *Config) ValidateAPI() (warning string, err error) {
	if c.Discord.ClientID == "" {
		return "", &ConfigError{Key: "DISCORD_CLIENT_ID", Reason: "oauth client id is required"}
	}
	if c.Discord.ClientSecret == "" {
		return "", &ConfigError{Key: "DISCORD_CLIENT_SECRET", Reason: "oauth client secret is required"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return "", &ConfigError{Key: "API_PORT", Reason: fmt.Sprintf("port %d out of range", c.Server.Port)}
	}
	if c.JWT.TTL <= 0 {
		return "", &ConfigError{Key: "JWT_TTL", Reason: "token lifetime must be positive"}
	}
	if err := c.validateDatabase(); err != nil {
		return "", err
	}
	return c.EnsureSigningKey()
}

// EnsureSigningKey enforces the signing key policy. Release mode rejects an
// empty or well-known key. Any other mode replaces it with a random key that
// only lives as long as the process, and reports that as a warning.
func (c *Config) EnsureSigningKey() (string, error) {
	if c.JWT.Secret != "" && c.JWT.Secret != LegacyDefaultSecret {
		return "", nil
	}
	if c.Server.IsRelease() {
		return "", &ConfigError{Key: "API_SECRET_KEY", Reason: "a non-default signing key is required in release mode"}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate signing key: %w", err)
	}
	c.JWT.Secret = hex.EncodeToString(buf)
	return "API_SECRET_KEY is empty or default; using a throwaway signing key, sessions will not survive a restart (never do this in production)", nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return &ConfigError{Key: "DATABASE_PATH", Reason: "sqlite path is required"}
		}
	case "postgres":
		if c.Database.DSN == "" {
			return &ConfigError{Key: "DATABASE_DSN", Reason: "postgres dsn is required"}
		}
	default:
		return &ConfigError{Key: "DATABASE_DRIVER", Reason: fmt.Sprintf("unsupported driver %q", c.Database.Driver)}
	}
	return nil
}
