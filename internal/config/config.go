// Package config loads AppConfig from defaults, an optional YAML file, an optional
// .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// defaultConfigPath is used when neither the flag nor MARKERMAP_CONFIG names a file.
const defaultConfigPath = "config.yaml"

// AppConfig is the complete process configuration.
type AppConfig struct {
	ConfigPath string `yaml:"-"`

	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Admin     AdminConfig     `yaml:"admin"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Seed      SeedConfig      `yaml:"seed"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `yaml:"port" envconfig:"PORT"`
	Environment  string        `yaml:"environment" envconfig:"APP_ENV"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	CookieSecure bool          `yaml:"cookie_secure" envconfig:"COOKIE_SECURE"`
	BodyLimit    int64         `yaml:"body_limit" envconfig:"BODY_LIMIT_BYTES"`
	// StaticDir holds the front end; an empty or missing directory serves the API only.
	StaticDir       string        `yaml:"static_dir" envconfig:"STATIC_DIR"`
	SettingsRefresh time.Duration `yaml:"settings_refresh" envconfig:"SETTINGS_REFRESH_INTERVAL"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers are honored.
	// Empty means the client IP is always the socket peer.
	TrustedProxies []string `yaml:"trusted_proxies" envconfig:"TRUSTED_PROXIES"`
}

// DatabaseConfig configures the primary datastore.
type DatabaseConfig struct {
	URL            string        `yaml:"url" envconfig:"DATABASE_URL"`
	Host           string        `yaml:"host" envconfig:"DB_HOST"`
	Port           int           `yaml:"port" envconfig:"DB_PORT"`
	User           string        `yaml:"user" envconfig:"DB_USER"`
	Password       string        `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string        `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string        `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" envconfig:"DB_IDLE_TIMEOUT"`
	MaxOpenConns   int           `yaml:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
}

// JWTConfig configures session tokens.
type JWTConfig struct {
	Secret string        `yaml:"secret" envconfig:"JWT_SECRET"`
	Expiry time.Duration `yaml:"expiry" envconfig:"JWT_EXPIRY"`
}

// AdminConfig names the account seeded on first start.
type AdminConfig struct {
	Username string `yaml:"username" envconfig:"ADMIN_USERNAME"`
	Password string `yaml:"password" envconfig:"ADMIN_PASSWORD"`
}

// StorageConfig configures the local substitute store.
type StorageConfig struct {
	FallbackPath string        `yaml:"fallback_path" envconfig:"FALLBACK_STORE_PATH"`
	PingTimeout  time.Duration `yaml:"ping_timeout" envconfig:"STORAGE_PING_TIMEOUT"`
}

// RedisConfig configures the shared login limiter. An empty address disables redis.
type RedisConfig struct {
	Address  string `yaml:"address" envconfig:"REDIS_ADDRESS"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// RateLimitConfig throttles logins per client ip.
type RateLimitConfig struct {
	LoginAttempts int           `yaml:"login_attempts" envconfig:"LOGIN_RATE_LIMIT"`
	LoginWindow   time.Duration `yaml:"login_window" envconfig:"LOGIN_RATE_WINDOW"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format     string `yaml:"format" envconfig:"LOG_FORMAT"`
	File       string `yaml:"file" envconfig:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"LOG_MAX_AGE_DAYS"`
}

// SeedConfig toggles demo data.
type SeedConfig struct {
	SampleMarkers bool `yaml:"sample_markers" envconfig:"SEED_SAMPLE_MARKERS"`
}

// Default returns the local development configuration.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:            3000,
			Environment:     EnvDevelopment,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			CookieSecure:    true,
			BodyLimit:       50 << 20,
			StaticDir:       "public",
			SettingsRefresh: time.Minute,
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           "postgres",
			Name:           "live",
			SSLMode:        "disable",
			ConnectTimeout: 10 * time.Second,
			IdleTimeout:    30 * time.Second,
			MaxOpenConns:   20,
		},
		JWT: JWTConfig{
			Secret: DefaultJWTSecret,
			Expiry: 24 * time.Hour,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "admin",
		},
		Storage: StorageConfig{
			FallbackPath: "data/markers.json",
			PingTimeout:  3 * time.Second,
		},
		RateLimit: RateLimitConfig{
			LoginAttempts: 10,
			LoginWindow:   time.Minute,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

// ResolveConfigPath picks the config file path: explicit, then MARKERMAP_CONFIG, then config.yaml.
func ResolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("MARKERMAP_CONFIG")); p != "" {
		return p
	}
	return defaultConfigPath
}

// ConfigExists reports whether a readable file exists at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load builds the configuration. A missing config file or .env file is not an error.
func Load(configPath string) (AppConfig, error) {
	cfg := Default()
	cfg.ConfigPath = ResolveConfigPath(configPath)

	if ConfigExists(cfg.ConfigPath) {
		data, errRead := os.ReadFile(cfg.ConfigPath)
		if errRead != nil {
			return cfg, fmt.Errorf("config: read %s: %w", cfg.ConfigPath, errRead)
		}
		if errYAML := yaml.Unmarshal(data, &cfg); errYAML != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", cfg.ConfigPath, errYAML)
		}
	} else if strings.TrimSpace(configPath) != "" {
		return cfg, fmt.Errorf("config: file %s not found", cfg.ConfigPath)
	}

	if errDotenv := godotenv.Load(); errDotenv != nil && !errors.Is(errDotenv, os.ErrNotExist) {
		return cfg, fmt.Errorf("config: load .env: %w", errDotenv)
	}
	if errEnv := applyEnv(&cfg); errEnv != nil {
		return cfg, errEnv
	}
	if errValidate := cfg.Validate(); errValidate != nil {
		return cfg, errValidate
	}
	return cfg, nil
}

// applyEnv overrides each section from the environment. Unset variables keep current values.
func applyEnv(cfg *AppConfig) error {
	if env := strings.TrimSpace(os.Getenv("NODE_ENV")); env != "" && os.Getenv("APP_ENV") == "" {
		cfg.Server.Environment = env
	}
	sections := map[string]any{
		"server":     &cfg.Server,
		"database":   &cfg.Database,
		"jwt":        &cfg.JWT,
		"admin":      &cfg.Admin,
		"storage":    &cfg.Storage,
		"redis":      &cfg.Redis,
		"rate_limit": &cfg.RateLimit,
		"log":        &cfg.Log,
		"seed":       &cfg.Seed,
	}
	for name, section := range sections {
		if errProcess := envconfig.Process("", section); errProcess != nil {
			return fmt.Errorf("config: environment %s: %w", name, errProcess)
		}
	}
	return nil
}

// Validate rejects configurations that cannot run safely.
func (c AppConfig) Validate() error {
	env := strings.ToLower(strings.TrimSpace(c.Server.Environment))
	if env != EnvDevelopment && env != EnvProduction && env != EnvTest {
		return fmt.Errorf("config: unknown environment %q", c.Server.Environment)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt secret is required")
	}
	if c.IsProduction() && c.JWT.Secret == DefaultJWTSecret {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	if c.JWT.Secret == DefaultJWTSecret {
		log.Warn("config: using the default JWT secret; set JWT_SECRET before deploying")
	}
	if strings.TrimSpace(c.Storage.FallbackPath) == "" {
		return errors.New("config: fallback store path is required")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("config: invalid trusted proxy %q", proxy)
		}
	}
	return nil
}

func validProxy(raw string) bool {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "/") {
		_, _, errCIDR := net.ParseCIDR(raw)
		return errCIDR == nil
	}
	return net.ParseIP(raw) != nil
}

// IsProduction reports whether the process runs in production.
func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Server.Environment), EnvProduction)
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL built from the parts.
func (c DatabaseConfig) DSN() string {
	if u := strings.TrimSpace(c.URL); u != "" {
		return u
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	if c.Password == "" {
		u.User = url.User(c.User)
	}
	return u.String()
}
