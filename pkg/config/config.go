package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devJWTSecret    = "dev_secret"
	devExportSecret = "dev_exports_secret"
	minSecretLength = 32
)

// Config is the process configuration, read from the environment and an optional .env file.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Leave    LeaveConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CacheConfig toggles the Redis catalog cache.
type CacheConfig struct {
	Enabled    bool
	CatalogTTL time.Duration
}

// LeaveConfig sizes the background audit writer.
type LeaveConfig struct {
	AuditWorkers int
	AuditRetries int
}

// ExportsConfig controls where rendered reports live and how long their links stay valid.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

var defaults = map[string]interface{}{
	"ENV":        EnvDevelopment,
	"PORT":       8080,
	"API_PREFIX": "/api/v1",

	"DB_HOST":           "localhost",
	"DB_PORT":           5432,
	"DB_USER":           "postgres",
	"DB_PASSWORD":       "postgres",
	"DB_NAME":           "lecture_diary",
	"DB_SSL_MODE":       "disable",
	"DB_MAX_OPEN_CONNS": 10,
	"DB_MAX_IDLE_CONNS": 5,

	"REDIS_HOST":     "localhost",
	"REDIS_PORT":     6379,
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"JWT_SECRET":               devJWTSecret,
	"JWT_EXPIRATION":           "24h",
	"REFRESH_TOKEN_EXPIRATION": "168h",

	"ALLOWED_ORIGINS": "",
	"LOG_LEVEL":       "info",
	"LOG_FORMAT":      "json",

	"ENABLE_CACHE":      false,
	"CATALOG_CACHE_TTL": "10m",

	"LEAVE_AUDIT_WORKERS": 1,
	"LEAVE_AUDIT_RETRIES": 3,

	"EXPORTS_STORAGE_DIR":       "./exports",
	"EXPORTS_SIGNED_URL_SECRET": devExportSecret,
	"EXPORTS_SIGNED_URL_TTL":    "1h",
}

// Load reads .env when present, overlays the environment and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with. Production additionally refuses
// the development secrets and secrets shorter than 32 bytes.
func (c *Config) Validate() error {
	var problems []string
	if c.Port <= 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %d out of range", c.Port))
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		problems = append(problems, "API_PREFIX must start with /")
	}
	if c.Env == EnvProduction {
		problems = append(problems, weakSecret("JWT_SECRET", c.JWT.Secret, devJWTSecret)...)
		problems = append(problems, weakSecret("EXPORTS_SIGNED_URL_SECRET", c.Exports.SignedURLSecret, devExportSecret)...)
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func weakSecret(key, value, devValue string) []string {
	switch {
	case value == devValue:
		return []string{key + " uses the development default"}
	case len(value) < minSecretLength:
		return []string{fmt.Sprintf("%s shorter than %d bytes", key, minSecretLength)}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Env:       v.GetString("ENV"),
		Port:      v.GetInt("PORT"),
		APIPrefix: v.GetString("API_PREFIX"),
		Database: DatabaseConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSL_MODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			Expiration:        duration(v, "JWT_EXPIRATION"),
			RefreshExpiration: duration(v, "REFRESH_TOKEN_EXPIRATION"),
		},
		CORS: CORSConfig{AllowedOrigins: list(v.GetString("ALLOWED_ORIGINS"))},
		Log:  LogConfig{Level: v.GetString("LOG_LEVEL"), Format: v.GetString("LOG_FORMAT")},
		Cache: CacheConfig{
			Enabled:    v.GetBool("ENABLE_CACHE"),
			CatalogTTL: duration(v, "CATALOG_CACHE_TTL"),
		},
		Leave: LeaveConfig{
			AuditWorkers: v.GetInt("LEAVE_AUDIT_WORKERS"),
			AuditRetries: v.GetInt("LEAVE_AUDIT_RETRIES"),
		},
		Exports: ExportsConfig{
			StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
			SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
			SignedURLTTL:    duration(v, "EXPORTS_SIGNED_URL_TTL"),
		},
	}
}

// duration parses key, falling back to its default when the value does not parse.
func duration(v *viper.Viper, key string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key))); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(defaults[key].(string))
	return d
}

func list(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
