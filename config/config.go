package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Application-level settings
	App AppConfig `mapstructure:"app"`

	// PostgreSQL
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// AppConfig carries the values the shortening core consumes: the public base
// URL short links are composed from, code generation parameters and the
// redirect fallback page.
type AppConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"`
	BaseURL        string        `mapstructure:"base_url"`
	ErrorPage      string        `mapstructure:"error_page"`
	CodeLength     int           `mapstructure:"code_length"`
	CodeAlphabet   string        `mapstructure:"code_alphabet"`
	MaxCodeRetries int           `mapstructure:"max_code_retries"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	TokenSecret    string        `mapstructure:"token_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Port     int    `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   string `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   string `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod string `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Port int `mapstructure:"port"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve flat env variable names used by deployments.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.listen_addr", ":8080")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.error_page", "/missing")
	v.SetDefault("app.code_length", 6)
	v.SetDefault("app.code_alphabet", "")
	v.SetDefault("app.max_code_retries", 5)
	v.SetDefault("app.cache_ttl", time.Hour)
	v.SetDefault("app.resolve_timeout", 5*time.Second)
	v.SetDefault("app.token_ttl", 30*24*time.Hour)
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("app.listen_addr", "APP_LISTEN_ADDR")
	v.BindEnv("app.base_url", "APP_BASE_URL")
	v.BindEnv("app.error_page", "APP_ERROR_PAGE")
	v.BindEnv("app.code_length", "APP_CODE_LENGTH")
	v.BindEnv("app.code_alphabet", "APP_CODE_ALPHABET")
	v.BindEnv("app.max_code_retries", "APP_MAX_CODE_RETRIES")
	v.BindEnv("app.cache_ttl", "APP_CACHE_TTL")
	v.BindEnv("app.resolve_timeout", "APP_RESOLVE_TIMEOUT")
	v.BindEnv("app.token_secret", "APP_TOKEN_SECRET")
	v.BindEnv("app.token_ttl", "APP_TOKEN_TTL")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
}
