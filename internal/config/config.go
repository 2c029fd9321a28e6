package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	ConfigFile string

	APIBaseURL   string
	APITimeout   time.Duration
	APIRateLimit float64
	APIBurst     int

	SessionBackend   string
	SessionNamespace string
	SQLitePath       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	Location *time.Location

	LogLevel  string
	LogFormat string

	MetricsAddr   string
	WatchInterval time.Duration
}

// RegisterFlags adds the global flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (default gobarber.yaml in the user config dir)")
	fs.String("api-url", "", "GoBarber API base URL")
	fs.String("backend", "", "session storage backend: sqlite, redis, postgres or memory")
	fs.Bool("ephemeral", false, "keep the session in memory only")
	fs.String("timezone", "", "IANA time zone used for the schedule")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("log-format", "", "log format: text or json")
}

// Load reads configuration from defaults, an optional config file, the
// environment (GOBARBER_ prefix) and fs, in increasing precedence. fs may be
// nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GOBARBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	appDir := filepath.Join(configDir, "gobarber")

	v.SetDefault("app.config_file", "")
	v.SetDefault("api.base_url", "http://localhost:3333")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.burst", 5)
	v.SetDefault("session.backend", BackendSQLite)
	v.SetDefault("session.namespace", "@GoBarber")
	v.SetDefault("session.sqlite_path", filepath.Join(appDir, "state.db"))
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("watch.interval", "30s")

	_ = v.BindEnv("app.config_file", "GOBARBER_CONFIG")
	_ = v.BindEnv("api.base_url", "GOBARBER_API_BASE_URL", "GOBARBER_API_URL", "API_URL")
	_ = v.BindEnv("api.timeout", "GOBARBER_API_TIMEOUT")
	_ = v.BindEnv("api.rate_limit", "GOBARBER_API_RATE_LIMIT")
	_ = v.BindEnv("api.burst", "GOBARBER_API_BURST")
	_ = v.BindEnv("session.backend", "GOBARBER_SESSION_BACKEND")
	_ = v.BindEnv("session.namespace", "GOBARBER_SESSION_NAMESPACE")
	_ = v.BindEnv("session.sqlite_path", "GOBARBER_SESSION_SQLITE_PATH")
	_ = v.BindEnv("redis.addr", "GOBARBER_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "GOBARBER_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "GOBARBER_REDIS_DB")
	_ = v.BindEnv("database.url", "GOBARBER_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.max_open_conns", "GOBARBER_DATABASE_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "GOBARBER_DATABASE_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.conn_max_lifetime", "GOBARBER_DATABASE_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.conn_max_idle_time", "GOBARBER_DATABASE_CONN_MAX_IDLE_TIME")
	_ = v.BindEnv("schedule.timezone", "GOBARBER_SCHEDULE_TIMEZONE")
	_ = v.BindEnv("log.level", "GOBARBER_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "GOBARBER_LOG_FORMAT")
	_ = v.BindEnv("metrics.addr", "GOBARBER_METRICS_ADDR")
	_ = v.BindEnv("watch.interval", "GOBARBER_WATCH_INTERVAL")

	if fs != nil {
		for key, name := range map[string]string{
			"app.config_file":   "config",
			"api.base_url":      "api-url",
			"session.backend":   "backend",
			"schedule.timezone": "timezone",
			"log.level":         "log-level",
			"log.format":        "log-format",
		} {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, err
				}
			}
		}
	}

	configFile := strings.TrimSpace(v.GetString("app.config_file"))
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("gobarber")
		v.SetConfigType("yaml")
		v.AddConfigPath(appDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	if fs != nil {
		if f := fs.Lookup("ephemeral"); f != nil && f.Changed && f.Value.String() == "true" {
			v.Set("session.backend", BackendMemory)
		}
	}

	apiTimeout, err := time.ParseDuration(v.GetString("api.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("config: api.timeout: %w", err)
	}
	connMaxLifetime, err := time.ParseDuration(v.GetString("database.conn_max_lifetime"))
	if err != nil {
		return Config{}, fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	connMaxIdleTime, err := time.ParseDuration(v.GetString("database.conn_max_idle_time"))
	if err != nil {
		return Config{}, fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	watchInterval, err := time.ParseDuration(v.GetString("watch.interval"))
	if err != nil {
		return Config{}, fmt.Errorf("config: watch.interval: %w", err)
	}
	if watchInterval <= 0 {
		return Config{}, fmt.Errorf("config: watch.interval must be positive")
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString("schedule.timezone")))
	if err != nil {
		return Config{}, fmt.Errorf("config: schedule.timezone: %w", err)
	}

	cfg := Config{
		ConfigFile:        v.ConfigFileUsed(),
		APIBaseURL:        strings.TrimSpace(v.GetString("api.base_url")),
		APITimeout:        apiTimeout,
		APIRateLimit:      v.GetFloat64("api.rate_limit"),
		APIBurst:          v.GetInt("api.burst"),
		SessionBackend:    strings.ToLower(strings.TrimSpace(v.GetString("session.backend"))),
		SessionNamespace:  strings.TrimSpace(v.GetString("session.namespace")),
		SQLitePath:        v.GetString("session.sqlite_path"),
		RedisAddr:         v.GetString("redis.addr"),
		RedisPassword:     v.GetString("redis.password"),
		RedisDB:           v.GetInt("redis.db"),
		DatabaseURL:       v.GetString("database.url"),
		DBMaxOpenConns:    v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:    v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime: connMaxLifetime,
		DBConnMaxIdleTime: connMaxIdleTime,
		Location:          loc,
		LogLevel:          v.GetString("log.level"),
		LogFormat:         strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		MetricsAddr:       strings.TrimSpace(v.GetString("metrics.addr")),
		WatchInterval:     watchInterval,
	}

	switch cfg.SessionBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return Config{}, errors.New("config: database.url is required for the postgres backend")
		}
	default:
		return Config{}, fmt.Errorf("config: unknown session.backend %q", cfg.SessionBackend)
	}
	if cfg.APIBaseURL == "" {
		return Config{}, errors.New("config: api.base_url is required")
	}

	return cfg, nil
}
