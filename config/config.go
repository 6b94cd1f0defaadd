package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTL           time.Duration
	SessionCookie      string
	CookieSecure       bool
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	// Redis for caching and token revocation
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	CacheTTL      time.Duration
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
//
// Precedence: defaults -> config/config.json (or SBB_CONFIG) -> .env -> environment variables.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	c, err := read()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}
	cfg = c

	loaded = true
	return cfg
}

// read assembles the configuration without touching the cached copy.
func read() (AppConfig, error) {
	// .env is optional; real environment variables always win over it
	_ = godotenv.Load()

	v := viper.New()
	applyDefaults(v)

	path := os.Getenv("SBB_CONFIG")
	if path == "" {
		path = filepath.Join("config", "config.json")
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine, a broken one is not
		if _, statErr := os.Stat(path); statErr == nil {
			return AppConfig{}, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	bindEnv(v)
	return fromViper(v), nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		c := cfg
		mu.RUnlock()
		return c
	}
	mu.RUnlock()
	return Load()
}

// Override installs c as the active configuration. Used by tests and embedded setups.
func Override(c AppConfig) {
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.token_ttl", "72h")
	v.SetDefault("app.session_cookie", "sbb_session")
	v.SetDefault("app.cookie_secure", false)
	v.SetDefault("app.rate_limit_per_minute", 60)
	v.SetDefault("app.allowed_origins", []string{"*"})
	v.SetDefault("gin.mode", "release")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", "3306")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.name", "sbb")
	v.SetDefault("database.sqlite_path", "sbb.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.cache_ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
}

// bindEnv maps the flat environment variable names onto the nested keys.
func bindEnv(v *viper.Viper) {
	pairs := map[string]string{
		"app.port":                  "APP_PORT",
		"app.jwt_secret":            "JWT_SECRET",
		"app.token_ttl":             "TOKEN_TTL",
		"app.session_cookie":        "SESSION_COOKIE",
		"app.cookie_secure":         "COOKIE_SECURE",
		"app.rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
		"app.allowed_origins":       "CORS_ALLOWED_ORIGINS",
		"gin.mode":                  "GIN_MODE",
		"database.driver":           "DB_DRIVER",
		"database.uri":              "DATABASE_URI",
		"database.host":             "DB_HOST",
		"database.port":             "DB_PORT",
		"database.user":             "DB_USER",
		"database.password":         "DB_PASSWORD",
		"database.name":             "DB_NAME",
		"database.sqlite_path":      "SQLITE_PATH",
		"redis.enabled":             "REDIS_ENABLED",
		"redis.host":                "REDIS_HOST",
		"redis.port":                "REDIS_PORT",
		"redis.db":                  "REDIS_DB",
		"redis.password":            "REDIS_PASSWORD",
		"redis.cache_ttl":           "CACHE_TTL",
		"log.level":                 "LOG_LEVEL",
		"log.path":                  "LOG_PATH",
		"log.max_size_mb":           "LOG_MAX_SIZE_MB",
		"log.max_backups":           "LOG_MAX_BACKUPS",
		"log.max_age_days":          "LOG_MAX_AGE_DAYS",
		"log.compress":              "LOG_COMPRESS",
	}
	for key, env := range pairs {
		_ = v.BindEnv(key, env)
	}
}

func fromViper(v *viper.Viper) AppConfig {
	return AppConfig{
		AppPort:            v.GetString("app.port"),
		JWTSecret:          v.GetString("app.jwt_secret"),
		TokenTTL:           v.GetDuration("app.token_ttl"),
		SessionCookie:      v.GetString("app.session_cookie"),
		CookieSecure:       v.GetBool("app.cookie_secure"),
		RateLimitPerMinute: v.GetInt("app.rate_limit_per_minute"),
		AllowedOrigins:     readList(v, "app.allowed_origins"),
		GinMode:            v.GetString("gin.mode"),

		DBDriver:    strings.ToLower(v.GetString("database.driver")),
		DatabaseURI: v.GetString("database.uri"),
		DBHost:      v.GetString("database.host"),
		DBPort:      v.GetString("database.port"),
		DBUser:      v.GetString("database.user"),
		DBPassword:  v.GetString("database.password"),
		DBName:      v.GetString("database.name"),
		SQLitePath:  v.GetString("database.sqlite_path"),

		RedisEnabled:  v.GetBool("redis.enabled"),
		RedisHost:     v.GetString("redis.host"),
		RedisPort:     v.GetInt("redis.port"),
		RedisDB:       v.GetInt("redis.db"),
		RedisPassword: v.GetString("redis.password"),
		CacheTTL:      v.GetDuration("redis.cache_ttl"),

		LogLevel:      v.GetString("log.level"),
		LogPath:       v.GetString("log.path"),
		LogMaxSizeMB:  v.GetInt("log.max_size_mb"),
		LogMaxBackups: v.GetInt("log.max_backups"),
		LogMaxAgeDays: v.GetInt("log.max_age_days"),
		LogCompress:   v.GetBool("log.compress"),
	}
}

// readList accepts both a JSON array and a comma separated env value.
func readList(v *viper.Viper, key string) []string {
	items := []string{}
	for _, raw := range v.GetStringSlice(key) {
		for _, item := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
