package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all runtime configuration. Secrets carry no code defaults
// and must come from the environment or the config file.
type AppConfig struct {
	AppPort string
	GinMode string
	GinPath string

	JWTSecret    string
	CookieSecure bool

	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	AllowedOrigins []string

	// General API limiter (token bucket, per IP).
	RateLimitPerMinute int
	// Authentication route limiter (fixed window, per IP).
	AuthRateLimit     int
	AuthRateWindowSec int

	GitHubClientID     string
	GitHubClientSecret string
	OAuthRedirectBase  string

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
)

// Load reads configuration once during boot.
// Precedence: config/config.json -> defaults -> environment overrides.
// A .env file, when present, populates the environment first.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = godotenv.Load()

	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/access.log"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "classboard"
	}
	if c.DBName == "" {
		c.DBName = "classboard"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if c.AuthRateLimit == 0 {
		c.AuthRateLimit = 5
	}
	if c.AuthRateWindowSec == 0 {
		c.AuthRateWindowSec = 60
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/classboard.log"
	}
}

func applyEnvOverrides(c *AppConfig) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "1" || strings.EqualFold(v, "true")
		}
	}

	setString(&c.AppPort, "APP_PORT")
	setString(&c.GinMode, "GIN_MODE")
	setString(&c.GinPath, "GIN_LOG_PATH")
	setString(&c.JWTSecret, "JWT_SECRET")
	setBool(&c.CookieSecure, "COOKIE_SECURE")
	setString(&c.DatabaseURI, "DATABASE_URI")
	setString(&c.DBHost, "DB_HOST")
	setString(&c.DBPort, "DB_PORT")
	setString(&c.DBUser, "DB_USER")
	setString(&c.DBPassword, "DB_PASSWORD")
	setString(&c.DBName, "DB_NAME")
	setString(&c.RedisHost, "REDIS_HOST")
	setInt(&c.RedisPort, "REDIS_PORT")
	setInt(&c.RedisDB, "REDIS_DB")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE")
	setInt(&c.AuthRateLimit, "AUTH_RATE_LIMIT")
	setInt(&c.AuthRateWindowSec, "AUTH_RATE_WINDOW_SEC")
	setString(&c.GitHubClientID, "GITHUB_CLIENT_ID")
	setString(&c.GitHubClientSecret, "GITHUB_CLIENT_SECRET")
	setString(&c.OAuthRedirectBase, "OAUTH_REDIRECT_BASE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogPath, "LOG_PATH")
	setInt(&c.LogMaxSizeMB, "LOG_MAX_SIZE_MB")
	setInt(&c.LogMaxBackups, "LOG_MAX_BACKUPS")
	setInt(&c.LogMaxAgeDays, "LOG_MAX_AGE_DAYS")
	setBool(&c.LogCompress, "LOG_COMPRESS")

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		if len(origins) > 0 {
			c.AllowedOrigins = origins
		}
	}
}

// loadJSONConfig fills cfg from a JSON file when present. A missing file is
// not an error; invalid JSON is.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(key string) string {
		if s, ok := raw[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(key string) int {
		switch t := raw[key].(type) {
		case float64:
			return int(t)
		case json.Number:
			n, _ := t.Int64()
			return int(n)
		}
		return 0
	}
	getBool := func(key string) bool {
		b, _ := raw[key].(bool)
		return b
	}

	out.AppPort = getString("app_port")
	out.GinMode = getString("gin_mode")
	out.GinPath = getString("gin_log_path")
	out.JWTSecret = getString("jwt_secret")
	out.CookieSecure = getBool("cookie_secure")
	out.DatabaseURI = getString("database_uri")
	out.DBHost = getString("db_host")
	out.DBPort = getString("db_port")
	out.DBUser = getString("db_user")
	out.DBPassword = getString("db_password")
	out.DBName = getString("db_name")
	out.RedisHost = getString("redis_host")
	out.RedisPort = getInt("redis_port")
	out.RedisDB = getInt("redis_db")
	out.RedisPassword = getString("redis_password")
	out.RateLimitPerMinute = getInt("rate_limit_per_minute")
	out.AuthRateLimit = getInt("auth_rate_limit")
	out.AuthRateWindowSec = getInt("auth_rate_window_sec")
	out.GitHubClientID = getString("github_client_id")
	out.GitHubClientSecret = getString("github_client_secret")
	out.OAuthRedirectBase = getString("oauth_redirect_base")
	out.LogLevel = getString("log_level")
	out.LogPath = getString("log_path")
	out.LogMaxSizeMB = getInt("log_max_size_mb")
	out.LogMaxBackups = getInt("log_max_backups")
	out.LogMaxAgeDays = getInt("log_max_age_days")
	out.LogCompress = getBool("log_compress")

	if arr, ok := raw["allowed_origins"].([]any); ok {
		var origins []string
		for _, v := range arr {
			if s, ok := v.(string); ok && s != "" {
				origins = append(origins, s)
			}
		}
		if len(origins) > 0 {
			out.AllowedOrigins = origins
		}
	}
	return nil
}
