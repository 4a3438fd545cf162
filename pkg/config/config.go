package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Attachment storage backends.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string
	// MaxRequestBytes caps any request body. Zero derives it from the attachment limits.
	MaxRequestBytes int64

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Dashboard   DashboardConfig
	Attachments AttachmentsConfig
	Purge       PurgeConfig
	Reports     ReportsConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	CookieSecure      bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig governs dashboard cache tuning.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// AttachmentsConfig controls where report attachments are stored and how they are served.
type AttachmentsConfig struct {
	Backend          string
	StorageDir       string
	MaxFileSizeBytes int64
	MaxFiles         int
	AllowedMIMEs     []string
	SignedURLSecret  string
	SignedURLTTL     time.Duration

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
}

// PurgeConfig tunes the background worker that removes attachment blobs of deleted reports.
type PurgeConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// ReportsConfig captures report access policy knobs.
type ReportsConfig struct {
	StrictOwnership bool
	AdminSiteURL    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		CookieSecure:      v.GetBool("JWT_COOKIE_SECURE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("DASHBOARD_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 2*time.Minute),
	}

	maxFileSize := v.GetInt64("ATTACHMENTS_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	cfg.Attachments = AttachmentsConfig{
		Backend:          strings.ToLower(v.GetString("ATTACHMENTS_BACKEND")),
		StorageDir:       v.GetString("ATTACHMENTS_STORAGE_DIR"),
		MaxFileSizeBytes: maxFileSize,
		MaxFiles:         v.GetInt("ATTACHMENTS_MAX_FILES"),
		AllowedMIMEs:     splitAndTrim(v.GetString("ATTACHMENTS_ALLOWED_MIME_TYPES")),
		SignedURLSecret:  v.GetString("ATTACHMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("ATTACHMENTS_SIGNED_URL_TTL"), 15*time.Minute),
		S3Endpoint:       v.GetString("S3_ENDPOINT"),
		S3AccessKey:      v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:      v.GetString("S3_SECRET_KEY"),
		S3Bucket:         v.GetString("S3_BUCKET"),
		S3Region:         v.GetString("S3_REGION"),
		S3UseSSL:         v.GetBool("S3_USE_SSL"),
	}

	cfg.MaxRequestBytes = v.GetInt64("MAX_REQUEST_BYTES")
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = requestBytesFor(cfg.Attachments)
	}

	cfg.Purge = PurgeConfig{
		Workers:    v.GetInt("PURGE_WORKERS"),
		MaxRetries: v.GetInt("PURGE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("PURGE_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Reports = ReportsConfig{
		StrictOwnership: v.GetBool("REPORTS_STRICT_OWNERSHIP"),
		AdminSiteURL:    v.GetString("ADMIN_SITE_URL"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "")
	v.SetDefault("MAX_REQUEST_BYTES", 0)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "whistle")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "whistle-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_COOKIE_SECURE", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DASHBOARD_CACHE_ENABLED", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "2m")

	v.SetDefault("ATTACHMENTS_BACKEND", StorageBackendLocal)
	v.SetDefault("ATTACHMENTS_STORAGE_DIR", "./report_files")
	v.SetDefault("ATTACHMENTS_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("ATTACHMENTS_MAX_FILES", 10)
	v.SetDefault("ATTACHMENTS_ALLOWED_MIME_TYPES", "")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_SECRET", "dev_attachments_secret")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_TTL", "15m")
	v.SetDefault("S3_ENDPOINT", "localhost:9000")
	v.SetDefault("S3_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_SECRET_KEY", "minioadmin")
	v.SetDefault("S3_BUCKET", "report-files")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", false)

	v.SetDefault("PURGE_WORKERS", 1)
	v.SetDefault("PURGE_MAX_RETRIES", 3)
	v.SetDefault("PURGE_RETRY_DELAY", "2s")

	v.SetDefault("REPORTS_STRICT_OWNERSHIP", false)
	v.SetDefault("ADMIN_SITE_URL", "/admin/")
}

// requestBytesFor allows a full set of maximum-size attachments plus 1 MiB of form fields.
func requestBytesFor(a AttachmentsConfig) int64 {
	files := int64(a.MaxFiles)
	if files <= 0 {
		files = 1
	}
	return files*a.MaxFileSizeBytes + 1<<20
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
