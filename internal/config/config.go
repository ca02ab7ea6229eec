package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT (staff sessions)
	JWTSecret       string
	JWTAccessExpiry time.Duration

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Seed moderator, created on startup when both are set
	SeedModeratorEmail    string
	SeedModeratorPassword string

	// Server
	Port        string
	CORSOrigins string

	// Report intake
	ReportRateLimit  int
	ReportRateWindow time.Duration
	ReportCommentMax int
	FingerprintSalt  string
	// RateLimitStore is "database" (shared by all instances) or "memory"
	// (one process only).
	RateLimitStore string

	// Moderation
	QueuePageSize      int
	DecisionMaxRetries int
	DecisionRetryBase  time.Duration

	// Listing catalog. Empty CatalogURL means the shared listings table.
	CatalogURL     string
	CatalogTimeout time.Duration

	// Logging
	LogRetentionDays int
	LogPersistLevel  slog.Level
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "moderation_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTAccessExpiry: parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		SeedModeratorEmail:    getEnv("SEED_MODERATOR_EMAIL", ""),
		SeedModeratorPassword: getEnv("SEED_MODERATOR_PASSWORD", ""),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		ReportRateLimit:  parseInt(getEnv("REPORT_RATE_LIMIT", "5"), 5),
		ReportRateWindow: parseDuration(getEnv("REPORT_RATE_WINDOW", "1h"), time.Hour),
		ReportCommentMax: parseInt(getEnv("REPORT_COMMENT_MAX", "500"), 500),
		FingerprintSalt:  getEnv("FINGERPRINT_SALT", ""),
		RateLimitStore:   strings.ToLower(getEnv("RATE_LIMIT_STORE", "database")),

		QueuePageSize:      parseInt(getEnv("QUEUE_PAGE_SIZE", "20"), 20),
		DecisionMaxRetries: parseInt(getEnv("DECISION_MAX_RETRIES", "3"), 3),
		DecisionRetryBase:  parseDuration(getEnv("DECISION_RETRY_BASE", "200ms"), 200*time.Millisecond),

		CatalogURL:     getEnv("CATALOG_URL", ""),
		CatalogTimeout: parseDuration(getEnv("CATALOG_TIMEOUT", "5s"), 5*time.Second),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),
		LogPersistLevel:  parseLevel(getEnv("LOG_PERSIST_LEVEL", "warn")),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return level
}
