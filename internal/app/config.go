package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BaseURL       string // Public base URL used in mail links (default: http://localhost:8080)
	SessionSecret string // Required in prod: HMAC secret for the session cookie
	Issuer        string // TOTP issuer label (default: foyer)

	DatabaseFile string // Path to SQLite database file (default: ./foyer.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	MailBackend string // Mail delivery backend (log, smtp) (default: log)
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	MailFrom    string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	SessionTTL           time.Duration // Session lifetime (default: 24h)
	CodeTTL              time.Duration // Guest code lifetime (default: 24h)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		BaseURL:       getEnvOrDefault("FOYER_BASE_URL", "http://localhost:8080"),
		SessionSecret: getEnvOrDefault("FOYER_SESSION_SECRET", "dev-insecure-secret"),
		Issuer:        getEnvOrDefault("FOYER_ISSUER", "foyer"),

		DatabaseFile: getEnvOrDefault("FOYER_DATABASE_FILE", "foyer.db"),
		PepperFile:   getEnvOrDefault("FOYER_PEPPER_FILE", "pepper"),

		MailBackend: getEnvOrDefault("FOYER_MAIL_BACKEND", "log"),
		SMTPHost:    os.Getenv("FOYER_SMTP_HOST"),
		SMTPPort:    getEnvIntOrDefault("FOYER_SMTP_PORT", 587),
		SMTPUser:    os.Getenv("FOYER_SMTP_USER"),
		SMTPPass:    os.Getenv("FOYER_SMTP_PASS"),
		MailFrom:    getEnvOrDefault("FOYER_MAIL_FROM", "no-reply@localhost"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		SessionTTL:           getEnvDurationOrDefault("FOYER_SESSION_TTL", 24*time.Hour),
		CodeTTL:              getEnvDurationOrDefault("FOYER_CODE_TTL", 24*time.Hour),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
