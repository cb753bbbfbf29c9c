package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers accepted in DB_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Storage
	DBDriver    string
	MongoURI    string
	MongoDbName string
	SQLDSN      string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// Billing
	CommissionRate             float64
	AdminFee                   float64
	InvoicePaymentWaitTimeDays int
	CurrencyCode               string

	// Property and offer defaults
	AvailabilityOffsetMonths int
	DefaultOfferValidityDays int
	DefaultBedrooms          int

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool
	EmailLogFile    string // Optional, appends every outgoing email

	// Logging
	LogLevel  string
	LogFormat string

	// Rate limiting
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second

	// CORS
	CorsAllowedOrigins []string
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.DBDriver = getEnv("DB_DRIVER", DriverMongo)
	switch cfg.DBDriver {
	case DriverMongo:
		cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
		if err != nil {
			return nil, err
		}
	case DriverPostgres, DriverSQLite:
		cfg.SQLDSN, err = getRequiredEnv("SQL_DSN")
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER: %q", cfg.DBDriver)
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "estate")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")

	// The worker and CLI never verify tokens.
	if runMode == "api" || runMode == "all" {
		cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
		if err != nil {
			return nil, err
		}
	} else {
		cfg.JwtSecret = getEnv("JWT_SECRET", "")
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.CurrencyCode = getEnv("CURRENCY_CODE", "EUR")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@estate.example.com")
	cfg.EmailLogFile = getEnv("EMAIL_LOG_FILE", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "json")

	// Load numeric and time duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.MockServices, err = strconv.ParseBool(getEnv("MOCK_SERVICES", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MOCK_SERVICES: %w", err)
	}

	cfg.CommissionRate, err = strconv.ParseFloat(getEnv("COMMISSION_RATE", "0.06"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid COMMISSION_RATE: %w", err)
	}

	cfg.AdminFee, err = strconv.ParseFloat(getEnv("ADMIN_FEE", "100.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_FEE: %w", err)
	}

	cfg.InvoicePaymentWaitTimeDays, err = strconv.Atoi(getEnv("INVOICE_PAYMENT_WAIT_TIME_DAYS", "14"))
	if err != nil {
		return nil, fmt.Errorf("invalid INVOICE_PAYMENT_WAIT_TIME_DAYS: %w", err)
	}

	cfg.AvailabilityOffsetMonths, err = strconv.Atoi(getEnv("AVAILABILITY_OFFSET_MONTHS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid AVAILABILITY_OFFSET_MONTHS: %w", err)
	}

	cfg.DefaultOfferValidityDays, err = strconv.Atoi(getEnv("DEFAULT_OFFER_VALIDITY_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_OFFER_VALIDITY_DAYS: %w", err)
	}

	cfg.DefaultBedrooms, err = strconv.Atoi(getEnv("DEFAULT_BEDROOMS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_BEDROOMS: %w", err)
	}

	// Rate Limiting
	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	cfg.CorsAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	return cfg, nil
}

// splitList parses a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Defaults returns a configuration with every default applied and no
// connection settings. Tests and embedded callers start from it.
func Defaults() *Config {
	return &Config{
		DBDriver:                   DriverSQLite,
		MongoDbName:                "estate",
		RedisAddr:                  "localhost:6379",
		JwtTTL:                     time.Hour,
		ApiPort:                    "8080",
		ServiceApiPort:             "12345",
		CommissionRate:             0.06,
		AdminFee:                   100.0,
		InvoicePaymentWaitTimeDays: 14,
		CurrencyCode:               "EUR",
		AvailabilityOffsetMonths:   3,
		DefaultOfferValidityDays:   7,
		DefaultBedrooms:            2,
		SmtpPort:                   587,
		SmtpFromAddress:            "noreply@estate.example.com",
		LogLevel:                   "info",
		LogFormat:                  "json",
		RateLimitBucketSize:        20,
		RateLimitRefillRate:        10,
		CorsAllowedOrigins:         []string{"*"},
	}
}
