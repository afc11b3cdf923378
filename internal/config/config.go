// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSOrigins() []string
	GetRateLimit() (rps float64, burst int)
}

// MatchingConfig is the reconciliation matcher policy as read from the
// environment. Zero values mean "use the matcher default".
type MatchingConfig struct {
	AmountEpsilon       float64
	Tolerance           float64
	ExactConfidence     int
	ToleranceConfidence int
	ToleranceFloor      int
	DateWindowDays      int
	DateBoost           int
	Limit               int
}

type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	PhoneRegion    string
	Matching       MatchingConfig
}

func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetRateLimit() (float64, int) {
	return c.RateLimitRPS, c.RateLimitBurst
}

// GetPhoneRegion is the region assumed for lead phone numbers written
// without a country code.
func (c *Config) GetPhoneRegion() string { return c.PhoneRegion }

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    databaseURL(),
		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:   parseFloat(getEnv("RATE_LIMIT_RPS", "20")),
		RateLimitBurst: parseInt(getEnv("RATE_LIMIT_BURST", "40")),
		PhoneRegion:    strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "US")),
		Matching: MatchingConfig{
			AmountEpsilon:       parseFloat(getEnv("MATCH_AMOUNT_EPSILON", "")),
			Tolerance:           parseFloat(getEnv("MATCH_TOLERANCE", "")),
			ExactConfidence:     parseInt(getEnv("MATCH_EXACT_CONFIDENCE", "")),
			ToleranceConfidence: parseInt(getEnv("MATCH_TOLERANCE_CONFIDENCE", "")),
			ToleranceFloor:      parseInt(getEnv("MATCH_TOLERANCE_FLOOR", "")),
			DateWindowDays:      parseInt(getEnv("MATCH_DATE_WINDOW_DAYS", "")),
			DateBoost:           parseInt(getEnv("MATCH_DATE_BOOST", "")),
			Limit:               parseInt(getEnv("MATCH_LIMIT", "")),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or DB_HOST is required")
	}
	if cfg.Matching.Tolerance < 0 || cfg.Matching.Tolerance >= 1 {
		return nil, fmt.Errorf("MATCH_TOLERANCE must be in [0, 1), got %v", cfg.Matching.Tolerance)
	}
	if cfg.Matching.Limit < 0 {
		return nil, fmt.Errorf("MATCH_LIMIT must not be negative")
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL and falls back to the discrete DB_* keys.
func databaseURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}
	host := getEnv("DB_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		host,
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "crm"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
