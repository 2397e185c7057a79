package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host string
	Port string

	// Database settings
	DatabasePath string

	// Logging settings
	LogLevel  string
	LogFormat string

	// Court settings
	CourtBaseURL string
	CourtName    string

	// Fetch settings
	FetchDelay     time.Duration
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	HeadlessMode   bool
	BrowserPath    string

	// Document settings
	DownloadDir      string
	MaxPDFSize       int64
	DownloadOnSearch bool

	// Debug flag
	Debug bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not an error if .env doesn't exist
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Host:         getEnv("HOST", "0.0.0.0"),
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./data/court_cases.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		CourtBaseURL: getEnv("COURT_BASE_URL", "https://delhihighcourt.nic.in"),
		CourtName:    getEnv("COURT_NAME", "Delhi High Court"),
		BrowserPath:  getEnv("ROD_BROWSER_PATH", ""),
		DownloadDir:  getEnv("DOWNLOAD_DIR", "./data/downloads"),
	}

	fetchDelay, err := strconv.Atoi(getEnv("FETCH_DELAY", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_DELAY: %w", err)
	}
	cfg.FetchDelay = time.Duration(fetchDelay) * time.Second

	requestTimeout, err := strconv.Atoi(getEnv("REQUEST_TIMEOUT", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = time.Duration(requestTimeout) * time.Second

	sessionTTL, err := strconv.Atoi(getEnv("SESSION_TTL", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = time.Duration(sessionTTL) * time.Minute

	cfg.MaxPDFSize, err = strconv.ParseInt(getEnv("MAX_PDF_SIZE", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PDF_SIZE: %w", err)
	}

	cfg.DownloadOnSearch = getEnv("DOWNLOAD_ON_SEARCH", "false") == "true"
	cfg.HeadlessMode = getEnv("HEADLESS_MODE", "true") == "true"
	cfg.Debug = getEnv("DEBUG", "false") == "true"
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
