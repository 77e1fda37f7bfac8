// Package config holds the runtime configuration of the pharmacy validator.
// Values come from environment variables (optionally loaded from a .env file)
// and are validated once at startup.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment the process runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// String returns the short name of the environment
func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long spelling of each environment
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

const (
	DefaultRegisterURL  = "https://www.pharmcouncil.co.za/B_Registers.asp"
	DefaultQueryParam   = "txtName"
	DefaultNameColumn   = "PharmacyName"
	DefaultFetchDelay   = 1500 * time.Millisecond
	DefaultFetchTimeout = 10 * time.Second
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum uploaded table size in bytes
	WriteTimeout      time.Duration

	RegisterURL    string
	QueryParam     string
	RequestTimeout time.Duration
	FetchDelay     time.Duration
	NameColumn     string
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 10485760),   // 10MB
		RegisterURL:       getEnvWithDefault("REGISTER_URL", DefaultRegisterURL),
		QueryParam:        getEnvWithDefault("REGISTER_QUERY_PARAM", DefaultQueryParam),
		NameColumn:        getEnvWithDefault("NAME_COLUMN", DefaultNameColumn),
	}

	durations := []struct {
		key    string
		def    time.Duration
		target *time.Duration
	}{
		{"WRITE_TIMEOUT", 10 * time.Minute, &cfg.WriteTimeout},
		{"REQUEST_TIMEOUT", DefaultFetchTimeout, &cfg.RequestTimeout},
		{"FETCH_DELAY", DefaultFetchDelay, &cfg.FetchDelay},
	}
	for _, d := range durations {
		value, err := getDurationEnvWithDefault(d.key, d.def)
		if err != nil {
			return nil, fmt.Errorf("configuration validation failed: invalid %s: %w", d.key, err)
		}
		*d.target = value
	}

	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}
	cfg.Env = env

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every value. It is exported so flag overrides can be
// re-validated after Load.
func (cfg *Config) Validate() error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateRegisterURL(cfg.RegisterURL); err != nil {
		return fmt.Errorf("invalid REGISTER_URL: %w", err)
	}

	if strings.TrimSpace(cfg.QueryParam) == "" {
		return fmt.Errorf("invalid REGISTER_QUERY_PARAM: cannot be empty")
	}

	if strings.TrimSpace(cfg.NameColumn) == "" {
		return fmt.Errorf("invalid NAME_COLUMN: cannot be empty")
	}

	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: must be positive, got: %s", cfg.RequestTimeout)
	}

	if cfg.FetchDelay < 0 {
		return fmt.Errorf("invalid FETCH_DELAY: cannot be negative, got: %s", cfg.FetchDelay)
	}

	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("invalid WRITE_TIMEOUT: must be positive, got: %s", cfg.WriteTimeout)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	validLevels := []string{"debug", "info", "warn", "error"}

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateRegisterURL requires an absolute http(s) URL without a query string,
// the lookup parameter is appended per request
func validateRegisterURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("REGISTER_URL is not a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("REGISTER_URL must use http or https, got: %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("REGISTER_URL must include a host")
	}

	if u.RawQuery != "" {
		return fmt.Errorf("REGISTER_URL must not carry a query string")
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go duration strings ("1.5s") or plain
// seconds ("10"). Anything else is an error rather than the default.
func getDurationEnvWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("%s must be a duration like \"1.5s\" or a number of seconds, got: %q", key, value)
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"WRITE_TIMEOUT",
		"REGISTER_URL",
		"REGISTER_QUERY_PARAM",
		"REQUEST_TIMEOUT",
		"FETCH_DELAY",
		"NAME_COLUMN",
	}
}
