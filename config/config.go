package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sjsage522/listupjorei/pkg/jstdate"
)

// Configuration validation errors
var (
	ErrMissingOutputDir  = errors.New("output directory is required")
	ErrMissingIndexPath  = errors.New("index file path is required")
	ErrInvalidRows       = errors.New("rows must be a positive integer")
	ErrInvalidSleepTime  = errors.New("sleep time must be non-negative")
	ErrInvalidDateRange  = errors.New("start date is after end date")
	ErrInvalidFormat     = errors.New("format must be 'solr' or 'html'")
	ErrInvalidBaseURL    = errors.New("base URL must be an http(s) URL")
	ErrInvalidTimeout    = errors.New("http timeout must be positive")
	ErrInvalidStreamSize = errors.New("redis stream count must be at least 1")
	ErrInvalidEnvValue   = errors.New("invalid environment value")
)

// Supported registry formats
const (
	FormatSolr = "solr"
	FormatHTML = "html"
)

// DefaultBaseURL is the public ordinance registry
const DefaultBaseURL = "https://jorei.slis.doshisha.ac.jp"

// Config represents the application configuration.
// It is built once at startup and never mutated during a run.
type Config struct {
	// Crawl configuration
	OutputDir string
	IndexPath string
	StartDate *jstdate.Date
	EndDate   *jstdate.Date
	Rows      int
	SleepTime time.Duration

	// Registry configuration
	BaseURL            string
	Format             string
	HTTPTimeout        time.Duration
	InsecureSkipVerify bool

	// Skip report
	ErrorLogPath string

	// Memcache configuration
	MemcacheAddr string
	BlockTime    time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	env := envReader{}
	rows := env.getInt("JOREI_ROWS", 50)
	sleepMs := env.getInt("JOREI_SLEEP_TIME_MS", 500)
	timeoutSec := env.getInt("JOREI_HTTP_TIMEOUT_SECONDS", 30)
	blockSec := env.getInt("JOREI_BLOCK_SECONDS", 600)
	insecure := env.getBool("JOREI_INSECURE_SKIP_VERIFY", true)
	redisDB := env.getInt("REDIS_DB", 0)
	streamCount := env.getInt("REDIS_STREAM_COUNT", 1)
	streamMaxLength := env.getInt("REDIS_STREAM_MAX_LENGTH", 10000)
	if env.err != nil {
		return nil, env.err
	}

	cfg := &Config{
		OutputDir:            getEnv("JOREI_OUTPUT_DIR", ""),
		IndexPath:            getEnv("JOREI_INDEX_PATH", ""),
		Rows:                 rows,
		SleepTime:            time.Duration(sleepMs) * time.Millisecond,
		BaseURL:              getEnv("JOREI_BASE_URL", DefaultBaseURL),
		Format:               getEnv("JOREI_FORMAT", FormatSolr),
		HTTPTimeout:          time.Duration(timeoutSec) * time.Second,
		InsecureSkipVerify:   insecure,
		ErrorLogPath:         getEnv("JOREI_ERROR_LOG", ""),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", ""),
		BlockTime:            time.Duration(blockSec) * time.Second,
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "jorei"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLength,
		Environment:          getEnv("JOREI_ENVIRONMENT", "development"),
	}

	if err := cfg.SetStartDate(getEnv("JOREI_START", "")); err != nil {
		return nil, err
	}
	if err := cfg.SetEndDate(getEnv("JOREI_END", "")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SetStartDate parses and sets the inclusive lower bound. Empty clears it.
func (c *Config) SetStartDate(s string) error {
	d, err := parseBound(s, false)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	c.StartDate = d
	return nil
}

// SetEndDate parses and sets the inclusive upper bound. Empty clears it.
func (c *Config) SetEndDate(s string) error {
	d, err := parseBound(s, true)
	if err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	c.EndDate = d
	return nil
}

func parseBound(s string, end bool) (*jstdate.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := jstdate.Parse(s, end)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DateRange returns the configured date filter
func (c *Config) DateRange() jstdate.Range {
	return jstdate.Range{Start: c.StartDate, End: c.EndDate}
}

// ResolvedErrorLogPath returns the skip report path, defaulting into the output directory
func (c *Config) ResolvedErrorLogPath() string {
	if c.ErrorLogPath != "" {
		return c.ErrorLogPath
	}
	return filepath.Join(c.OutputDir, "errors.log")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return ErrMissingOutputDir
	}
	if strings.TrimSpace(c.IndexPath) == "" {
		return ErrMissingIndexPath
	}
	if c.Rows < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRows, c.Rows)
	}
	if c.SleepTime < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSleepTime, c.SleepTime)
	}
	if c.StartDate != nil && c.EndDate != nil && c.StartDate.Compare(*c.EndDate) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, c.StartDate, c.EndDate)
	}
	if c.Format != FormatSolr && c.Format != FormatHTML {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Format)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)
	}
	if c.HTTPTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return ErrInvalidStreamSize
	}
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Output: %s, Index: %s, Range: %s, Rows: %d, Sleep: %s, Format: %s}",
		c.OutputDir,
		c.IndexPath,
		c.DateRange(),
		c.Rows,
		c.SleepTime,
		c.Format,
	)
}

// getEnv retrieves an environment variable or returns a default value
// envReader parses typed environment values and keeps the first failure
type envReader struct {
	err error
}

func (r *envReader) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return n
}

func (r *envReader) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		r.fail(key, value)
		return defaultValue
	}
	return b
}

func (r *envReader) fail(key, value string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q", ErrInvalidEnvValue, key, value)
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
