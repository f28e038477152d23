package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Artem7898/ai-decision-simulator/internal/config"
	"github.com/Artem7898/ai-decision-simulator/pkg/constants"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Cache backends for external data.
const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

// Config defines runtime parameters for the HTTP server. Values are read from
// YAML and then overridden by DECISION_SIMULATOR_* environment variables.
type Config struct {
	Address         string               `yaml:"address" env:"DECISION_SIMULATOR_ADDRESS"`
	MaxUploadSize   string               `yaml:"maxUploadSize" env:"DECISION_SIMULATOR_MAX_UPLOAD_SIZE"`
	RunTimeout      time.Duration        `yaml:"runTimeout" env:"DECISION_SIMULATOR_RUN_TIMEOUT"`
	Parallelism     int                  `yaml:"parallelism" env:"DECISION_SIMULATOR_PARALLELISM"`
	Simulation      SimulationConfig     `yaml:"simulation"`
	Database        DatabaseConfig       `yaml:"database"`
	Cache           CacheConfig          `yaml:"cache"`
	Logging         config.LoggingConfig `yaml:"logging"`
	uploadSizeBytes int64
}

// SimulationConfig holds the run settings used when a request leaves them unset.
type SimulationConfig struct {
	TimeHorizonYears int `yaml:"timeHorizonYears" env:"DECISION_SIMULATOR_TIME_HORIZON_YEARS"`
	SampleCount      int `yaml:"sampleCount" env:"DECISION_SIMULATOR_SAMPLE_COUNT"`
}

// DatabaseConfig locates the SQLite run store. An empty path disables run
// persistence.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DECISION_SIMULATOR_DATABASE_PATH"`
}

// CacheConfig selects where external data lookups are cached.
type CacheConfig struct {
	Backend       string        `yaml:"backend" env:"DECISION_SIMULATOR_CACHE_BACKEND"`
	TTL           time.Duration `yaml:"ttl" env:"DECISION_SIMULATOR_CACHE_TTL"`
	RedisAddr     string        `yaml:"redisAddr" env:"DECISION_SIMULATOR_REDIS_ADDR"`
	RedisPassword string        `yaml:"redisPassword" env:"DECISION_SIMULATOR_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redisDB" env:"DECISION_SIMULATOR_REDIS_DB"`
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are used without error. Environment overrides apply in both cases.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:       constants.DefaultServerAddress,
		MaxUploadSize: fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes),
		RunTimeout:    constants.DefaultRunTimeoutSeconds * time.Second,
		Simulation: SimulationConfig{
			TimeHorizonYears: constants.DefaultTimeHorizonYears,
			SampleCount:      constants.DefaultSampleCount,
		},
		Database: DatabaseConfig{Path: constants.DefaultDatabasePath},
		Cache: CacheConfig{
			Backend: CacheBackendSQLite,
			TTL:     constants.DefaultCacheTTLSeconds * time.Second,
		},
		Logging:         config.LoggingConfig{},
		uploadSizeBytes: constants.DefaultMaxUploadSizeBytes,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read server config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the configured upload size in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// SetUploadSizeBytes overrides the configured upload size.
func (c *Config) SetUploadSizeBytes(size int64) {
	if size > 0 {
		c.uploadSizeBytes = size
		c.MaxUploadSize = fmt.Sprintf("%d", size)
	}
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.Simulation.TimeHorizonYears < 1 {
		return fmt.Errorf("simulation time horizon must be at least 1 year, got %d", c.Simulation.TimeHorizonYears)
	}
	if c.Simulation.SampleCount < 1 {
		return fmt.Errorf("simulation sample count must be at least 1, got %d", c.Simulation.SampleCount)
	}

	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	switch c.Cache.Backend {
	case "":
		c.Cache.Backend = CacheBackendNone
	case CacheBackendNone, CacheBackendMemory, CacheBackendSQLite:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend redis requires redisAddr")
		}
	default:
		return fmt.Errorf("unsupported cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendSQLite && c.Database.Path == "" {
		return fmt.Errorf("cache backend sqlite requires a database path")
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = constants.DefaultCacheTTLSeconds * time.Second
	}

	sizeStr := strings.TrimSpace(c.MaxUploadSize)
	if sizeStr == "" {
		c.uploadSizeBytes = constants.DefaultMaxUploadSizeBytes
		c.MaxUploadSize = fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes)
		return nil
	}

	bytes, err := ParseSize(sizeStr)
	if err != nil {
		return err
	}
	if bytes <= 0 {
		bytes = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = bytes
	return nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	if numPart == "" {
		return 0, fmt.Errorf("invalid size: %s", value)
	}

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
