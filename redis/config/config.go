// Package config reads Redis connection settings from the environment.
package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// RedisConfig holds Redis connection and queue parameters
type RedisConfig struct {
	Host            string
	Port            int
	Password        string
	DB              int
	Workers         int
	RetryInterval   time.Duration
	MaxRetries      int
	RetentionPeriod time.Duration
	UseTLS          bool
	CAFile          string
	KeyPrefix       string
	QueuePriorities map[string]int
}

const (
	defaultHost          = "localhost"
	defaultPort          = 6379
	defaultDB            = 0
	defaultWorkers       = 5
	defaultRetryInterval = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetentionDays = 1
	defaultKeyPrefix     = "reviewlink:"
	minPort              = 1
	maxPort              = 65535
	minDB                = 0
	maxDB                = 15
	minWorkers           = 1
	maxWorkers           = 100
	minRetryInterval     = time.Second
	maxRetryInterval     = time.Hour
	minMaxRetries        = 0
	maxMaxRetries        = 10
	minRetentionDays     = 0
	maxRetentionDays     = 30
)

const (
	QueueAnalytics = "analytics"
	QueueDefault   = "default"
)

// DefaultQueuePriorities defines the default priority settings for task queues
var DefaultQueuePriorities = map[string]int{
	QueueAnalytics: 3,
	QueueDefault:   1,
}

// NewRedisConfig builds a configuration from REDIS_* environment variables.
// REDIS_URL, when set, takes precedence over REDIS_HOST/PORT/PASSWORD/DB.
func NewRedisConfig() (*RedisConfig, error) {
	cfg := &RedisConfig{
		Host:            getEnvOrDefault("REDIS_HOST", defaultHost),
		Password:        os.Getenv("REDIS_PASSWORD"),
		UseTLS:          getEnvBool("REDIS_USE_TLS"),
		CAFile:          os.Getenv("REDIS_CA_FILE"),
		KeyPrefix:       getEnvOrDefault("REDIS_KEY_PREFIX", defaultKeyPrefix),
		QueuePriorities: make(map[string]int, len(DefaultQueuePriorities)),
	}

	for queue, priority := range DefaultQueuePriorities {
		cfg.QueuePriorities[queue] = priority
	}

	var errs error

	if port, err := validateInt("port", getEnvOrDefault("REDIS_PORT", strconv.Itoa(defaultPort)), minPort, maxPort); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		cfg.Port = port
	}

	if db, err := validateInt("DB", getEnvOrDefault("REDIS_DB", strconv.Itoa(defaultDB)), minDB, maxDB); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		cfg.DB = db
	}

	if workers, err := validateInt("workers", getEnvOrDefault("REDIS_WORKERS", strconv.Itoa(defaultWorkers)), minWorkers, maxWorkers); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		cfg.Workers = workers
	}

	if interval, err := validateRetryInterval(getEnvOrDefault("REDIS_RETRY_INTERVAL", defaultRetryInterval.String())); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		cfg.RetryInterval = interval
	}

	if retries, err := validateInt("max retries", getEnvOrDefault("REDIS_MAX_RETRIES", strconv.Itoa(defaultMaxRetries)), minMaxRetries, maxMaxRetries); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		cfg.MaxRetries = retries
	}

	if days, err := validateInt("retention days", getEnvOrDefault("REDIS_RETENTION_DAYS", strconv.Itoa(defaultRetentionDays)), minRetentionDays, maxRetentionDays); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		cfg.RetentionPeriod = time.Duration(days) * 24 * time.Hour
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		errs = multierr.Append(errs, cfg.ApplyURL(redisURL))
	}

	if cfg.UseTLS && cfg.CAFile != "" {
		if _, err := os.Stat(cfg.CAFile); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("CA file error: %w", err))
		}
	}

	if errs != nil {
		return nil, errs
	}

	return cfg, nil
}

// ApplyURL overrides the connection settings with those of a
// redis:// or rediss:// URL.
func (c *RedisConfig) ApplyURL(raw string) error {
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid Redis URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "redis":
	case "rediss":
		c.UseTLS = true
	default:
		return fmt.Errorf("invalid Redis URL scheme %q", parsedURL.Scheme)
	}

	if host := parsedURL.Hostname(); host != "" {
		c.Host = host
	}

	c.Port = defaultPort

	if port := parsedURL.Port(); port != "" {
		p, err := validateInt("port", port, minPort, maxPort)
		if err != nil {
			return fmt.Errorf("invalid port in Redis URL: %w", err)
		}

		c.Port = p
	}

	if password, ok := parsedURL.User.Password(); ok {
		c.Password = password
	}

	if path := strings.TrimPrefix(parsedURL.Path, "/"); path != "" {
		db, err := validateInt("DB", path, minDB, maxDB)
		if err != nil {
			return fmt.Errorf("invalid database number in Redis URL: %w", err)
		}

		c.DB = db
	}

	return nil
}

// GetRedisAddr returns the formatted Redis address
func (c *RedisConfig) GetRedisAddr() string {
	host := c.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}

	return fmt.Sprintf("%s:%d", host, c.Port)
}

// TLSConfig returns nil when TLS is disabled.
func (c *RedisConfig) TLSConfig() (*tls.Config, error) {
	if !c.UseTLS {
		return nil, nil
	}

	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: c.Host,
	}

	if c.CAFile != "" {
		pem, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("CA file contains no certificates")
		}

		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

// Options returns go-redis client options.
func (c *RedisConfig) Options() (*redis.Options, error) {
	tlsCfg, err := c.TLSConfig()
	if err != nil {
		return nil, err
	}

	return &redis.Options{
		Addr:         c.GetRedisAddr(),
		Password:     c.Password,
		DB:           c.DB,
		TLSConfig:    tlsCfg,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}, nil
}

// AsynqOpt returns the asynq connection option for the same server.
func (c *RedisConfig) AsynqOpt() (asynq.RedisClientOpt, error) {
	tlsCfg, err := c.TLSConfig()
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:         c.GetRedisAddr(),
		Password:     c.Password,
		DB:           c.DB,
		TLSConfig:    tlsCfg,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
	}, nil
}

func validateInt(name, value string, minValue, maxValue int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", name, err)
	}

	if n < minValue || n > maxValue {
		return 0, fmt.Errorf("%s must be between %d and %d", name, minValue, maxValue)
	}

	return n, nil
}

func validateRetryInterval(interval string) (time.Duration, error) {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %w", err)
	}

	if d < minRetryInterval || d > maxRetryInterval {
		return 0, fmt.Errorf("retry interval must be between %v and %v", minRetryInterval, maxRetryInterval)
	}

	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

func getEnvBool(key string) bool {
	value := strings.ToLower(os.Getenv(key))

	return value == "true" || value == "1" || value == "yes"
}
