package types

import "errors"

// Config holds the settings shared by the CLI, the HTTP server and the jobs.
// Field tags match the keys of config.yaml.
type Config struct {
	CacheBackend    string `mapstructure:"cache_backend" yaml:"cache_backend"`
	RedisURL        string `mapstructure:"redis_url" yaml:"redis_url,omitempty"`
	DataDir         string `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	MondayAPIURL    string `mapstructure:"monday_api_url" yaml:"monday_api_url,omitempty"`
	MondayToken     string `mapstructure:"monday_token" yaml:"monday_token,omitempty"`
	AlertWebhookURL string `mapstructure:"alert_webhook_url" yaml:"alert_webhook_url,omitempty"`
	ListenAddr      string `mapstructure:"listen_addr" yaml:"listen_addr,omitempty"`
	Workers         int    `mapstructure:"workers" yaml:"workers,omitempty"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level,omitempty"`
	LogFormat       string `mapstructure:"log_format" yaml:"log_format,omitempty"`
	BackupBucket    string `mapstructure:"backup_bucket" yaml:"backup_bucket,omitempty"`
	BackupRegion    string `mapstructure:"backup_region" yaml:"backup_region,omitempty"`
	BackupEndpoint  string `mapstructure:"backup_endpoint" yaml:"backup_endpoint,omitempty"`
	BackupAccessKey string `mapstructure:"backup_access_key" yaml:"backup_access_key,omitempty"`
	BackupSecretKey string `mapstructure:"backup_secret_key" yaml:"backup_secret_key,omitempty"`
}

// Supported cache backends.
const (
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
	CacheBackendMemory = "memory"
)

// Config validation errors.
var (
	ErrCacheBackendEmpty   = errors.New("cache backend must not be empty")
	ErrCacheBackendUnknown = errors.New("unknown cache backend")
	ErrRedisURLEmpty       = errors.New("redis backend requires redis_url")
	ErrWorkersInvalid      = errors.New("workers must be positive")
	ErrLogFormatUnknown    = errors.New("unknown log format")
)

var knownCacheBackends = map[string]bool{
	CacheBackendRedis:  true,
	CacheBackendSQLite: true,
	CacheBackendMemory: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.CacheBackend == "" {
		return ErrCacheBackendEmpty
	}
	if !knownCacheBackends[c.CacheBackend] {
		return ErrCacheBackendUnknown
	}
	if c.CacheBackend == CacheBackendRedis && c.RedisURL == "" {
		return ErrRedisURLEmpty
	}
	if c.Workers < 0 {
		return ErrWorkersInvalid
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return ErrLogFormatUnknown
	}
	return nil
}
