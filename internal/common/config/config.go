// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Search   SearchConfig   `mapstructure:"search"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BackendConfig describes the price API the pipeline consumes.
type BackendConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	Timeout           int     `mapstructure:"timeout"` // milliseconds, transport ceiling
	ValidatePayloads  bool    `mapstructure:"validate_payloads"`
	TypeaheadIndex    string  `mapstructure:"typeahead_index"` // elasticsearch index; empty disables
}

// SearchConfig drives the incremental load controller.
type SearchConfig struct {
	MinQueryLength      int      `mapstructure:"min_query_length"`
	ShortQueryAllowList []string `mapstructure:"short_query_allow_list"`
	DebounceMs          int      `mapstructure:"debounce_ms"`
	PageSize            int      `mapstructure:"page_size"`
	PrefetchPages       int      `mapstructure:"prefetch_pages"`
	PrefetchConcurrency int      `mapstructure:"prefetch_concurrency"`
	LoadMoreThreshold   int      `mapstructure:"load_more_threshold"`
	FirstPageTimeoutMs  int      `mapstructure:"first_page_timeout_ms"`
	PageTimeoutMs       int      `mapstructure:"page_timeout_ms"`
	PrefetchTimeoutMs   int      `mapstructure:"prefetch_timeout_ms"`
}

type CacheConfig struct {
	CompareTTLSeconds int `mapstructure:"compare_ttl_seconds"`
}

// CompareTTL returns the comparison cache lifetime.
func (c CacheConfig) CompareTTL() time.Duration {
	return time.Duration(c.CompareTTLSeconds) * time.Second
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects the key-value backend for favorites, lists and tokens.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory | redis | postgres
	Prefix string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Address            string  `mapstructure:"address"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"` // per client IP; 0 disables
	Burst              int     `mapstructure:"burst"`
	SessionIdleSeconds int     `mapstructure:"session_idle_seconds"`
	ShutdownTimeoutMs  int     `mapstructure:"shutdown_timeout_ms"`
}

// SessionIdle returns how long an unused loader session survives.
func (s ServerConfig) SessionIdle() time.Duration {
	return time.Duration(s.SessionIdleSeconds) * time.Second
}

type TracingConfig struct {
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"` // empty disables span export
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
