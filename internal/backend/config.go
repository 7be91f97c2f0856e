// internal/backend/config.go
package backend

import (
	"time"

	"pricelens/internal/common/config"
)

type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	ValidatePayloads  bool
	RetryBackoff      time.Duration
	MaxBodyBytes      int64
}

// ConfigFrom maps the application backend section onto the client config.
func ConfigFrom(cfg config.BackendConfig) *Config {
	return &Config{
		BaseURL:           cfg.BaseURL,
		APIKey:            cfg.APIKey,
		Timeout:           config.GetDuration(cfg.Timeout),
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		ValidatePayloads:  cfg.ValidatePayloads,
		RetryBackoff:      250 * time.Millisecond,
		MaxBodyBytes:      8 << 20,
	}
}
