// internal/loader/compare-product/config.go
package compareproduct

import (
	"time"

	"pricelens/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}

// ConfigFrom uses the pagination budget; a compare fetch is a single page.
func ConfigFrom(cfg config.SearchConfig) *Config {
	c := LoadConfig()
	if cfg.PageTimeoutMs > 0 {
		c.Timeout = config.GetDuration(cfg.PageTimeoutMs)
	}
	return c
}
