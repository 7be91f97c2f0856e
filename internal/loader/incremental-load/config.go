// internal/loader/incremental-load/config.go
package incrementalload

import (
	"strings"
	"time"
	"unicode/utf8"

	"pricelens/internal/common/config"
)

type Config struct {
	MinQueryLength      int
	ShortQueryAllowList []string
	Debounce            time.Duration
	PageSize            int
	PrefetchPages       int
	PrefetchConcurrency int
	LoadMoreThreshold   int
	FirstPageTimeout    time.Duration
	PageTimeout         time.Duration
	PrefetchTimeout     time.Duration

	// RequireQuery makes an empty query clear the results instead of
	// loading the plain category listing.
	RequireQuery bool
}

func LoadConfig() *Config {
	return &Config{
		MinQueryLength:      3,
		ShortQueryAllowList: config.DefaultShortQueryAllowList(),
		Debounce:            1500 * time.Millisecond,
		PageSize:            20,
		PrefetchPages:       5,
		PrefetchConcurrency: 3,
		LoadMoreThreshold:   4,
		FirstPageTimeout:    35 * time.Second,
		PageTimeout:         15 * time.Second,
		PrefetchTimeout:     8 * time.Second,
	}
}

// ConfigFrom maps the search section of the application config.
func ConfigFrom(cfg config.SearchConfig) *Config {
	return &Config{
		MinQueryLength:      cfg.MinQueryLength,
		ShortQueryAllowList: append([]string(nil), cfg.ShortQueryAllowList...),
		Debounce:            config.GetDuration(cfg.DebounceMs),
		PageSize:            cfg.PageSize,
		PrefetchPages:       cfg.PrefetchPages,
		PrefetchConcurrency: cfg.PrefetchConcurrency,
		LoadMoreThreshold:   cfg.LoadMoreThreshold,
		FirstPageTimeout:    config.GetDuration(cfg.FirstPageTimeoutMs),
		PageTimeout:         config.GetDuration(cfg.PageTimeoutMs),
		PrefetchTimeout:     config.GetDuration(cfg.PrefetchTimeoutMs),
	}
}

// QueryAllowed applies the length gate. Short abbreviations on the allow
// list pass regardless of length.
func (c *Config) QueryAllowed(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if utf8.RuneCountInString(q) >= c.MinQueryLength {
		return true
	}
	for _, abbr := range c.ShortQueryAllowList {
		if strings.ToLower(abbr) == q {
			return true
		}
	}
	return false
}
