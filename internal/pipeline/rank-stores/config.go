// internal/pipeline/rank-stores/config.go
package rankstores

import "time"

type Config struct {
	// KnownBrands is ordered by popularity. Index 0 is the most trusted.
	KnownBrands []string
	// SlowRankThreshold triggers a warning log when a ranking pass exceeds it.
	SlowRankThreshold time.Duration
}

// DefaultKnownBrands is the reference list of national retailers.
func DefaultKnownBrands() []string {
	return []string{
		"amazon",
		"walmart",
		"target",
		"best buy",
		"costco",
		"home depot",
		"lowe's",
		"ebay",
		"newegg",
		"b&h",
		"apple",
		"samsung",
		"dell",
		"micro center",
		"staples",
		"macy's",
		"kohl's",
		"sam's club",
		"gamestop",
		"wayfair",
	}
}

func LoadConfig() *Config {
	return &Config{
		KnownBrands:       DefaultKnownBrands(),
		SlowRankThreshold: 50 * time.Millisecond,
	}
}
