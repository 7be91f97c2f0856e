// internal/pipeline/normalize-prices/config.go
package normalizeprices

import (
	rankstores "pricelens/internal/pipeline/rank-stores"
	resolveimage "pricelens/internal/pipeline/resolve-image"
)

type Config struct {
	KnownBrands     []string
	Images          *resolveimage.Config
	DefaultStore    string
	TestProductText string
}

func LoadConfig() *Config {
	return &Config{
		KnownBrands:     rankstores.DefaultKnownBrands(),
		Images:          resolveimage.LoadConfig(),
		DefaultStore:    "Unknown Store",
		TestProductText: "test product",
	}
}
