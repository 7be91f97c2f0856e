// internal/pipeline/rank-stores/handler.go
package rankstores

import (
	"context"
	"errors"
	"time"

	"pricelens/internal/common/logger"
	"pricelens/internal/models"
)

const (
	UnitName = "rank-stores"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

type Handler struct {
	config *Config
	logger logger.Logger
	ranker *Ranker
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config: config,
		logger: logger.ForComponent(log, UnitName),
		ranker: NewRanker(config.KnownBrands),
	}
}

func (h *Handler) Ranker() *Ranker {
	return h.ranker
}

// Execute ranks loose offers and ranks then sorts products. Each product's
// offers are re-ranked from scratch.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	start := time.Now()

	products := make([]models.NormalizedProduct, 0, len(input.Products))
	for _, p := range input.Products {
		products = append(products, h.ranker.RankProduct(p))
	}

	output := &Output{
		Offers:   h.ranker.RankOffers(input.Offers),
		Products: h.ranker.SortProducts(products, input.SortMode),
	}

	duration := time.Since(start)
	h.logger.Debug("ranking completed", map[string]interface{}{
		"offerCount":   len(output.Offers),
		"productCount": len(output.Products),
		"durationMs":   duration.Milliseconds(),
	})
	if h.config.SlowRankThreshold > 0 && duration > h.config.SlowRankThreshold {
		h.logger.Warn("ranking exceeded threshold", map[string]interface{}{
			"durationMs":  duration.Milliseconds(),
			"thresholdMs": h.config.SlowRankThreshold.Milliseconds(),
		})
	}

	return output, nil
}
