// internal/pipeline/filter-results/handler.go
package filterresults

import (
	"context"
	"errors"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	"pricelens/internal/models"
	rankstores "pricelens/internal/pipeline/rank-stores"
)

const (
	UnitName = "filter-results"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
)

// Pipeline applies the filter stages and then re-ranks the survivors. It
// holds no mutable state, so the same filter applied twice gives the same
// result.
type Pipeline struct {
	ranker *rankstores.Ranker
}

func NewPipeline(ranker *rankstores.Ranker) *Pipeline {
	if ranker == nil {
		ranker = rankstores.NewRanker(rankstores.DefaultKnownBrands())
	}
	return &Pipeline{ranker: ranker}
}

// Products filters, re-ranks each product's offers from scratch and sorts
// the list by the filter's sort mode. The input slice is not modified.
func (p *Pipeline) Products(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct {
	current := products
	for _, stage := range productStages {
		current = stage(current, f)
	}

	ranked := make([]models.NormalizedProduct, 0, len(current))
	for _, prod := range current {
		ranked = append(ranked, p.ranker.RankProduct(prod))
	}
	return p.ranker.SortProducts(ranked, f.SortMode)
}

// Offers applies the offer-level filters of a single product comparison
// and re-ranks the survivors.
func (p *Pipeline) Offers(offers []models.NormalizedStorePrice, f models.FilterState) []models.NormalizedStorePrice {
	var text offerPredicate
	if folded := foldedSearch(f); folded != "" {
		text = storeContains(folded)
	}
	var stock offerPredicate
	if f.InStockOnly {
		stock = inStock
	}

	kept := narrowOffers(offers, storeAllowList(f), text, stock, delivery(f.DeliveryType))
	return p.ranker.RankOffers(kept)
}

type Handler struct {
	logger   logger.Logger
	pipeline *Pipeline
}

func NewHandler(ranker *rankstores.Ranker, log logger.Logger) *Handler {
	return &Handler{
		logger:   logger.ForComponent(log, UnitName),
		pipeline: NewPipeline(ranker),
	}
}

func (h *Handler) Pipeline() *Pipeline {
	return h.pipeline
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	if err := input.Filter.Validate(); err != nil {
		return nil, apperrors.NewInvalidFilterError(err.Error())
	}

	output := &Output{
		Products: h.pipeline.Products(input.Products, input.Filter),
		Offers:   h.pipeline.Offers(input.Offers, input.Filter),
	}

	h.logger.Debug("filters applied", map[string]interface{}{
		"productsIn":  len(input.Products),
		"productsOut": len(output.Products),
		"offersIn":    len(input.Offers),
		"offersOut":   len(output.Offers),
	})
	return output, nil
}
