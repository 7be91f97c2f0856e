// internal/loader/compare-product/handler.go
package compareproduct

import (
	"context"
	"errors"
	"strings"

	"pricelens/internal/backend"
	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	"pricelens/internal/models"
	filterresults "pricelens/internal/pipeline/filter-results"
	normalizeprices "pricelens/internal/pipeline/normalize-prices"
	rankstores "pricelens/internal/pipeline/rank-stores"
	resolveimage "pricelens/internal/pipeline/resolve-image"

	"github.com/shopspring/decimal"
)

const (
	UnitName = "compare-product"
)

var (
	ErrNilInput       = errors.New("input cannot be nil")
	ErrMissingProduct = errors.New("product name or id is required")
)

type CompareBackend interface {
	Compare(ctx context.Context, productNameOrID string) (*models.CompareResponse, error)
}

// Handler builds the comparison page for one product: every store offer,
// normalized, filtered and ranked.
type Handler struct {
	config     *Config
	backend    CompareBackend
	cache      *backend.CompareCache
	normalizer *normalizeprices.Handler
	pipeline   *filterresults.Pipeline
	logger     logger.Logger
}

// NewHandler wires the handler. cache may be nil to disable caching.
func NewHandler(config *Config, be CompareBackend, cache *backend.CompareCache, normalizer *normalizeprices.Handler, pipeline *filterresults.Pipeline, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	if normalizer == nil {
		normalizer = normalizeprices.NewHandler(nil, log)
	}
	if pipeline == nil {
		pipeline = filterresults.NewPipeline(nil)
	}
	return &Handler{
		config:     config,
		backend:    be,
		cache:      cache,
		normalizer: normalizer,
		pipeline:   pipeline,
		logger:     logger.ForComponent(log, UnitName),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	product := strings.TrimSpace(input.Product)
	if product == "" {
		return nil, ErrMissingProduct
	}
	if err := input.Filter.Validate(); err != nil {
		return nil, apperrors.NewInvalidFilterError(err.Error())
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	resp, fromCache, err := h.fetch(ctx, product)
	if err != nil {
		return nil, err
	}

	raw := models.RawProduct{Name: product}
	if resp.Product != nil {
		raw = *resp.Product
		if strings.TrimSpace(raw.Name) == "" {
			raw.Name = product
		}
	}
	if len(resp.Prices) > 0 {
		raw.Prices = resp.Prices
	}

	output := &Output{Offers: []models.NormalizedStorePrice{}, FromCache: fromCache}

	normalized, err := h.normalizer.Execute(ctx, &normalizeprices.Input{Products: []models.RawProduct{raw}})
	if err != nil {
		return nil, err
	}
	if len(normalized.Products) == 0 {
		output.DroppedOffers = len(raw.Prices)
		h.logger.Debug("no valid offers for product", map[string]interface{}{
			"product": product,
			"offers":  len(raw.Prices),
		})
		return output, nil
	}

	p := normalized.Products[0]
	output.DroppedOffers = len(raw.Prices) - len(p.StorePrices)
	// Each request resolves with its own resolver; no image state outlives it.
	p.ImageURL = resolveimage.NewResolver(nil, p.Category).Resolve(p.ImageURL)

	offers := h.pipeline.Offers(p.StorePrices, input.Filter)
	output.FilteredOut = len(p.StorePrices) - len(offers)
	if len(offers) == 0 {
		return output, nil
	}

	p.StorePrices = offers
	rankstores.ApplyAggregates(&p)
	output.Product = &p
	output.Offers = offers
	output.Metadata = computeMetadata(offers)

	h.checkAdvisory(product, resp, output.Metadata)
	h.logger.Debug("comparison built", map[string]interface{}{
		"product":   product,
		"offers":    len(offers),
		"dropped":   output.DroppedOffers,
		"filtered":  output.FilteredOut,
		"fromCache": fromCache,
	})
	return output, nil
}

func (h *Handler) fetch(ctx context.Context, product string) (*models.CompareResponse, bool, error) {
	if resp, ok := h.cache.Get(ctx, product); ok {
		return resp, true, nil
	}

	resp, err := h.backend.Compare(ctx, product)
	if err != nil {
		std := apperrors.Classify(err)
		if std.Code == apperrors.ErrCodeRequestAborted {
			h.logger.Debug("compare aborted", map[string]interface{}{"product": product})
		} else {
			h.logger.Warn("compare fetch failed", map[string]interface{}{
				"product": product,
				"code":    string(std.Code),
				"error":   std.Error(),
			})
		}
		return nil, false, std
	}

	h.cache.Set(ctx, product, resp)
	return resp, false, nil
}

// checkAdvisory logs when the backend's own summary disagrees with the
// offers it sent. The computed metadata is always the one returned.
func (h *Handler) checkAdvisory(product string, resp *models.CompareResponse, computed Metadata) {
	meta, ok := resp.DecodeMetadata()
	if !ok {
		return
	}
	lowest, err := decimal.NewFromString(meta.LowestPrice.String())
	if err == nil && models.RoundMoney(lowest).Equal(computed.LowestPrice) && meta.TotalStores == computed.TotalStores {
		return
	}
	h.logger.Debug("ignoring inconsistent backend metadata", map[string]interface{}{
		"product":        product,
		"backendLowest":  meta.LowestPrice.String(),
		"backendStores":  meta.TotalStores,
		"computedLowest": computed.LowestPrice.String(),
		"computedStores": computed.TotalStores,
	})
}

func computeMetadata(offers []models.NormalizedStorePrice) Metadata {
	if len(offers) == 0 {
		return Metadata{}
	}
	lo, hi := offers[0].Price, offers[0].Price
	for _, o := range offers[1:] {
		if o.Price.LessThan(lo) {
			lo = o.Price
		}
		if o.Price.GreaterThan(hi) {
			hi = o.Price
		}
	}
	return Metadata{
		LowestPrice:  lo,
		HighestPrice: hi,
		MaxSavings:   models.RoundMoney(hi.Sub(lo)),
		TotalStores:  len(offers),
	}
}
