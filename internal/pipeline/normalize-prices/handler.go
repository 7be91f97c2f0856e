// internal/pipeline/normalize-prices/handler.go
package normalizeprices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pricelens/internal/common/logger"
	"pricelens/internal/common/metrics"
	"pricelens/internal/common/textfold"
	"pricelens/internal/models"
	rankstores "pricelens/internal/pipeline/rank-stores"
)

const (
	UnitName = "normalize-prices"
)

var (
	ErrNilInput        = errors.New("input cannot be nil")
	ErrTestProduct     = errors.New("synthetic test product")
	ErrMissingIdentity = errors.New("product has neither id nor name")
	ErrMissingName     = errors.New("product name is empty")
	ErrNoValidPrices   = errors.New("product has no valid store prices")
)

type Handler struct {
	config *Config
	logger logger.Logger
	ranker *rankstores.Ranker
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config: config,
		logger: logger.ForComponent(log, UnitName),
		ranker: rankstores.NewRanker(config.KnownBrands),
	}
}

// Execute normalizes a batch of raw products and loose offers. Invalid
// records are dropped and reported, never substituted.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}

	output := &Output{
		Products: make([]models.NormalizedProduct, 0, len(input.Products)),
	}

	for _, raw := range input.Products {
		p, err := h.NormalizeProduct(raw)
		if err != nil {
			output.Dropped = append(output.Dropped, h.drop("product", string(raw.ID), err))
			continue
		}
		output.Products = append(output.Products, p)
	}

	offers := make([]models.NormalizedStorePrice, 0, len(input.Offers))
	for _, raw := range input.Offers {
		o, err := h.NormalizeOffer(raw)
		if err != nil {
			output.Dropped = append(output.Dropped, h.drop("offer", raw.Store.Name, err))
			continue
		}
		offers = append(offers, o)
	}
	output.Offers = h.ranker.RankOffers(offers)

	if len(output.Dropped) > 0 {
		h.logger.Debug("records dropped during normalization", map[string]interface{}{
			"dropped":  len(output.Dropped),
			"products": len(output.Products),
			"offers":   len(output.Offers),
		})
	}
	return output, nil
}

func (h *Handler) drop(kind, id string, err error) DroppedRecord {
	reason := dropReason(err)
	metrics.RecordsDropped.WithLabelValues(kind, reason).Inc()
	return DroppedRecord{Kind: kind, ID: id, Reason: reason}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrTestProduct):
		return "test_product"
	case errors.Is(err, ErrNoValidPrices):
		return "no_valid_prices"
	case errors.Is(err, ErrMissingIdentity), errors.Is(err, ErrMissingName):
		return "missing_identity"
	case errors.Is(err, ErrPriceMissing):
		return "price_missing"
	case errors.Is(err, ErrPriceNotPositive):
		return "price_not_positive"
	default:
		return "price_malformed"
	}
}

// NormalizeOffer converts one raw offer. The returned offer is unranked.
func (h *Handler) NormalizeOffer(raw models.RawStoreOffer) (models.NormalizedStorePrice, error) {
	price, err := CoercePrice(raw.Price)
	if err != nil {
		return models.NormalizedStorePrice{}, fmt.Errorf("offer from %q: %w", raw.Store.Name, err)
	}

	storeName := strings.TrimSpace(raw.Store.Name)
	if storeName == "" {
		storeName = h.config.DefaultStore
	}

	return models.NormalizedStorePrice{
		StoreName:     storeName,
		Price:         price,
		DisplayPrice:  models.FormatUSD(price),
		StoreImageURL: ResolveStoreImage(storeName, raw.Store.Logo),
		ShippingInfo:  ShippingInfo(raw, storeName),
		ProductURL:    offerURL(raw),
	}, nil
}

func offerURL(raw models.RawStoreOffer) *string {
	for _, candidate := range []string{raw.ProductURL, raw.Store.URL} {
		if isHTTPURL(candidate) {
			url := strings.TrimSpace(candidate)
			return &url
		}
	}
	return nil
}

// NormalizeProduct converts a raw product and ranks its offers. Products
// without a valid price are rejected.
func (h *Handler) NormalizeProduct(raw models.RawProduct) (models.NormalizedProduct, error) {
	name := strings.TrimSpace(raw.Name)
	id := strings.TrimSpace(string(raw.ID))

	if h.config.TestProductText != "" && textfold.ContainsFold(name, h.config.TestProductText) {
		return models.NormalizedProduct{}, ErrTestProduct
	}
	if id == "" && name == "" {
		return models.NormalizedProduct{}, ErrMissingIdentity
	}
	if name == "" {
		return models.NormalizedProduct{}, fmt.Errorf("product %s: %w", id, ErrMissingName)
	}
	if id == "" {
		id = textfold.Compact(name)
	}

	offers := make([]models.NormalizedStorePrice, 0, len(raw.Prices))
	for _, o := range raw.Prices {
		if normalized, err := h.NormalizeOffer(o); err == nil {
			offers = append(offers, normalized)
		}
	}
	if len(offers) == 0 {
		return models.NormalizedProduct{}, fmt.Errorf("product %s: %w", id, ErrNoValidPrices)
	}

	p := models.NormalizedProduct{
		ID:           id,
		Name:         name,
		ImageURL:     h.productImage(raw),
		Category:     strings.TrimSpace(raw.Category),
		CategorySlug: optional(raw.CategorySlug),
		Subcategory:  optional(raw.Subcategory),
		StorePrices:  offers,
	}
	return h.ranker.RankProduct(p), nil
}

// productImage takes the first usable URL from images, imageUrl and image,
// then falls back to the category placeholder.
func (h *Handler) productImage(raw models.RawProduct) string {
	candidates := make([]string, 0, len(raw.Images)+2)
	for _, img := range raw.Images {
		if s, ok := img.(string); ok {
			candidates = append(candidates, s)
		}
	}
	candidates = append(candidates, raw.ImageURL, raw.Image)

	for _, c := range candidates {
		url := strings.TrimSpace(c)
		if url == "" || !isHTTPURL(url) || strings.Contains(strings.ToLower(url), "example.com") {
			continue
		}
		return url
	}
	return h.config.Images.Placeholder(raw.Category)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
