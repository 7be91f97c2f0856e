// internal/pipeline/normalize-providers/handler.go
package normalizeproviders

import (
	"context"
	"errors"
	"sort"
	"strings"

	"pricelens/internal/common/logger"
	"pricelens/internal/common/metrics"
	"pricelens/internal/common/textfold"
	resolveimage "pricelens/internal/pipeline/resolve-image"

	"github.com/shopspring/decimal"
)

const (
	UnitName = "normalize-providers"
)

var (
	ErrNilInput    = errors.New("input cannot be nil")
	ErrMissingName = errors.New("provider name is empty")
	ErrUnknownSort = errors.New("unknown provider sort")
)

type Handler struct {
	logger logger.Logger
	images *resolveimage.Config
}

func NewHandler(log logger.Logger) *Handler {
	return &Handler{
		logger: logger.ForComponent(log, UnitName),
		images: resolveimage.LoadConfig(),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	switch input.SortBy {
	case SortByNone, SortByDistance, SortByRating, SortByPrice:
	default:
		return nil, ErrUnknownSort
	}

	output := &Output{Providers: make([]NormalizedProvider, 0, len(input.Providers))}
	for _, raw := range input.Providers {
		p, err := h.NormalizeProvider(raw)
		if err != nil {
			output.Dropped++
			metrics.RecordsDropped.WithLabelValues("provider", "missing_identity").Inc()
			continue
		}
		if !passesFilters(p, input) {
			continue
		}
		output.Providers = append(output.Providers, p)
	}

	SortProviders(output.Providers, input.SortBy)

	h.logger.Debug("providers normalized", map[string]interface{}{
		"received": len(input.Providers),
		"returned": len(output.Providers),
		"dropped":  output.Dropped,
		"sortBy":   string(input.SortBy),
	})
	return output, nil
}

// NormalizeProvider converts one raw record. Records without a name are
// rejected; every other field is optional.
func (h *Handler) NormalizeProvider(raw RawProvider) (NormalizedProvider, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return NormalizedProvider{}, ErrMissingName
	}

	id := strings.TrimSpace(string(raw.ID))
	if id == "" {
		id = textfold.Compact(name + raw.Address)
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = strings.TrimSpace(raw.ServiceType)
	}

	price := ParsePrice(raw.Price, raw.PriceRange)
	p := NormalizedProvider{
		ID:           id,
		Name:         name,
		Category:     category,
		PriceMin:     price.Min,
		PriceMax:     price.Max,
		PriceLevel:   price.Level,
		DisplayPrice: price.Display,
		Hours:        FormatHours(raw.Hours),
		Address:      strings.TrimSpace(raw.Address),
		Phone:        strings.TrimSpace(raw.Phone),
	}
	if r, ok := ParseRating(raw.Rating); ok {
		p.Rating = &r
	}
	if d, ok := ParseDistance(raw.Distance); ok {
		p.DistanceMiles = &d
	}
	p.ImageURL, _ = h.images.Resolve(raw.Image, "", category)
	if site, ok := h.images.Accept(raw.Website); ok {
		p.Website = &site
	}
	return p, nil
}

func passesFilters(p NormalizedProvider, input *Input) bool {
	if input.MinRating != nil && (p.Rating == nil || *p.Rating < *input.MinRating) {
		return false
	}
	if input.MaxPrice != nil && p.PriceMin != nil {
		if p.PriceMin.GreaterThan(decimal.NewFromFloat(*input.MaxPrice)) {
			return false
		}
	}
	return true
}

// SortProviders sorts in place. Providers missing the sort field go last
// in their original order.
func SortProviders(providers []NormalizedProvider, by SortBy) {
	var less func(a, b NormalizedProvider) bool
	switch by {
	case SortByDistance:
		less = func(a, b NormalizedProvider) bool {
			if a.DistanceMiles == nil || b.DistanceMiles == nil {
				return a.DistanceMiles != nil && b.DistanceMiles == nil
			}
			return *a.DistanceMiles < *b.DistanceMiles
		}
	case SortByRating:
		less = func(a, b NormalizedProvider) bool {
			if a.Rating == nil || b.Rating == nil {
				return a.Rating != nil && b.Rating == nil
			}
			return *a.Rating > *b.Rating
		}
	case SortByPrice:
		less = func(a, b NormalizedProvider) bool {
			ka, oka := priceKey(a)
			kb, okb := priceKey(b)
			if !oka || !okb {
				return oka && !okb
			}
			return ka.LessThan(kb)
		}
	default:
		return
	}
	sort.SliceStable(providers, func(i, j int) bool {
		return less(providers[i], providers[j])
	})
}

// priceKey orders explicit prices by minimum and "$$" levels by level.
// A level of n sorts as n*50 dollars.
func priceKey(p NormalizedProvider) (decimal.Decimal, bool) {
	if p.PriceMin != nil {
		return *p.PriceMin, true
	}
	if p.PriceLevel > 0 {
		return decimal.NewFromInt(int64(p.PriceLevel) * 50), true
	}
	return decimal.Zero, false
}
