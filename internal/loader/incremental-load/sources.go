// internal/loader/incremental-load/sources.go
package incrementalload

import (
	"context"
	"errors"

	"pricelens/internal/backend"
	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	"pricelens/internal/common/textfold"
	"pricelens/internal/models"
	filterresults "pricelens/internal/pipeline/filter-results"
	normalizeprices "pricelens/internal/pipeline/normalize-prices"
	resolveimage "pricelens/internal/pipeline/resolve-image"
)

var (
	ErrNoSearchBackend = errors.New("no search backend configured")
)

type ListingBackend interface {
	Popular(ctx context.Context, req backend.ListingRequest) (models.ProductPage, error)
}

type SearchBackend interface {
	SearchProducts(ctx context.Context, req backend.SearchRequest) (models.ProductPage, error)
	BasicSearch(ctx context.Context, req backend.SearchRequest) (models.ProductPage, error)
}

// HitSearcher is satisfied by both the REST client and the Elasticsearch
// typeahead.
type HitSearcher interface {
	Search(ctx context.Context, req backend.SearchRequest) (backend.HitPage, error)
}

// ProductSource pages priced products. An empty query reads the category
// listing; anything else runs the product search, falling back once to the
// basic search when page 1 fails.
type ProductSource struct {
	listing    ListingBackend
	search     SearchBackend
	normalizer *normalizeprices.Handler
	images     *resolveimage.Memory
	logger     logger.Logger
}

func NewProductSource(listing ListingBackend, search SearchBackend, normalizer *normalizeprices.Handler, images *resolveimage.Memory, log logger.Logger) *ProductSource {
	if normalizer == nil {
		normalizer = normalizeprices.NewHandler(nil, log)
	}
	if images == nil {
		images = resolveimage.NewMemory(nil)
	}
	return &ProductSource{
		listing:    listing,
		search:     search,
		normalizer: normalizer,
		images:     images,
		logger:     logger.ForComponent(log, "product-source"),
	}
}

func (s *ProductSource) FetchPage(ctx context.Context, req PageRequest) (Page[models.NormalizedProduct], error) {
	raw, err := s.fetchRaw(ctx, req)
	if err != nil {
		return Page[models.NormalizedProduct]{}, err
	}

	out, err := s.normalizer.Execute(ctx, &normalizeprices.Input{Products: raw.Products})
	if err != nil {
		return Page[models.NormalizedProduct]{}, err
	}
	for i := range out.Products {
		p := &out.Products[i]
		p.ImageURL = s.images.Resolve(p.ID, p.ImageURL, p.Category)
	}

	return Page[models.NormalizedProduct]{
		Items:    out.Products,
		HasMore:  raw.HasMore,
		Received: len(raw.Products),
	}, nil
}

func (s *ProductSource) fetchRaw(ctx context.Context, req PageRequest) (models.ProductPage, error) {
	if req.Query == "" {
		if s.listing == nil {
			return models.ProductPage{}, ErrNoSearchBackend
		}
		return s.listing.Popular(ctx, backend.ListingRequest{
			CategorySlug: req.CategorySlug,
			Page:         req.Page,
			PageSize:     req.PageSize,
			Subcategory:  req.Subcategory,
		})
	}

	if s.search == nil {
		return models.ProductPage{}, ErrNoSearchBackend
	}
	sreq := backend.SearchRequest{
		Query:        req.Query,
		Page:         req.Page,
		PageSize:     req.PageSize,
		CategorySlug: req.CategorySlug,
	}
	page, err := s.search.SearchProducts(ctx, sreq)
	if err == nil || req.Page != 1 || apperrors.IsAbort(err) || ctx.Err() != nil {
		return page, err
	}

	s.logger.Warn("product search failed, trying basic search", map[string]interface{}{
		"query": req.Query,
		"code":  string(apperrors.CodeOf(err)),
	})
	return s.search.BasicSearch(ctx, sreq)
}

// HitSource pages price-less search hits for the typeahead controller.
type HitSource struct {
	searcher HitSearcher
	images   *resolveimage.Memory
}

func NewHitSource(searcher HitSearcher, images *resolveimage.Memory) *HitSource {
	if images == nil {
		images = resolveimage.NewMemory(nil)
	}
	return &HitSource{searcher: searcher, images: images}
}

func (s *HitSource) FetchPage(ctx context.Context, req PageRequest) (Page[models.SearchHit], error) {
	page, err := s.searcher.Search(ctx, backend.SearchRequest{
		Query:        req.Query,
		Page:         req.Page,
		PageSize:     req.PageSize,
		CategorySlug: req.CategorySlug,
	})
	if err != nil {
		return Page[models.SearchHit]{}, err
	}
	for i := range page.Hits {
		h := &page.Hits[i]
		h.ImageURL = s.images.Resolve(h.ID, h.ImageURL, h.Category)
	}
	return Page[models.SearchHit]{Items: page.Hits, HasMore: page.HasMore, Received: page.Received}, nil
}

// ProductTransform filters and ranks products through the filter pipeline.
func ProductTransform(pipeline *filterresults.Pipeline) Transform[models.NormalizedProduct] {
	if pipeline == nil {
		pipeline = filterresults.NewPipeline(nil)
	}
	return pipeline.Products
}

// HitTransform narrows hits by the filter's search text only; hits carry
// no offers to filter or rank.
func HitTransform(items []models.SearchHit, f models.FilterState) []models.SearchHit {
	out := make([]models.SearchHit, 0, len(items))
	for _, h := range items {
		if f.SearchText != "" && !textfold.ContainsFold(h.Name, f.SearchText) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// NewProductController wires a product controller over the given source.
func NewProductController(config *Config, source *ProductSource, pipeline *filterresults.Pipeline, log logger.Logger) *Controller[models.NormalizedProduct] {
	return NewController[models.NormalizedProduct](config, source, ProductTransform(pipeline), log)
}

// NewTypeaheadController wires a controller over price-less hits. It always
// requires a query.
func NewTypeaheadController(config *Config, source *HitSource, log logger.Logger) *Controller[models.SearchHit] {
	if config == nil {
		config = LoadConfig()
	}
	cfg := *config
	cfg.RequireQuery = true
	cfg.PrefetchPages = 0
	return NewController[models.SearchHit](&cfg, source, HitTransform, log)
}
