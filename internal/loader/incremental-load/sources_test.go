package incrementalload

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pricelens/internal/backend"
	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	"pricelens/internal/models"
	filterresults "pricelens/internal/pipeline/filter-results"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	popular      func(req backend.ListingRequest) (models.ProductPage, error)
	products     func(req backend.SearchRequest) (models.ProductPage, error)
	basic        func(req backend.SearchRequest) (models.ProductPage, error)
	hits         func(req backend.SearchRequest) (backend.HitPage, error)
	basicCalls   int
	productCalls int
}

func (f *fakeBackend) Popular(_ context.Context, req backend.ListingRequest) (models.ProductPage, error) {
	return f.popular(req)
}

func (f *fakeBackend) SearchProducts(_ context.Context, req backend.SearchRequest) (models.ProductPage, error) {
	f.productCalls++
	return f.products(req)
}

func (f *fakeBackend) BasicSearch(_ context.Context, req backend.SearchRequest) (models.ProductPage, error) {
	f.basicCalls++
	return f.basic(req)
}

func (f *fakeBackend) Search(_ context.Context, req backend.SearchRequest) (backend.HitPage, error) {
	return f.hits(req)
}

func rawProduct(id, name string, prices ...string) models.RawProduct {
	p := models.RawProduct{ID: models.FlexibleID(id), Name: name, Category: "electronics"}
	for i, price := range prices {
		store := []string{"Amazon", "Walmart", "Target"}[i%3]
		p.Prices = append(p.Prices, models.RawStoreOffer{Store: models.RawStore{Name: store}, Price: json.Number(price)})
	}
	return p
}

// ==========================
// Product Source Tests
// ==========================

func TestProductSource_Listing(t *testing.T) {
	var got backend.ListingRequest
	fb := &fakeBackend{
		popular: func(req backend.ListingRequest) (models.ProductPage, error) {
			got = req
			return models.ProductPage{Products: []models.RawProduct{
				rawProduct("1", "OLED TV", "999.99", "949.00"),
				rawProduct("2", "Test Product", "1.00"),
				rawProduct("3", "No Price TV"),
			}}, nil
		},
	}
	src := NewProductSource(fb, fb, nil, nil, logger.NewTestLogger(t))

	page, err := src.FetchPage(context.Background(), PageRequest{CategorySlug: "tv", Subcategory: "oled", Page: 1, PageSize: 3})
	require.NoError(t, err)

	assert.Equal(t, backend.ListingRequest{CategorySlug: "tv", Page: 1, PageSize: 3, Subcategory: "oled"}, got)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.Received)
	assert.True(t, page.More(3), "dropped records still count toward a full page")

	p := page.Items[0]
	assert.Equal(t, "Walmart", p.BestPriceStore)
	assert.Contains(t, p.ImageURL, "placeholders/electronics.png")
}

func TestProductSource_SearchFallsBackOnFirstPage(t *testing.T) {
	fb := &fakeBackend{
		products: func(req backend.SearchRequest) (models.ProductPage, error) {
			return models.ProductPage{}, apperrors.NewBackendStatusError("search_products", 502)
		},
		basic: func(req backend.SearchRequest) (models.ProductPage, error) {
			return models.ProductPage{Products: []models.RawProduct{rawProduct("9", "Lamp", "12.50")}}, nil
		},
	}
	src := NewProductSource(fb, fb, nil, nil, logger.NewTestLogger(t))

	page, err := src.FetchPage(context.Background(), PageRequest{Query: "lamp", Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, fb.basicCalls)

	_, err = src.FetchPage(context.Background(), PageRequest{Query: "lamp", Page: 2, PageSize: 20})
	require.Error(t, err)
	assert.Equal(t, 1, fb.basicCalls, "pagination never falls back")
}

func TestProductSource_AbortSkipsFallback(t *testing.T) {
	fb := &fakeBackend{
		products: func(req backend.SearchRequest) (models.ProductPage, error) {
			return models.ProductPage{}, apperrors.NewRequestAbortedError(context.Canceled)
		},
	}
	src := NewProductSource(nil, fb, nil, nil, logger.NewNoOpLogger())

	_, err := src.FetchPage(context.Background(), PageRequest{Query: "lamp", Page: 1})
	assert.True(t, apperrors.IsAbort(err))
	assert.Equal(t, 0, fb.basicCalls)
}

func TestProductSource_MissingBackends(t *testing.T) {
	src := NewProductSource(nil, nil, nil, nil, logger.NewNoOpLogger())

	_, err := src.FetchPage(context.Background(), PageRequest{Page: 1})
	assert.ErrorIs(t, err, ErrNoSearchBackend)
	_, err = src.FetchPage(context.Background(), PageRequest{Query: "x", Page: 1})
	assert.ErrorIs(t, err, ErrNoSearchBackend)
}

func TestProductSource_KeepsLastKnownGoodImage(t *testing.T) {
	image := "https://img.test/tv-front.png"
	fb := &fakeBackend{
		popular: func(req backend.ListingRequest) (models.ProductPage, error) {
			p := rawProduct("1", "OLED TV", "999.99")
			p.ImageURL = image
			return models.ProductPage{Products: []models.RawProduct{p}}, nil
		},
	}
	src := NewProductSource(fb, nil, nil, nil, logger.NewNoOpLogger())

	page, err := src.FetchPage(context.Background(), PageRequest{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, image, page.Items[0].ImageURL)

	image = ""
	page, err = src.FetchPage(context.Background(), PageRequest{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "https://img.test/tv-front.png", page.Items[0].ImageURL)
}

// ==========================
// Typeahead Tests
// ==========================

func TestTypeaheadController(t *testing.T) {
	more := false
	fb := &fakeBackend{
		hits: func(req backend.SearchRequest) (backend.HitPage, error) {
			return backend.HitPage{
				Hits: []models.SearchHit{
					{ID: "1", Name: "Air Fryer", ImageURL: "https://img.test/fryer.png"},
					{ID: "2", Name: "Air Purifier"},
				},
				HasMore:  &more,
				Received: 2,
			}, nil
		},
	}
	cfg := testConfig()
	cfg.RequireQuery = false
	cfg.PrefetchPages = 3
	c := NewTypeaheadController(cfg, NewHitSource(fb, nil), logger.NewTestLogger(t))
	t.Cleanup(c.Close)

	c.OnQueryChange("ai")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateIdle, c.View().State, "typeahead always requires a query")

	c.OnQueryChange("air")
	require.Eventually(t, func() bool { return c.View().State == StateSuccess }, time.Second, time.Millisecond)

	v := c.View()
	require.Len(t, v.Items, 2)
	assert.Equal(t, "https://img.test/fryer.png", v.Items[0].ImageURL)
	assert.Contains(t, v.Items[1].ImageURL, "placeholders/default.png")

	text := "purifier"
	require.NoError(t, c.OnFilterChange(models.FilterPatch{SearchText: &text}))
	assert.Len(t, c.View().Items, 1)
}

func TestProductTransform_UsesPipeline(t *testing.T) {
	fb := &fakeBackend{
		popular: func(req backend.ListingRequest) (models.ProductPage, error) {
			return models.ProductPage{Products: []models.RawProduct{
				rawProduct("1", "Men's Running Shoe", "80.00", "75.00"),
				rawProduct("2", "Women's Running Shoe", "90.00"),
			}}, nil
		},
	}
	cfg := testConfig()
	cfg.RequireQuery = false
	c := NewProductController(cfg, NewProductSource(fb, nil, nil, nil, logger.NewNoOpLogger()), filterresults.NewPipeline(nil), logger.NewTestLogger(t))
	t.Cleanup(c.Close)

	c.OnCategoryChange("shoes")
	require.Eventually(t, func() bool { return c.View().State == StateSuccess }, time.Second, time.Millisecond)

	gender := "women"
	require.NoError(t, c.OnFilterChange(models.FilterPatch{Gender: &gender}))
	v := c.View()
	require.Len(t, v.Items, 1)
	assert.Equal(t, "2", v.Items[0].ID)
	assert.Equal(t, 1, v.Items[0].StorePrices[0].Rank)
}
