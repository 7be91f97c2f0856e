package compareproduct

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"pricelens/internal/backend"
	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"
	"pricelens/internal/models"
	resolveimage "pricelens/internal/pipeline/resolve-image"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeCompare struct {
	resp  *models.CompareResponse
	err   error
	calls int
}

func (f *fakeCompare) Compare(_ context.Context, product string) (*models.CompareResponse, error) {
	f.calls++
	return f.resp, f.err
}

func offer(store string, price interface{}) models.RawStoreOffer {
	return models.RawStoreOffer{Store: models.RawStore{Name: store}, Price: price}
}

func widgetResponse() *models.CompareResponse {
	return &models.CompareResponse{
		Product: &models.RawProduct{ID: "w1", Name: "Widget", Category: "home"},
		Prices: []models.RawStoreOffer{
			offer("Amazon", json.Number("19.99")),
			offer("Walmart", "$18.50"),
			offer("Unknown Shop", json.Number("15.00")),
		},
		Metadata: json.RawMessage(`{"lowestPrice":15,"highestPrice":19.99,"maxSavings":4.99,"totalStores":3}`),
	}
}

func newTestHandler(t *testing.T, be CompareBackend, cache *backend.CompareCache) *Handler {
	t.Helper()
	return NewHandler(LoadConfig(), be, cache, nil, nil, logger.NewTestLogger(t))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ==========================
// Execute Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	inStock := true
	noStock := false

	tests := []struct {
		name           string
		resp           *models.CompareResponse
		input          *Input
		validateOutput func(t *testing.T, out *Output)
	}{
		{
			name:  "known brands rank ahead of cheaper unknown store",
			resp:  widgetResponse(),
			input: &Input{Product: "Widget"},
			validateOutput: func(t *testing.T, out *Output) {
				require.NotNil(t, out.Product)
				require.Len(t, out.Offers, 3)

				assert.Equal(t, "Walmart", out.Offers[0].StoreName)
				assert.Equal(t, 1, out.Offers[0].Rank)
				assert.True(t, out.Offers[0].IsBestDeal)
				assert.Nil(t, out.Offers[0].PriceDifference)

				assert.Equal(t, "Amazon", out.Offers[1].StoreName)
				assert.Equal(t, 2, out.Offers[1].Rank)
				require.NotNil(t, out.Offers[1].PriceDifference)
				assert.Equal(t, "+$1.49 more", *out.Offers[1].PriceDifference)

				assert.Equal(t, "Unknown Shop", out.Offers[2].StoreName)
				assert.Equal(t, 3, out.Offers[2].Rank)
				assert.False(t, out.Offers[2].IsBestDeal)
				assert.Nil(t, out.Offers[2].PriceDifference, "cheaper than the best deal shows no difference")

				assert.True(t, out.Metadata.LowestPrice.Equal(dec("15.00")))
				assert.True(t, out.Metadata.HighestPrice.Equal(dec("19.99")))
				assert.True(t, out.Metadata.MaxSavings.Equal(dec("4.99")))
				assert.Equal(t, 3, out.Metadata.TotalStores)

				assert.Equal(t, "Walmart", out.Product.BestPriceStore)
				assert.True(t, out.Product.BestPrice.Equal(dec("18.50")))
				assert.True(t, out.Product.MaxSavings.Equal(dec("4.99")))
			},
		},
		{
			name: "invalid offers are dropped",
			resp: &models.CompareResponse{
				Product: &models.RawProduct{ID: "w1", Name: "Widget"},
				Prices: []models.RawStoreOffer{
					offer("Amazon", "abc"),
					offer("Walmart", json.Number("-5")),
					offer("Target", json.Number("0")),
					offer("Best Buy", "$12.50"),
				},
			},
			input: &Input{Product: "Widget"},
			validateOutput: func(t *testing.T, out *Output) {
				require.Len(t, out.Offers, 1)
				assert.Equal(t, "Best Buy", out.Offers[0].StoreName)
				assert.Equal(t, "$12.50", out.Offers[0].DisplayPrice)
				assert.Equal(t, 3, out.DroppedOffers)
				assert.Equal(t, 1, out.Metadata.TotalStores)
				assert.True(t, out.Metadata.MaxSavings.IsZero())
			},
		},
		{
			name: "no valid prices yields no product",
			resp: &models.CompareResponse{
				Product: &models.RawProduct{ID: "w1", Name: "Widget"},
				Prices:  []models.RawStoreOffer{offer("Amazon", nil), offer("Walmart", "free")},
			},
			input: &Input{Product: "Widget"},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Nil(t, out.Product)
				assert.Empty(t, out.Offers)
				assert.Equal(t, 2, out.DroppedOffers)
			},
		},
		{
			name: "offer filters rerank from scratch",
			resp: func() *models.CompareResponse {
				r := widgetResponse()
				r.Prices[1].InStock = &noStock
				r.Prices[0].InStock = &inStock
				return r
			}(),
			input: &Input{Product: "Widget", Filter: models.FilterState{InStockOnly: true}},
			validateOutput: func(t *testing.T, out *Output) {
				require.NotEmpty(t, out.Offers)
				assert.Equal(t, "Amazon", out.Offers[0].StoreName)
				assert.Equal(t, 1, out.Offers[0].Rank)
				assert.True(t, out.Offers[0].IsBestDeal)
				for _, o := range out.Offers {
					assert.NotEqual(t, "Walmart", o.StoreName)
				}
				assert.Equal(t, len(out.Offers), out.Metadata.TotalStores)
				assert.GreaterOrEqual(t, out.FilteredOut, 1)
			},
		},
		{
			name:  "store allow list can empty the page",
			resp:  widgetResponse(),
			input: &Input{Product: "Widget", Filter: models.FilterState{SelectedStores: []string{"Costco"}}},
			validateOutput: func(t *testing.T, out *Output) {
				assert.Nil(t, out.Product)
				assert.Empty(t, out.Offers)
				assert.Equal(t, 3, out.FilteredOut)
			},
		},
		{
			name: "missing product block uses the requested name",
			resp: &models.CompareResponse{
				Prices: []models.RawStoreOffer{offer("Target", json.Number("9.99"))},
			},
			input: &Input{Product: "Desk Lamp"},
			validateOutput: func(t *testing.T, out *Output) {
				require.NotNil(t, out.Product)
				assert.Equal(t, "Desk Lamp", out.Product.Name)
				assert.Equal(t, "desklamp", out.Product.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeCompare{resp: tt.resp}, nil)
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			tt.validateOutput(t, out)
		})
	}
}

func TestHandler_Execute_InputErrors(t *testing.T) {
	h := newTestHandler(t, &fakeCompare{resp: widgetResponse()}, nil)

	_, err := h.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilInput)

	_, err = h.Execute(context.Background(), &Input{Product: "  "})
	assert.ErrorIs(t, err, ErrMissingProduct)

	_, err = h.Execute(context.Background(), &Input{Product: "Widget", Filter: models.FilterState{SortMode: "random"}})
	assert.Equal(t, apperrors.ErrCodeInvalidFilter, apperrors.CodeOf(err))
}

func TestHandler_Execute_BackendErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode apperrors.ErrorCode
	}{
		{name: "not found", err: apperrors.NewNotFoundError("compare"), wantCode: apperrors.ErrCodeNotFound},
		{name: "aborted", err: context.Canceled, wantCode: apperrors.ErrCodeRequestAborted},
		{name: "network", err: apperrors.NewNetworkFailureError("compare", assert.AnError), wantCode: apperrors.ErrCodeNetworkFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &fakeCompare{err: tt.err}, nil)
			_, err := h.Execute(context.Background(), &Input{Product: "Widget"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}

func TestHandler_Execute_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := backend.NewCompareCache(client, "test", time.Minute, logger.NewTestLogger(t))
	be := &fakeCompare{resp: widgetResponse()}
	h := newTestHandler(t, be, cache)

	first, err := h.Execute(context.Background(), &Input{Product: "Widget"})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := h.Execute(context.Background(), &Input{Product: "widget"})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, be.calls)

	require.Len(t, second.Offers, 3)
	assert.Equal(t, "Walmart", second.Offers[0].StoreName)
	assert.True(t, second.Metadata.MaxSavings.Equal(first.Metadata.MaxSavings))
}

func TestHandler_Execute_ImagesAreRequestScoped(t *testing.T) {
	be := &fakeCompare{}
	h := newTestHandler(t, be, nil)
	ctx := context.Background()

	withImage := widgetResponse()
	withImage.Product.ImageURL = "https://cdn.shop.com/widget.jpg"
	be.resp = withImage
	first, err := h.Execute(ctx, &Input{Product: "Widget"})
	require.NoError(t, err)
	require.NotNil(t, first.Product)
	assert.Equal(t, "https://cdn.shop.com/widget.jpg", first.Product.ImageURL)

	for i := 0; i < 50; i++ {
		resp := widgetResponse()
		resp.Product.ID = models.FlexibleID(fmt.Sprintf("other-%d", i))
		resp.Product.ImageURL = fmt.Sprintf("https://cdn.shop.com/%d.jpg", i)
		be.resp = resp
		_, err := h.Execute(ctx, &Input{Product: string(resp.Product.ID)})
		require.NoError(t, err)
	}

	be.resp = widgetResponse()
	later, err := h.Execute(ctx, &Input{Product: "Widget"})
	require.NoError(t, err)
	require.NotNil(t, later.Product)
	assert.Equal(t, resolveimage.Placeholder("home"), later.Product.ImageURL,
		"an earlier request's image must not carry over")
}

func TestComputeMetadata(t *testing.T) {
	assert.Equal(t, Metadata{}, computeMetadata(nil))

	meta := computeMetadata([]models.NormalizedStorePrice{
		{StoreName: "A", Price: dec("10.10")},
		{StoreName: "B", Price: dec("7.05")},
		{StoreName: "C", Price: dec("12.00")},
	})
	assert.True(t, meta.LowestPrice.Equal(dec("7.05")))
	assert.True(t, meta.HighestPrice.Equal(dec("12.00")))
	assert.True(t, meta.MaxSavings.Equal(dec("4.95")))
	assert.Equal(t, 3, meta.TotalStores)
}
