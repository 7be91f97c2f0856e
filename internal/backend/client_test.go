package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &Config{
		BaseURL:          srv.URL,
		APIKey:           "test-key",
		Timeout:          2 * time.Second,
		ValidatePayloads: true,
		RetryBackoff:     time.Millisecond,
		MaxBodyBytes:     1 << 20,
	}
	for _, m := range mutate {
		m(cfg)
	}
	c, err := NewClient(cfg, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	return c, srv
}

func jsonResponse(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// ==========================
// Construction Tests
// ==========================

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(&Config{}, nil, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = NewClient(nil, nil, logger.NewNoOpLogger())
	assert.ErrorIs(t, err, ErrMissingBaseURL)
}

// ==========================
// Endpoint Tests
// ==========================

func TestClient_Popular_QueryAndEnvelope(t *testing.T) {
	var gotQuery, gotKey, gotPath string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-API-Key")
		jsonResponse(200, `{"products":[{"id":7,"name":"Kettle","prices":[{"store":"Walmart","price":"19.99"}]}],"hasMore":true}`)(w, r)
	})

	page, err := c.Popular(context.Background(), ListingRequest{CategorySlug: "kitchen", Page: 2, PageSize: 20, Subcategory: "kettles"})
	require.NoError(t, err)

	assert.Equal(t, "/api/products/popular", gotPath)
	assert.Contains(t, gotQuery, "category=kitchen")
	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "limit=20")
	assert.Contains(t, gotQuery, "subcategory=kettles")
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, page.Products, 1)
	assert.Equal(t, "7", string(page.Products[0].ID))
	require.NotNil(t, page.HasMore)
	assert.True(t, *page.HasMore)
}

func TestClient_SearchProducts_BareArray(t *testing.T) {
	c, _ := newTestClient(t, jsonResponse(200, `[{"id":"a","name":"Lamp"},{"id":"b","name":"Desk"}]`))

	page, err := c.SearchProducts(context.Background(), SearchRequest{Query: "lamp", Page: 1})
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)
	assert.Nil(t, page.HasMore)
}

func TestClient_Search_DropsInvalidHits(t *testing.T) {
	c, _ := newTestClient(t, jsonResponse(200, `[
		{"id":"1","name":"Air Fryer","image":"https://img.test/a.png","categorySlug":"kitchen"},
		{"id":"","name":"No id"},
		{"id":"3","name":"  "},
		{"id":"4","name":"Test Product 4"},
		{"id":5,"name":"Blender","imageUrl":"https://img.test/b.png"}
	]`))

	page, err := c.Search(context.Background(), SearchRequest{Query: "air"})
	require.NoError(t, err)
	require.Len(t, page.Hits, 2)

	assert.Equal(t, "1", page.Hits[0].ID)
	require.NotNil(t, page.Hits[0].CategorySlug)
	assert.Equal(t, "kitchen", *page.Hits[0].CategorySlug)
	assert.Equal(t, "5", page.Hits[1].ID)
	assert.Equal(t, "https://img.test/b.png", page.Hits[1].ImageURL)
	assert.Nil(t, page.Hits[1].CategorySlug)
}

func TestClient_Compare(t *testing.T) {
	var gotProduct string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotProduct = r.URL.Query().Get("product")
		jsonResponse(200, `{"product":{"id":"p1","name":"Widget"},"prices":[{"store":{"name":"Amazon"},"price":19.99}],"metadata":{"totalStores":1}}`)(w, r)
	})

	resp, err := c.Compare(context.Background(), "  Widget ")
	require.NoError(t, err)
	assert.Equal(t, "Widget", gotProduct)
	require.NotNil(t, resp.Product)
	assert.Equal(t, "Widget", resp.Product.Name)
	require.Len(t, resp.Prices, 1)
	assert.Equal(t, "Amazon", resp.Prices[0].Store.Name)

	meta, ok := resp.DecodeMetadata()
	assert.True(t, ok)
	assert.Equal(t, 1, meta.TotalStores)
}

func TestClient_Providers_BothEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[{"id":"1","name":"Joe's Plumbing"}]`},
		{name: "wrapped", body: `{"providers":[{"id":"1","name":"Joe's Plumbing"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery string
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.RawQuery
				jsonResponse(200, tt.body)(w, r)
			})

			providers, err := c.Providers(context.Background(), ProviderRequest{Category: "home", ZipCode: "94107"})
			require.NoError(t, err)
			require.Len(t, providers, 1)
			assert.Equal(t, "Joe's Plumbing", providers[0].Name)
			assert.Contains(t, gotQuery, "zipCode=94107")
		})
	}
}

// ==========================
// Error Taxonomy Tests
// ==========================

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode apperrors.ErrorCode
		wantHits int32
	}{
		{
			name:     "not found is not retried",
			handler:  jsonResponse(404, `{}`),
			wantCode: apperrors.ErrCodeNotFound,
			wantHits: 1,
		},
		{
			name:     "client error is not retried",
			handler:  jsonResponse(400, `{}`),
			wantCode: apperrors.ErrCodeBackendStatus,
			wantHits: 1,
		},
		{
			name:     "server error retried once",
			handler:  jsonResponse(503, `{}`),
			wantCode: apperrors.ErrCodeBackendStatus,
			wantHits: 2,
		},
		{
			name:     "schema mismatch",
			handler:  jsonResponse(200, `{"items":[]}`),
			wantCode: apperrors.ErrCodeSchemaMismatch,
			wantHits: 1,
		},
		{
			name:     "malformed body",
			handler:  jsonResponse(200, `{"products": [`),
			wantCode: apperrors.ErrCodeMalformedData,
			wantHits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				tt.handler(w, r)
			})

			_, err := c.Popular(context.Background(), ListingRequest{CategorySlug: "tv"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Equal(t, tt.wantHits, atomic.LoadInt32(&hits))
		})
	}
}

func TestClient_NetworkFailureRetriedTwice(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			return
		}
		if conn, _, err := hj.Hijack(); err == nil {
			_ = conn.Close()
		}
	})

	_, err := c.Popular(context.Background(), ListingRequest{CategorySlug: "tv"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNetworkFailure, apperrors.CodeOf(err))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClient_RecoversAfterTransientFailure(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			jsonResponse(502, `{}`)(w, r)
			return
		}
		jsonResponse(200, `[]`)(w, r)
	})

	page, err := c.Popular(context.Background(), ListingRequest{CategorySlug: "tv"})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_CancelledContextIsAbort(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Popular(ctx, ListingRequest{CategorySlug: "tv"})
	require.Error(t, err)
	assert.True(t, apperrors.IsAbort(err))
	assert.False(t, apperrors.IsUserVisible(apperrors.CodeOf(err), true))
}

func TestClient_DeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Popular(ctx, ListingRequest{CategorySlug: "tv"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSearchTimeout, apperrors.CodeOf(err))
}

func TestClient_ValidationDisabled(t *testing.T) {
	c, _ := newTestClient(t, jsonResponse(200, `{"items":[]}`), func(cfg *Config) {
		cfg.ValidatePayloads = false
	})

	page, err := c.Popular(context.Background(), ListingRequest{CategorySlug: "tv"})
	require.NoError(t, err)
	assert.Empty(t, page.Products)
}
