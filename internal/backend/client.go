// internal/backend/client.go
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "pricelens/internal/common/errors"
	commonhttp "pricelens/internal/common/http"
	"pricelens/internal/common/logger"
	"pricelens/internal/common/metrics"
	"pricelens/internal/common/observability"
	"pricelens/internal/common/textfold"
	"pricelens/internal/common/validation"
	"pricelens/internal/models"
	normalizeproviders "pricelens/internal/pipeline/normalize-providers"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	UnitName = "backend"
)

var (
	ErrMissingBaseURL = errors.New("backend base url is required")
)

// Client talks to the price REST API. Every call is rate limited,
// retried per the error taxonomy, traced and counted.
type Client struct {
	config    *Config
	baseURL   *url.URL
	http      *commonhttp.Client
	validator *validation.Validator
	obs       *observability.Observability
	logger    logger.Logger
}

func NewClient(config *Config, obs *observability.Observability, log logger.Logger) (*Client, error) {
	if config == nil || strings.TrimSpace(config.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Client{
		config:    config,
		baseURL:   base,
		http:      commonhttp.NewClient(config.Timeout, config.RequestsPerSecond, config.Burst),
		validator: validation.NewValidator(),
		obs:       obs,
		logger:    logger.ForComponent(log, UnitName),
	}, nil
}

// WithTransport swaps the HTTP round tripper.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.http.WithTransport(rt)
	return c
}

// Search runs the fast typed search. Hits carry no prices.
func (c *Client) Search(ctx context.Context, req SearchRequest) (HitPage, error) {
	var raw []rawHit
	if err := c.get(ctx, EndpointSearch, "/api/search", searchQuery(req), validation.SchemaSearch, &raw); err != nil {
		return HitPage{}, err
	}
	return HitPage{Hits: toHits(raw), Received: len(raw)}, nil
}

// SearchProducts runs the priced product search.
func (c *Client) SearchProducts(ctx context.Context, req SearchRequest) (models.ProductPage, error) {
	var page models.ProductPage
	err := c.get(ctx, EndpointSearchProducts, "/api/search/products", searchQuery(req), validation.SchemaListing, &page)
	return page, err
}

// BasicSearch is the slower fallback for SearchProducts.
func (c *Client) BasicSearch(ctx context.Context, req SearchRequest) (models.ProductPage, error) {
	var page models.ProductPage
	err := c.get(ctx, EndpointBasicSearch, "/api/search/basic", searchQuery(req), validation.SchemaListing, &page)
	return page, err
}

// Popular returns one page of a category listing.
func (c *Client) Popular(ctx context.Context, req ListingRequest) (models.ProductPage, error) {
	q := url.Values{}
	q.Set("category", req.CategorySlug)
	q.Set("page", itoa(maxInt(req.Page, 1)))
	if req.PageSize > 0 {
		q.Set("limit", itoa(req.PageSize))
	}
	if req.Subcategory != "" {
		q.Set("subcategory", req.Subcategory)
	}

	var page models.ProductPage
	err := c.get(ctx, EndpointPopular, "/api/products/popular", q, validation.SchemaListing, &page)
	return page, err
}

// Compare fetches every store offer for one product.
func (c *Client) Compare(ctx context.Context, productNameOrID string) (*models.CompareResponse, error) {
	q := url.Values{}
	q.Set("product", strings.TrimSpace(productNameOrID))

	var resp models.CompareResponse
	if err := c.get(ctx, EndpointCompare, "/api/compare", q, validation.SchemaCompare, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Providers lists service providers. The endpoint answers with either an
// array or {providers: [...]}.
func (c *Client) Providers(ctx context.Context, req ProviderRequest) ([]normalizeproviders.RawProvider, error) {
	q := url.Values{}
	for k, v := range req.Filters {
		q.Set(k, v)
	}
	if req.Category != "" {
		q.Set("category", req.Category)
	}
	if req.ServiceType != "" {
		q.Set("serviceType", req.ServiceType)
	}
	if req.ZipCode != "" {
		q.Set("zipCode", req.ZipCode)
	}

	var body providerEnvelope
	if err := c.get(ctx, EndpointProviders, "/api/providers", q, validation.SchemaProviders, &body); err != nil {
		return nil, err
	}
	return body.Providers, nil
}

type providerEnvelope struct {
	Providers []normalizeproviders.RawProvider
}

func (p *providerEnvelope) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return models.DecodeJSON(data, &p.Providers)
	}
	var obj struct {
		Providers []normalizeproviders.RawProvider `json:"providers"`
	}
	if err := models.DecodeJSON(data, &obj); err != nil {
		return err
	}
	p.Providers = obj.Providers
	return nil
}

func searchQuery(req SearchRequest) url.Values {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(req.Query))
	q.Set("page", itoa(maxInt(req.Page, 1)))
	if req.PageSize > 0 {
		q.Set("limit", itoa(req.PageSize))
	}
	if req.CategorySlug != "" {
		q.Set("category", req.CategorySlug)
	}
	return q
}

func toHits(raw []rawHit) []models.SearchHit {
	hits := make([]models.SearchHit, 0, len(raw))
	for _, r := range raw {
		id := strings.TrimSpace(string(r.ID))
		name := strings.TrimSpace(r.Name)
		if id == "" || name == "" || textfold.ContainsFold(name, "test product") {
			metrics.RecordsDropped.WithLabelValues("search_hit", "missing_identity").Inc()
			continue
		}
		image := r.Image
		if image == "" {
			image = r.ImageURL
		}
		hit := models.SearchHit{ID: id, Name: name, ImageURL: strings.TrimSpace(image), Category: r.Category}
		if slug := strings.TrimSpace(r.CategorySlug); slug != "" {
			hit.CategorySlug = &slug
		}
		hits = append(hits, hit)
	}
	return hits
}

// get performs a GET with retries. Aborts and caller deadlines are never
// retried.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, schema string, out interface{}) error {
	for attempt := 0; ; attempt++ {
		err := c.getOnce(ctx, endpoint, path, query, schema, out)
		if err == nil {
			return nil
		}

		stdErr := apperrors.Classify(err)
		if ctx.Err() != nil || !stdErr.Retryable || attempt >= apperrors.GetRetryCount(stdErr.Code) {
			return stdErr
		}

		backoff := c.config.RetryBackoff * time.Duration(1<<attempt)
		c.logger.Debug("retrying backend request", map[string]interface{}{
			"endpoint":  endpoint,
			"attempt":   attempt + 1,
			"code":      string(stdErr.Code),
			"backoffMs": backoff.Milliseconds(),
		})
		select {
		case <-ctx.Done():
			return apperrors.Classify(ctx.Err())
		case <-time.After(backoff):
		}
	}
}

func (c *Client) getOnce(ctx context.Context, endpoint, path string, query url.Values, schema string, out interface{}) (err error) {
	ctx, span := c.obs.StartSpan(ctx, "backend."+endpoint,
		attribute.String("backend.endpoint", endpoint),
		attribute.String("http.route", path),
	)
	start := time.Now()
	outcome := "ok"
	defer func() {
		duration := time.Since(start)
		metrics.BackendRequests.WithLabelValues(endpoint, outcome).Inc()
		metrics.BackendRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
		c.obs.RecordFetch(ctx, endpoint, outcome, duration)
		if err != nil && outcome != "aborted" {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	target := *c.baseURL
	target.Path = c.baseURL.Path + path
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		outcome = "error"
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("X-API-Key", c.config.APIKey)
	}

	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			outcome = "aborted"
			return apperrors.NewRequestAbortedError(ctx.Err())
		case ctx.Err() != nil:
			outcome = "timeout"
			return apperrors.Classify(ctx.Err())
		default:
			outcome = "error"
			return apperrors.NewNetworkFailureError(endpoint, err)
		}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode == http.StatusNotFound {
		outcome = "not_found"
		return apperrors.NewNotFoundError(endpoint)
	}
	if resp.StatusCode >= 400 {
		outcome = "status_" + itoa(resp.StatusCode/100) + "xx"
		return apperrors.NewBackendStatusError(endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			outcome = "aborted"
			return apperrors.Classify(ctx.Err())
		}
		outcome = "error"
		return apperrors.NewNetworkFailureError(endpoint, err)
	}

	if c.config.ValidatePayloads && schema != "" {
		problems, verr := c.validator.Validate(schema, body)
		if verr != nil {
			outcome = "malformed"
			return apperrors.NewMalformedDataError(endpoint, verr.Error())
		}
		if len(problems) > 0 {
			outcome = "schema_mismatch"
			c.logger.Warn("backend payload failed schema validation", map[string]interface{}{
				"endpoint": endpoint,
				"problems": problems,
			})
			return apperrors.NewSchemaMismatchError(endpoint, problems)
		}
	}

	if err := models.DecodeJSON(body, out); err != nil {
		outcome = "malformed"
		return apperrors.NewMalformedDataError(endpoint, err.Error())
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
