// internal/backend/models.go
package backend

import (
	"strconv"

	"pricelens/internal/models"
)

// Endpoint names used for metrics, spans and error details.
const (
	EndpointSearch         = "search"
	EndpointSearchProducts = "search_products"
	EndpointBasicSearch    = "basic_search"
	EndpointPopular        = "popular"
	EndpointCompare        = "compare"
	EndpointProviders      = "providers"
	EndpointTypeahead      = "typeahead"
)

type SearchRequest struct {
	Query        string
	Page         int
	PageSize     int
	CategorySlug string
}

type ListingRequest struct {
	CategorySlug string
	Page         int
	PageSize     int
	Subcategory  string
}

type ProviderRequest struct {
	Category    string
	ServiceType string
	ZipCode     string
	Filters     map[string]string
}

// HitPage is one page of price-less search hits. Received counts the
// records the backend sent before invalid ones were dropped.
type HitPage struct {
	Hits     []models.SearchHit
	HasMore  *bool
	Received int
}

type rawHit struct {
	ID           models.FlexibleID `json:"id"`
	Name         string            `json:"name"`
	Image        string            `json:"image"`
	ImageURL     string            `json:"imageUrl"`
	Category     string            `json:"category"`
	CategorySlug string            `json:"categorySlug"`
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
