// internal/pipeline/normalize-providers/models.go
package normalizeproviders

import (
	"pricelens/internal/models"

	"github.com/shopspring/decimal"
)

// RawProvider is a service provider record (hotel, spa, gas station...).
// Every field other than the name is optional and loosely typed.
type RawProvider struct {
	ID          models.FlexibleID `json:"id"`
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	ServiceType string            `json:"serviceType,omitempty"`
	Rating      interface{}       `json:"rating,omitempty"`
	Price       interface{}       `json:"price,omitempty"`
	PriceRange  string            `json:"priceRange,omitempty"`
	Distance    interface{}       `json:"distance,omitempty"`
	Hours       interface{}       `json:"hours,omitempty"`
	Address     string            `json:"address,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Image       string            `json:"image,omitempty"`
	Website     string            `json:"website,omitempty"`
}

type NormalizedProvider struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Rating        *float64         `json:"rating"`
	PriceMin      *decimal.Decimal `json:"priceMin"`
	PriceMax      *decimal.Decimal `json:"priceMax"`
	PriceLevel    int              `json:"priceLevel"`
	DisplayPrice  string           `json:"displayPrice"`
	DistanceMiles *float64         `json:"distanceMiles"`
	Hours         string           `json:"hours"`
	Address       string           `json:"address"`
	Phone         string           `json:"phone"`
	ImageURL      string           `json:"imageUrl"`
	Website       *string          `json:"website"`
}

type SortBy string

const (
	SortByNone     SortBy = ""
	SortByDistance SortBy = "distance"
	SortByRating   SortBy = "rating"
	SortByPrice    SortBy = "price"
)

type Input struct {
	Providers []RawProvider `json:"providers"`
	SortBy    SortBy        `json:"sortBy,omitempty"`
	MinRating *float64      `json:"minRating,omitempty"`
	MaxPrice  *float64      `json:"maxPrice,omitempty"`
}

type Output struct {
	Providers []NormalizedProvider `json:"providers"`
	Dropped   int                  `json:"dropped"`
}
