// internal/models/product.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexibleID accepts both JSON strings and numbers.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// RawStore is the store block of an offer. The backend sends either an
// object or a bare store name.
type RawStore struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
	URL  string `json:"url,omitempty"`
}

func (s *RawStore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = RawStore{}
		return nil
	}
	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*s = RawStore{Name: name}
		return nil
	}
	type plain RawStore
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = RawStore(p)
	return nil
}

// RawStoreOffer is one untrusted store price from the backend. Price
// fields stay untyped until the normalizer coerces them.
type RawStoreOffer struct {
	Store        RawStore    `json:"store"`
	Price        interface{} `json:"price"`
	TotalPrice   interface{} `json:"totalPrice,omitempty"`
	ShippingCost interface{} `json:"shippingCost,omitempty"`
	InStock      *bool       `json:"inStock,omitempty"`
	IsBestPrice  *bool       `json:"isBestPrice,omitempty"`
	ProductURL   string      `json:"productUrl,omitempty"`
}

// RawProduct is an untrusted product record from the listing, search or
// compare endpoints.
type RawProduct struct {
	ID           FlexibleID      `json:"id"`
	Name         string          `json:"name"`
	Images       []interface{}   `json:"images,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Image        string          `json:"image,omitempty"`
	Category     string          `json:"category,omitempty"`
	CategorySlug string          `json:"categorySlug,omitempty"`
	Subcategory  string          `json:"subcategory,omitempty"`
	Prices       []RawStoreOffer `json:"prices,omitempty"`
}

// NormalizedStorePrice is a canonical, ranked store offer.
type NormalizedStorePrice struct {
	Rank            int             `json:"rank"`
	StoreName       string          `json:"storeName"`
	Price           decimal.Decimal `json:"price"`
	DisplayPrice    string          `json:"displayPrice"`
	StoreImageURL   string          `json:"storeImageUrl"`
	IsBestDeal      bool            `json:"isBestDeal"`
	PriceDifference *string         `json:"priceDifference"`
	ShippingInfo    string          `json:"shippingInfo"`
	ProductURL      *string         `json:"productUrl"`
}

// PriceCents returns the price as an integer number of cents.
func (p NormalizedStorePrice) PriceCents() int64 {
	return p.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// NormalizedProduct is a product with at least one valid store price.
type NormalizedProduct struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	ImageURL       string                 `json:"imageUrl"`
	Category       string                 `json:"category"`
	CategorySlug   *string                `json:"categorySlug"`
	Subcategory    *string                `json:"subcategory"`
	StorePrices    []NormalizedStorePrice `json:"storePrices"`
	MaxSavings     decimal.Decimal        `json:"maxSavings"`
	BestPrice      decimal.Decimal        `json:"bestPrice"`
	BestPriceStore string                 `json:"bestPriceStore"`
}

// Key identifies the product for cross-page deduplication.
func (p NormalizedProduct) Key() string {
	return p.ID
}

// Clone copies the product including its offer slice.
func (p NormalizedProduct) Clone() NormalizedProduct {
	out := p
	out.StorePrices = append([]NormalizedStorePrice(nil), p.StorePrices...)
	return out
}

// SearchHit is a price-less fast search result.
type SearchHit struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ImageURL     string  `json:"image"`
	Category     string  `json:"category"`
	CategorySlug *string `json:"categorySlug"`
}

func (h SearchHit) Key() string {
	return h.ID
}
