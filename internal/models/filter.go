// internal/models/filter.go
package models

import (
	"fmt"
	"strings"
)

type DeliveryType string

const (
	DeliveryAll      DeliveryType = "all"
	DeliveryPickup   DeliveryType = "pickup"
	DeliveryDelivery DeliveryType = "delivery"
)

type SortMode string

const (
	SortBest      SortMode = "best"
	SortPriceAsc  SortMode = "price_asc"
	SortPriceDesc SortMode = "price_desc"
	SortSavings   SortMode = "savings"
	SortName      SortMode = "name"
)

// FilterState is the user's filter selection. It is treated as immutable:
// every change produces a new value through With.
type FilterState struct {
	SelectedStores []string     `json:"selectedStores"`
	SearchText     string       `json:"searchText"`
	InStockOnly    bool         `json:"inStockOnly"`
	DeliveryType   DeliveryType `json:"deliveryType"`
	Subcategory    *string      `json:"subcategory"`
	Gender         string       `json:"gender"`
	Size           string       `json:"size"`
	SortMode       SortMode     `json:"sortMode"`
}

// FilterPatch is a partial filter update. Nil fields are left unchanged.
// ClearSubcategory resets the subcategory to none.
type FilterPatch struct {
	SelectedStores   *[]string
	SearchText       *string
	InStockOnly      *bool
	DeliveryType     *DeliveryType
	Subcategory      *string
	ClearSubcategory bool
	Gender           *string
	Size             *string
	SortMode         *SortMode
}

func DefaultFilterState() FilterState {
	return FilterState{DeliveryType: DeliveryAll, SortMode: SortBest}
}

// With returns a new FilterState with the patch applied. The receiver is
// not modified.
func (f FilterState) With(p FilterPatch) FilterState {
	out := f
	out.SelectedStores = append([]string(nil), f.SelectedStores...)
	if f.Subcategory != nil {
		sub := *f.Subcategory
		out.Subcategory = &sub
	}

	if p.SelectedStores != nil {
		out.SelectedStores = append([]string(nil), (*p.SelectedStores)...)
	}
	if p.SearchText != nil {
		out.SearchText = *p.SearchText
	}
	if p.InStockOnly != nil {
		out.InStockOnly = *p.InStockOnly
	}
	if p.DeliveryType != nil {
		out.DeliveryType = *p.DeliveryType
	}
	if p.ClearSubcategory {
		out.Subcategory = nil
	} else if p.Subcategory != nil {
		sub := *p.Subcategory
		out.Subcategory = &sub
	}
	if p.Gender != nil {
		out.Gender = *p.Gender
	}
	if p.Size != nil {
		out.Size = *p.Size
	}
	if p.SortMode != nil {
		out.SortMode = *p.SortMode
	}
	return out
}

// SubcategoryChanged reports whether the patch moves the subcategory, which
// is the only filter that requires a fresh fetch.
func (f FilterState) SubcategoryChanged(p FilterPatch) bool {
	next := f.With(p)
	return SubcategoryKey(f.Subcategory) != SubcategoryKey(next.Subcategory)
}

// SubcategoryKey lower-cases an optional subcategory for comparison.
func SubcategoryKey(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}

func (f FilterState) Validate() error {
	switch f.DeliveryType {
	case "", DeliveryAll, DeliveryPickup, DeliveryDelivery:
	default:
		return fmt.Errorf("unknown delivery type %q", f.DeliveryType)
	}
	switch f.SortMode {
	case "", SortBest, SortPriceAsc, SortPriceDesc, SortSavings, SortName:
	default:
		return fmt.Errorf("unknown sort mode %q", f.SortMode)
	}
	return nil
}
