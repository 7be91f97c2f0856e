// internal/loader/compare-product/models.go
package compareproduct

import (
	"pricelens/internal/models"

	"github.com/shopspring/decimal"
)

type Input struct {
	Product string             `json:"product"` // name or id
	Filter  models.FilterState `json:"filter"`
}

// Metadata is always computed from the offers that survived normalization
// and filtering.
type Metadata struct {
	LowestPrice  decimal.Decimal `json:"lowestPrice"`
	HighestPrice decimal.Decimal `json:"highestPrice"`
	MaxSavings   decimal.Decimal `json:"maxSavings"`
	TotalStores  int             `json:"totalStores"`
}

type Output struct {
	Product       *models.NormalizedProduct     `json:"product"`
	Offers        []models.NormalizedStorePrice `json:"offers"`
	Metadata      Metadata                      `json:"metadata"`
	DroppedOffers int                           `json:"droppedOffers"`
	FilteredOut   int                           `json:"filteredOut"`
	FromCache     bool                          `json:"fromCache"`
}
