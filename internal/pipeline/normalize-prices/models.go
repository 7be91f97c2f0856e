// internal/pipeline/normalize-prices/models.go
package normalizeprices

import "pricelens/internal/models"

type Input struct {
	Products []models.RawProduct    `json:"products,omitempty"`
	Offers   []models.RawStoreOffer `json:"offers,omitempty"`
}

type Output struct {
	Products []models.NormalizedProduct    `json:"products"`
	Offers   []models.NormalizedStorePrice `json:"offers"`
	Dropped  []DroppedRecord               `json:"dropped,omitempty"`
}

// DroppedRecord explains why a record did not survive normalization.
type DroppedRecord struct {
	Kind   string `json:"kind"` // product | offer
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}
