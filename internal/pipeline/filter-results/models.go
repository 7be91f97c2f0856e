// internal/pipeline/filter-results/models.go
package filterresults

import "pricelens/internal/models"

type Input struct {
	Products []models.NormalizedProduct    `json:"products,omitempty"`
	Offers   []models.NormalizedStorePrice `json:"offers,omitempty"`
	Filter   models.FilterState            `json:"filter"`
}

type Output struct {
	Products []models.NormalizedProduct    `json:"products"`
	Offers   []models.NormalizedStorePrice `json:"offers"`
}
