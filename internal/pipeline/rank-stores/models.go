// internal/pipeline/rank-stores/models.go
package rankstores

import "pricelens/internal/models"

type Input struct {
	Offers   []models.NormalizedStorePrice `json:"offers,omitempty"`
	Products []models.NormalizedProduct    `json:"products,omitempty"`
	SortMode models.SortMode               `json:"sortMode,omitempty"`
}

type Output struct {
	Offers   []models.NormalizedStorePrice `json:"offers"`
	Products []models.NormalizedProduct    `json:"products"`
}
