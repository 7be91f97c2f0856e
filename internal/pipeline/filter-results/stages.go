// internal/pipeline/filter-results/stages.go
package filterresults

import (
	"strings"

	"pricelens/internal/common/textfold"
	"pricelens/internal/models"
)

// offerPredicate decides whether a single offer survives a stage.
type offerPredicate func(o models.NormalizedStorePrice) bool

// productStage narrows a product list without reordering it.
type productStage func(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct

// productStages run in this order. Each is a pure narrowing.
var productStages = []productStage{
	storeAllowListStage,
	searchTextStage,
	inStockStage,
	deliveryStage,
	subcategoryStage,
	keywordHeuristicStage,
}

func storeAllowListStage(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct {
	pred := storeAllowList(f)
	if pred == nil {
		return products
	}
	return filterOffers(products, pred)
}

func searchTextStage(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct {
	text := textfold.Fold(f.SearchText)
	if text == "" {
		return products
	}
	out := make([]models.NormalizedProduct, 0, len(products))
	for _, p := range products {
		if strings.Contains(textfold.Fold(p.Name), text) {
			out = append(out, p)
			continue
		}
		if narrowed, ok := keepOffers(p, storeContains(text)); ok {
			out = append(out, narrowed)
		}
	}
	return out
}

func inStockStage(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct {
	if !f.InStockOnly {
		return products
	}
	return filterOffers(products, inStock)
}

func deliveryStage(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct {
	pred := delivery(f.DeliveryType)
	if pred == nil {
		return products
	}
	return filterOffers(products, pred)
}

func subcategoryStage(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct {
	want := models.SubcategoryKey(f.Subcategory)
	if want == "" {
		return products
	}
	out := make([]models.NormalizedProduct, 0, len(products))
	for _, p := range products {
		have := models.SubcategoryKey(p.Subcategory)
		if have == "" {
			have = strings.ToLower(strings.TrimSpace(p.Category))
		}
		if have == want {
			out = append(out, p)
		}
	}
	return out
}

func keywordHeuristicStage(products []models.NormalizedProduct, f models.FilterState) []models.NormalizedProduct {
	if (f.Gender == "" || f.Gender == GenderAll) && (f.Size == "" || f.Size == "all") {
		return products
	}
	out := make([]models.NormalizedProduct, 0, len(products))
	for _, p := range products {
		if MatchesGender(p.Name, f.Gender) && MatchesSize(p.Name, f.Size) {
			out = append(out, p)
		}
	}
	return out
}

// Offer predicates shared by the product and offer pipelines.

func storeAllowList(f models.FilterState) offerPredicate {
	if len(f.SelectedStores) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(f.SelectedStores))
	for _, s := range f.SelectedStores {
		allowed[textfold.Fold(s)] = true
	}
	return func(o models.NormalizedStorePrice) bool {
		return allowed[textfold.Fold(o.StoreName)]
	}
}

func storeContains(foldedText string) offerPredicate {
	return func(o models.NormalizedStorePrice) bool {
		return strings.Contains(textfold.Fold(o.StoreName), foldedText)
	}
}

func inStock(o models.NormalizedStorePrice) bool {
	return !strings.Contains(strings.ToLower(o.ShippingInfo), "out of stock")
}

func delivery(t models.DeliveryType) offerPredicate {
	switch t {
	case models.DeliveryPickup:
		return func(o models.NormalizedStorePrice) bool {
			s := strings.ToLower(o.ShippingInfo)
			return strings.Contains(s, "pickup") || strings.Contains(s, "in-store")
		}
	case models.DeliveryDelivery:
		return func(o models.NormalizedStorePrice) bool {
			s := strings.ToLower(o.ShippingInfo)
			return !strings.Contains(s, "pickup") && !strings.Contains(s, "in-store only")
		}
	default:
		return nil
	}
}

// filterOffers narrows each product's offers and drops products left with
// none, since a product without prices is not displayable.
func filterOffers(products []models.NormalizedProduct, pred offerPredicate) []models.NormalizedProduct {
	out := make([]models.NormalizedProduct, 0, len(products))
	for _, p := range products {
		if narrowed, ok := keepOffers(p, pred); ok {
			out = append(out, narrowed)
		}
	}
	return out
}

func keepOffers(p models.NormalizedProduct, pred offerPredicate) (models.NormalizedProduct, bool) {
	kept := make([]models.NormalizedStorePrice, 0, len(p.StorePrices))
	for _, o := range p.StorePrices {
		if pred(o) {
			kept = append(kept, o)
		}
	}
	if len(kept) == 0 {
		return models.NormalizedProduct{}, false
	}
	out := p
	out.StorePrices = kept
	return out, true
}

func narrowOffers(offers []models.NormalizedStorePrice, preds ...offerPredicate) []models.NormalizedStorePrice {
	out := make([]models.NormalizedStorePrice, 0, len(offers))
next:
	for _, o := range offers {
		for _, pred := range preds {
			if pred != nil && !pred(o) {
				continue next
			}
		}
		out = append(out, o)
	}
	return out
}

func foldedSearch(f models.FilterState) string {
	return textfold.Fold(f.SearchText)
}
