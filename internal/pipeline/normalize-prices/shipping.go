// internal/pipeline/normalize-prices/shipping.go
package normalizeprices

import (
	"pricelens/internal/common/textfold"
	"pricelens/internal/models"
)

const (
	ShippingFree        = "Free Shipping"
	ShippingPrime       = "Free Prime"
	ShippingInStoreOnly = "In-Store Only"
	ShippingOutOfStock  = "Out of Stock"
)

// ShippingInfo derives the shipping line for an offer. The first matching
// rule wins: paid shipping, out of stock, amazon, micro center.
func ShippingInfo(offer models.RawStoreOffer, storeName string) string {
	if cost, err := CoercePrice(offer.ShippingCost); err == nil {
		return models.FormatUSD(cost) + " Shipping"
	}
	if offer.InStock != nil && !*offer.InStock {
		return ShippingOutOfStock
	}
	if textfold.ContainsFold(storeName, "amazon") {
		return ShippingPrime
	}
	if textfold.ContainsFold(storeName, "micro center") {
		return ShippingInStoreOnly
	}
	return ShippingFree
}
