// internal/pipeline/rank-stores/ranker.go
package rankstores

import (
	"sort"
	"strings"
	"unicode"

	"pricelens/internal/common/textfold"
	"pricelens/internal/models"

	"github.com/shopspring/decimal"
)

var domainSuffixes = []string{".com", ".net", ".org"}

// Ranker orders offers by known-brand tier, then price, then brand
// popularity. Sorting is stable so full ties keep their input order.
type Ranker struct {
	brands []string
}

func NewRanker(brands []string) *Ranker {
	folded := make([]string, 0, len(brands))
	for _, b := range brands {
		if f := textfold.Fold(b); f != "" {
			folded = append(folded, f)
		}
	}
	return &Ranker{brands: folded}
}

var defaultRanker = NewRanker(DefaultKnownBrands())

// storeKey lowercases the name and strips one trailing domain suffix.
func storeKey(name string) string {
	key := textfold.Fold(name)
	for _, suffix := range domainSuffixes {
		if strings.HasSuffix(key, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(key, suffix))
		}
	}
	return key
}

// PopularityIndex returns the position of the first reference brand that
// equals, prefixes or appears as a separate word in the store name.
// Unmatched stores get len(brands).
func (r *Ranker) PopularityIndex(storeName string) int {
	key := storeKey(storeName)
	if key == "" {
		return len(r.brands)
	}
	for i, brand := range r.brands {
		if key == brand || strings.HasPrefix(key, brand) || containsWord(key, brand) {
			return i
		}
	}
	return len(r.brands)
}

func (r *Ranker) IsKnownBrand(storeName string) bool {
	return r.PopularityIndex(storeName) < len(r.brands)
}

func containsWord(s, word string) bool {
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		from = start + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(s[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

type sortKey struct {
	tier  int
	price decimal.Decimal
	index int
}

func (r *Ranker) key(store string, price decimal.Decimal) sortKey {
	idx := r.PopularityIndex(store)
	tier := 0
	if idx >= len(r.brands) {
		tier = 1
	}
	return sortKey{tier: tier, price: price, index: idx}
}

func (a sortKey) less(b sortKey) bool {
	if a.tier != b.tier {
		return a.tier < b.tier
	}
	if c := a.price.Cmp(b.price); c != 0 {
		return c < 0
	}
	return a.index < b.index
}

// Less is the offer comparator.
func (r *Ranker) Less(a, b models.NormalizedStorePrice) bool {
	return r.key(a.StoreName, a.Price).less(r.key(b.StoreName, b.Price))
}

// RankOffers returns a sorted copy of offers with dense ranks, a single
// best deal at rank 1 and price differences against it. Incoming ranks
// are ignored.
func (r *Ranker) RankOffers(offers []models.NormalizedStorePrice) []models.NormalizedStorePrice {
	if len(offers) == 0 {
		return []models.NormalizedStorePrice{}
	}

	keys := make([]sortKey, len(offers))
	order := make([]int, len(offers))
	for i, o := range offers {
		keys[i] = r.key(o.StoreName, o.Price)
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return keys[order[i]].less(keys[order[j]])
	})

	ranked := make([]models.NormalizedStorePrice, len(offers))
	for pos, idx := range order {
		ranked[pos] = offers[idx]
	}

	best := ranked[0].Price
	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].IsBestDeal = i == 0
		ranked[i].PriceDifference = PriceDifference(ranked[i].Price, best, i == 0)
	}
	return ranked
}

// PriceDifference renders "+$X.XX more" for a non-best offer. It is nil for
// the best deal, when best is zero, or when the offer is not more expensive.
func PriceDifference(price, best decimal.Decimal, isBest bool) *string {
	if isBest || best.IsZero() {
		return nil
	}
	diff := models.RoundMoney(price.Sub(best))
	if !diff.IsPositive() {
		return nil
	}
	s := "+" + models.FormatUSD(diff) + " more"
	return &s
}

// RankProduct ranks the product's offers and recomputes its aggregates.
func (r *Ranker) RankProduct(p models.NormalizedProduct) models.NormalizedProduct {
	out := p.Clone()
	out.StorePrices = r.RankOffers(p.StorePrices)
	ApplyAggregates(&out)
	return out
}

// ApplyAggregates sets BestPrice and BestPriceStore from rank 1 and
// MaxSavings as max minus min over all offers.
func ApplyAggregates(p *models.NormalizedProduct) {
	if len(p.StorePrices) == 0 {
		p.BestPrice = decimal.Zero
		p.BestPriceStore = ""
		p.MaxSavings = decimal.Zero
		return
	}
	minP, maxP := p.StorePrices[0].Price, p.StorePrices[0].Price
	for _, o := range p.StorePrices[1:] {
		if o.Price.LessThan(minP) {
			minP = o.Price
		}
		if o.Price.GreaterThan(maxP) {
			maxP = o.Price
		}
	}
	p.BestPrice = p.StorePrices[0].Price
	p.BestPriceStore = p.StorePrices[0].StoreName
	p.MaxSavings = models.RoundMoney(maxP.Sub(minP))
}

// SortProducts returns a stably sorted copy of products in the given mode.
// The best mode applies the offer comparator to each product's rank-1 offer.
func (r *Ranker) SortProducts(products []models.NormalizedProduct, mode models.SortMode) []models.NormalizedProduct {
	order := make([]int, len(products))
	for i := range products {
		order[i] = i
	}

	var less func(a, b int) bool
	switch mode {
	case models.SortPriceAsc:
		less = func(a, b int) bool { return products[a].BestPrice.LessThan(products[b].BestPrice) }
	case models.SortPriceDesc:
		less = func(a, b int) bool { return products[a].BestPrice.GreaterThan(products[b].BestPrice) }
	case models.SortSavings:
		less = func(a, b int) bool { return products[a].MaxSavings.GreaterThan(products[b].MaxSavings) }
	case models.SortName:
		less = func(a, b int) bool { return textfold.Fold(products[a].Name) < textfold.Fold(products[b].Name) }
	default:
		// keyed by position, not ID: unmerged listings can repeat an ID
		keys := make([]sortKey, len(products))
		for i, p := range products {
			keys[i] = r.key(p.BestPriceStore, p.BestPrice)
		}
		less = func(a, b int) bool { return keys[a].less(keys[b]) }
	}

	sort.SliceStable(order, func(i, j int) bool { return less(order[i], order[j]) })

	out := make([]models.NormalizedProduct, len(products))
	for pos, idx := range order {
		out[pos] = products[idx]
	}
	return out
}

// Package-level helpers use the default brand list.

func PopularityIndex(storeName string) int { return defaultRanker.PopularityIndex(storeName) }

func RankOffers(offers []models.NormalizedStorePrice) []models.NormalizedStorePrice {
	return defaultRanker.RankOffers(offers)
}

func RankProduct(p models.NormalizedProduct) models.NormalizedProduct {
	return defaultRanker.RankProduct(p)
}

func SortProducts(products []models.NormalizedProduct, mode models.SortMode) []models.NormalizedProduct {
	return defaultRanker.SortProducts(products, mode)
}
