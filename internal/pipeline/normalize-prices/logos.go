// internal/pipeline/normalize-prices/logos.go
package normalizeprices

import (
	"strings"
	"unicode/utf8"

	"pricelens/internal/common/textfold"
)

const clearbitBase = "https://logo.clearbit.com/"

// storeDomains maps known retailers to the domain their logo is served for.
var storeDomains = map[string]string{
	"Amazon":                "amazon.com",
	"Walmart":               "walmart.com",
	"Target":                "target.com",
	"Best Buy":              "bestbuy.com",
	"Costco":                "costco.com",
	"The Home Depot":        "homedepot.com",
	"Home Depot":            "homedepot.com",
	"Lowe's":                "lowes.com",
	"eBay":                  "ebay.com",
	"Newegg":                "newegg.com",
	"B&H Photo":             "bhphotovideo.com",
	"B&H Photo Video":       "bhphotovideo.com",
	"Apple":                 "apple.com",
	"Samsung":               "samsung.com",
	"Dell":                  "dell.com",
	"HP":                    "hp.com",
	"Lenovo":                "lenovo.com",
	"Micro Center":          "microcenter.com",
	"Staples":               "staples.com",
	"Office Depot":          "officedepot.com",
	"Macy's":                "macys.com",
	"Kohl's":                "kohls.com",
	"Sam's Club":            "samsclub.com",
	"GameStop":              "gamestop.com",
	"Wayfair":               "wayfair.com",
	"Nordstrom":             "nordstrom.com",
	"Nike":                  "nike.com",
	"Adidas":                "adidas.com",
	"Sephora":               "sephora.com",
	"Ulta":                  "ulta.com",
	"Ulta Beauty":           "ulta.com",
	"CVS":                   "cvs.com",
	"CVS Pharmacy":          "cvs.com",
	"Walgreens":             "walgreens.com",
	"Kroger":                "kroger.com",
	"Safeway":               "safeway.com",
	"Whole Foods Market":    "wholefoodsmarket.com",
	"Trader Joe's":          "traderjoes.com",
	"Instacart":             "instacart.com",
	"Etsy":                  "etsy.com",
	"Overstock":             "overstock.com",
	"Zappos":                "zappos.com",
	"Chewy":                 "chewy.com",
	"Petco":                 "petco.com",
	"PetSmart":              "petsmart.com",
	"IKEA":                  "ikea.com",
	"Bed Bath & Beyond":     "bedbathandbeyond.com",
	"Dick's Sporting Goods": "dickssportinggoods.com",
	"REI":                   "rei.com",
	"Academy Sports":        "academy.com",
	"AutoZone":              "autozone.com",
	"Advance Auto Parts":    "advanceautoparts.com",
	"O'Reilly Auto Parts":   "oreillyauto.com",
	"Barnes & Noble":        "barnesandnoble.com",
	"JCPenney":              "jcpenney.com",
	"Old Navy":              "oldnavy.com",
	"Gap":                   "gap.com",
	"H&M":                   "hm.com",
	"Zara":                  "zara.com",
	"Uniqlo":                "uniqlo.com",
	"Foot Locker":           "footlocker.com",
	"Crutchfield":           "crutchfield.com",
	"Adorama":               "adorama.com",
	"Monoprice":             "monoprice.com",
	"T-Mobile":              "t-mobile.com",
	"Verizon":               "verizon.com",
	"AT&T":                  "att.com",
}

var storeLogos, compactLogos = buildLogoTables()

func buildLogoTables() (map[string]string, map[string]string) {
	exact := make(map[string]string, len(storeDomains))
	compact := make(map[string]string, len(storeDomains))
	for name, domain := range storeDomains {
		url := clearbitBase + domain
		exact[name] = url
		compact[textfold.Compact(name)] = url
	}
	return exact, compact
}

// KnownStoreLogo looks a store up in the logo table by exact name, by main
// name, then by compact comparison of either.
func KnownStoreLogo(storeName string) (string, bool) {
	name := strings.TrimSpace(storeName)
	main := textfold.MainName(name)

	for _, candidate := range []string{name, main} {
		if url, ok := storeLogos[candidate]; ok {
			return url, true
		}
	}
	for _, candidate := range []string{name, main} {
		if url, ok := compactLogos[textfold.Compact(candidate)]; ok {
			return url, true
		}
	}
	return "", false
}

// ResolveStoreImage picks a store logo: the backend's absolute URL, the
// known logo table, a derived clearbit domain, then a letter placeholder.
func ResolveStoreImage(storeName, backendLogo string) string {
	if isHTTPURL(backendLogo) {
		return strings.TrimSpace(backendLogo)
	}
	if url, ok := KnownStoreLogo(storeName); ok {
		return url
	}
	if guess := textfold.Compact(textfold.MainName(storeName)); guess != "" {
		return clearbitBase + guess + ".com"
	}
	return letterPlaceholder(storeName)
}

func letterPlaceholder(storeName string) string {
	letter := "?"
	if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(storeName)); r != utf8.RuneError {
		letter = strings.ToUpper(string(r))
	}
	return "https://placehold.co/64x64?text=" + letter
}

func isHTTPURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
