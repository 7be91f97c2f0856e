// internal/pipeline/normalize-providers/parse.go
package normalizeproviders

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"pricelens/internal/models"
	normalizeprices "pricelens/internal/pipeline/normalize-prices"

	"github.com/shopspring/decimal"
)

const maxRating = 5.0

var (
	rangeSeparator  = regexp.MustCompile(`\s*(?:-|–|—|\bto\b)\s*`)
	distancePattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)\s*([a-z]*)$`)
	dollarLevel     = regexp.MustCompile(`^\$+$`)
)

// PriceInfo is the parsed form of a provider's price fields.
type PriceInfo struct {
	Min     *decimal.Decimal
	Max     *decimal.Decimal
	Level   int
	Display string
}

// ParsePrice reads the explicit price first, then the price range.
//
//	"$120"        -> min=max=120
//	"$80 - $150"  -> min=80 max=150
//	"$120+"       -> min=120
//	"$$$"         -> level 3
func ParsePrice(price interface{}, priceRange string) PriceInfo {
	if d, err := normalizeprices.CoercePrice(price); err == nil {
		return single(d)
	}
	if s, ok := price.(string); ok && priceRange == "" {
		priceRange = s
	}

	r := strings.TrimSpace(priceRange)
	if r == "" {
		return PriceInfo{}
	}
	if dollarLevel.MatchString(r) {
		return PriceInfo{Level: len(r), Display: r}
	}
	if strings.HasSuffix(r, "+") {
		if d, err := normalizeprices.CoercePrice(strings.TrimSuffix(r, "+")); err == nil {
			return PriceInfo{Min: &d, Display: models.FormatUSD(d) + "+"}
		}
		return PriceInfo{}
	}

	parts := rangeSeparator.Split(r, -1)
	if len(parts) == 2 {
		lo, errLo := normalizeprices.CoercePrice(parts[0])
		hi, errHi := normalizeprices.CoercePrice(parts[1])
		if errLo == nil && errHi == nil {
			if hi.LessThan(lo) {
				lo, hi = hi, lo
			}
			if lo.Equal(hi) {
				return single(lo)
			}
			return PriceInfo{Min: &lo, Max: &hi, Display: models.FormatUSD(lo) + " - " + models.FormatUSD(hi)}
		}
		return PriceInfo{}
	}
	if d, err := normalizeprices.CoercePrice(r); err == nil {
		return single(d)
	}
	return PriceInfo{}
}

func single(d decimal.Decimal) PriceInfo {
	return PriceInfo{Min: &d, Max: &d, Display: models.FormatUSD(d)}
}

// ParseRating coerces a rating and clamps it to [0, 5] at one decimal.
func ParseRating(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = val
	case int:
		f = float64(val)
	case fmt.Stringer:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val.String()), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "/5"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Max(0, math.Min(maxRating, f))
	return math.Round(f*10) / 10, true
}

// ParseDistance converts a distance to miles. Bare numbers are miles;
// strings may carry mi, km, m or ft units.
func ParseDistance(v interface{}) (float64, bool) {
	var miles float64
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		miles = val
	case int:
		miles = float64(val)
	case fmt.Stringer:
		return ParseDistance(val.String())
	case string:
		m := distancePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(val)))
		if m == nil {
			return 0, false
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		switch m[2] {
		case "", "mi", "mile", "miles":
			miles = n
		case "km", "kms", "kilometers", "kilometres":
			miles = n * 0.621371
		case "m", "meters", "metres":
			miles = n / 1609.344
		case "ft", "feet":
			miles = n / 5280
		default:
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(miles) || math.IsInf(miles, 0) || miles < 0 {
		return 0, false
	}
	return math.Round(miles*100) / 100, true
}

// FormatHours flattens the hours field into one display string.
func FormatHours(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}
