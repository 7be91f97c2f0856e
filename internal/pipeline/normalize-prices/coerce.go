// internal/pipeline/normalize-prices/coerce.go
package normalizeprices

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"pricelens/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrPriceMissing     = errors.New("price is missing")
	ErrPriceNotNumeric  = errors.New("price is not numeric")
	ErrPriceNotFinite   = errors.New("price is not finite")
	ErrPriceNotPositive = errors.New("price must be greater than zero")
)

type floatBool interface {
	Float64() (float64, bool)
}

type floatErr interface {
	Float64() (float64, error)
}

var priceStripper = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "", "\u00a0", "", "USD", "", "usd", "")

// CoercePrice converts an untrusted price value into a positive amount
// rounded to cents. Accepted inputs are numbers, numeric strings with an
// optional "$" and thousands separators, decimals, {"$numberDecimal": "..."}
// objects and values exposing a Float64 conversion.
func CoercePrice(v interface{}) (decimal.Decimal, error) {
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, err
	}
	d = models.RoundMoney(d)
	if !d.IsPositive() {
		return decimal.Zero, ErrPriceNotPositive
	}
	return d, nil
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, ErrPriceMissing
	case decimal.Decimal:
		return val, nil
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero, ErrPriceMissing
		}
		return *val, nil
	case json.Number:
		return parseNumeric(val.String())
	case string:
		return parseNumeric(val)
	case float64:
		return fromFloat(val)
	case float32:
		return fromFloat(float64(val))
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int32:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case uint:
		return decimal.NewFromUint64(uint64(val)), nil
	case uint64:
		return decimal.NewFromUint64(val), nil
	case map[string]interface{}:
		if inner, ok := val["$numberDecimal"]; ok {
			return toDecimal(inner)
		}
		return decimal.Zero, fmt.Errorf("%w: object without numeric value", ErrPriceNotNumeric)
	case floatBool:
		f, _ := val.Float64()
		return fromFloat(f)
	case floatErr:
		f, err := val.Float64()
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceNotNumeric, err)
		}
		return fromFloat(f)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrPriceNotNumeric, v)
	}
}

func parseNumeric(s string) (decimal.Decimal, error) {
	cleaned := priceStripper.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return decimal.Zero, ErrPriceMissing
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrPriceNotNumeric, s)
	}
	return d, nil
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrPriceNotFinite
	}
	return decimal.NewFromFloat(f), nil
}
