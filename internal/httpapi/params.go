// internal/httpapi/params.go
package httpapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "pricelens/internal/common/errors"
	"pricelens/internal/models"
)

// filterFromQuery reads a FilterState from query parameters:
// stores=a,b inStock=true delivery=pickup subcategory=.. gender=.. size=.. sort=.. text=..
func filterFromQuery(c *gin.Context) (models.FilterState, error) {
	f := models.DefaultFilterState()

	if v := c.Query("stores"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.SelectedStores = append(f.SelectedStores, s)
			}
		}
	}
	if v := c.Query("inStock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperrors.NewInvalidFilterError(fmt.Sprintf("inStock: %q is not a boolean", v))
		}
		f.InStockOnly = b
	}
	if v := c.Query("delivery"); v != "" {
		f.DeliveryType = models.DeliveryType(v)
	}
	if v := strings.TrimSpace(c.Query("subcategory")); v != "" {
		f.Subcategory = &v
	}
	if v := c.Query("sort"); v != "" {
		f.SortMode = models.SortMode(v)
	}
	f.SearchText = c.Query("text")
	f.Gender = c.Query("gender")
	f.Size = c.Query("size")

	if err := f.Validate(); err != nil {
		return f, apperrors.NewInvalidFilterError(err.Error())
	}
	return f, nil
}

func intQuery(c *gin.Context, name string, def, min, max int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, min, max)
	}
	return n, nil
}

func floatQuery(c *gin.Context, name string) (*float64, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &f, nil
}

// withTimeout bounds ctx by d; d <= 0 leaves it unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
