// internal/httpapi/providers.go
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricelens/internal/backend"
	normalizeproviders "pricelens/internal/pipeline/normalize-providers"
)

func (s *Server) handleProviders(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		s.badRequest(c, "category is required")
		return
	}
	minRating, err := floatQuery(c, "minRating")
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	maxPrice, err := floatQuery(c, "maxPrice")
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	raw, err := s.deps.Providers.Providers(c.Request.Context(), backend.ProviderRequest{
		Category:    category,
		ServiceType: c.Query("serviceType"),
		ZipCode:     c.Query("zip"),
	})
	if err != nil {
		s.fail(c, "providers", err)
		return
	}

	out, err := s.deps.ProviderNormalizer.Execute(c.Request.Context(), &normalizeproviders.Input{
		Providers: raw,
		SortBy:    normalizeproviders.SortBy(c.Query("sort")),
		MinRating: minRating,
		MaxPrice:  maxPrice,
	})
	if errors.Is(err, normalizeproviders.ErrUnknownSort) {
		s.badRequest(c, "sort must be one of distance, rating, price")
		return
	}
	if err != nil {
		s.fail(c, "providers", err)
		return
	}
	c.JSON(http.StatusOK, successResponse(c, "Providers retrieved", out))
}
