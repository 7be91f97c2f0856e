// internal/httpapi/compare.go
package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	compareproduct "pricelens/internal/loader/compare-product"
)

func (s *Server) handleCompare(c *gin.Context) {
	product := strings.TrimSpace(c.Query("product"))
	if product == "" {
		s.badRequest(c, "product is required")
		return
	}
	filter, err := filterFromQuery(c)
	if err != nil {
		s.fail(c, "compare", err)
		return
	}

	out, err := s.deps.Compare.Execute(c.Request.Context(), &compareproduct.Input{
		Product: product,
		Filter:  filter,
	})
	if err != nil {
		s.fail(c, "compare", err)
		return
	}
	c.JSON(http.StatusOK, successResponse(c, "Comparison retrieved", out))
}
