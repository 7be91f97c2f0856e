// internal/httpapi/listing.go
package httpapi

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	incrementalload "pricelens/internal/loader/incremental-load"
	"pricelens/internal/models"
)

type listingView struct {
	Query    string                     `json:"query"`
	Category string                     `json:"category"`
	Filter   models.FilterState         `json:"filter"`
	Page     int                        `json:"page"`
	Items    []models.NormalizedProduct `json:"items"`
	HasMore  bool                       `json:"hasMore"`
	Received int                        `json:"received"`
}

// handleListing serves one page of the category listing or product search.
// Queries that fail the length gate fall back to the plain listing.
func (s *Server) handleListing(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		s.fail(c, "listing", err)
		return
	}
	page, err := intQuery(c, "page", 1, 1, math.MaxInt32)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	pageSize, err := intQuery(c, "pageSize", s.deps.Search.PageSize, 1, 100)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	if query != "" && !s.deps.Search.QueryAllowed(query) {
		query = ""
	}

	req := incrementalload.PageRequest{
		Query:        query,
		CategorySlug: c.Query("category"),
		Subcategory:  models.SubcategoryKey(filter.Subcategory),
		Page:         page,
		PageSize:     pageSize,
	}

	timeout := s.deps.Search.PageTimeout
	if page == 1 {
		timeout = s.deps.Search.FirstPageTimeout
	}
	ctx, cancel := withTimeout(c.Request.Context(), timeout)
	defer cancel()

	result, err := s.deps.Listing.FetchPage(ctx, req)
	if err != nil {
		s.fail(c, "listing", err)
		return
	}

	items := s.deps.Pipeline.Products(result.Items, filter)
	if items == nil {
		items = []models.NormalizedProduct{}
	}
	c.JSON(http.StatusOK, successResponse(c, "Listing retrieved", listingView{
		Query:    query,
		Category: req.CategorySlug,
		Filter:   filter,
		Page:     page,
		Items:    items,
		HasMore:  result.More(pageSize),
		Received: result.Received,
	}))
}
