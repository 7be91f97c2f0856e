// internal/httpapi/typeahead.go
package httpapi

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	incrementalload "pricelens/internal/loader/incremental-load"
	"pricelens/internal/models"
)

type typeaheadView struct {
	Query   string             `json:"query"`
	Page    int                `json:"page"`
	Hits    []models.SearchHit `json:"hits"`
	HasMore bool               `json:"hasMore"`
}

// handleTypeahead serves price-less search hits. A query that fails the
// length gate answers with no hits instead of a listing.
func (s *Server) handleTypeahead(c *gin.Context) {
	page, err := intQuery(c, "page", 1, 1, math.MaxInt32)
	if err != nil {
		s.badRequest(c, err.Error())
		return
	}
	query := strings.TrimSpace(c.Query("q"))
	view := typeaheadView{Query: query, Page: page, Hits: []models.SearchHit{}}
	if !s.deps.Search.QueryAllowed(query) {
		c.JSON(http.StatusOK, successResponse(c, "Query too short", view))
		return
	}

	ctx, cancel := withTimeout(c.Request.Context(), s.deps.Search.PageTimeout)
	defer cancel()

	result, err := s.deps.Typeahead.FetchPage(ctx, incrementalload.PageRequest{
		Query:        query,
		CategorySlug: c.Query("category"),
		Page:         page,
		PageSize:     s.deps.Search.PageSize,
	})
	if err != nil {
		s.fail(c, "typeahead", err)
		return
	}
	view.Hits = incrementalload.HitTransform(result.Items, models.FilterState{SearchText: c.Query("text")})
	view.HasMore = result.More(s.deps.Search.PageSize)
	c.JSON(http.StatusOK, successResponse(c, "Hits retrieved", view))
}
