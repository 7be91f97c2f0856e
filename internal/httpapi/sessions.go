// internal/httpapi/sessions.go
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "pricelens/internal/common/errors"
	incrementalload "pricelens/internal/loader/incremental-load"
	"pricelens/internal/models"
)

type productController = incrementalload.Controller[models.NormalizedProduct]

type sessionView struct {
	ID   string                                         `json:"id"`
	View incrementalload.View[models.NormalizedProduct] `json:"view"`
}

type queryBody struct {
	Text string `json:"text"`
}

type categoryBody struct {
	Slug string `json:"slug"`
}

type renderedBody struct {
	Index *int `json:"index"`
}

// withSession resolves :id to its controller or answers 404.
func (s *Server) withSession(h func(*gin.Context, uuid.UUID, *productController)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			s.badRequest(c, "session id must be a UUID")
			return
		}
		ctrl, ok := s.deps.Sessions.Get(id)
		if !ok {
			s.fail(c, "session", apperrors.NewNotFoundError("session "+id.String()))
			return
		}
		h(c, id, ctrl)
	}
}

func (s *Server) writeSession(c *gin.Context, status int, id uuid.UUID, ctrl *productController) {
	c.JSON(status, successResponse(c, "Session state", sessionView{ID: id.String(), View: ctrl.View()}))
}

func (s *Server) handleCreateSession(c *gin.Context) {
	id, ctrl := s.deps.Sessions.Create()
	s.logger.Debug("session created", map[string]interface{}{"session": id.String()})
	s.writeSession(c, http.StatusCreated, id, ctrl)
}

func (s *Server) handleCloseSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.badRequest(c, "session id must be a UUID")
		return
	}
	if !s.deps.Sessions.Close(id) {
		s.fail(c, "session", apperrors.NewNotFoundError("session "+id.String()))
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSessionView(c *gin.Context, id uuid.UUID, ctrl *productController) {
	s.writeSession(c, http.StatusOK, id, ctrl)
}

func (s *Server) handleSessionQuery(c *gin.Context, id uuid.UUID, ctrl *productController) {
	var body queryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	ctrl.OnQueryChange(body.Text)
	s.writeSession(c, http.StatusAccepted, id, ctrl)
}

func (s *Server) handleSessionCategory(c *gin.Context, id uuid.UUID, ctrl *productController) {
	var body categoryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	ctrl.OnCategoryChange(body.Slug)
	s.writeSession(c, http.StatusAccepted, id, ctrl)
}

func (s *Server) handleSessionFilter(c *gin.Context, id uuid.UUID, ctrl *productController) {
	var patch models.FilterPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	if err := ctrl.OnFilterChange(patch); err != nil {
		s.fail(c, "session.filter", err)
		return
	}
	s.writeSession(c, http.StatusAccepted, id, ctrl)
}

func (s *Server) handleSessionMore(c *gin.Context, id uuid.UUID, ctrl *productController) {
	ctrl.OnLoadMoreRequested()
	s.writeSession(c, http.StatusAccepted, id, ctrl)
}

func (s *Server) handleSessionRendered(c *gin.Context, id uuid.UUID, ctrl *productController) {
	var body renderedBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Index == nil || *body.Index < 0 {
		s.badRequest(c, "index must be a non-negative integer")
		return
	}
	ctrl.OnItemRendered(*body.Index)
	s.writeSession(c, http.StatusAccepted, id, ctrl)
}

func (s *Server) handleSessionRefresh(c *gin.Context, id uuid.UUID, ctrl *productController) {
	ctrl.Refresh()
	s.writeSession(c, http.StatusAccepted, id, ctrl)
}
