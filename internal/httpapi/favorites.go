// internal/httpapi/favorites.go
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pricelens/internal/storage"
)

type favoritesView struct {
	User     string   `json:"user"`
	Products []string `json:"products"`
}

func (s *Server) handleListFavorites(c *gin.Context) {
	user := c.Param("user")
	ids, err := s.deps.Favorites.List(c.Request.Context(), user)
	s.writeFavorites(c, user, ids, err)
}

func (s *Server) handleAddFavorite(c *gin.Context) {
	user := c.Param("user")
	ids, err := s.deps.Favorites.Add(c.Request.Context(), user, c.Param("product"))
	s.writeFavorites(c, user, ids, err)
}

func (s *Server) handleRemoveFavorite(c *gin.Context) {
	user := c.Param("user")
	ids, err := s.deps.Favorites.Remove(c.Request.Context(), user, c.Param("product"))
	s.writeFavorites(c, user, ids, err)
}

func (s *Server) writeFavorites(c *gin.Context, user string, ids []string, err error) {
	switch {
	case errors.Is(err, storage.ErrMissingUser), errors.Is(err, storage.ErrMissingProduct):
		s.badRequest(c, err.Error())
	case err != nil:
		s.fail(c, "favorites", err)
	default:
		c.JSON(http.StatusOK, successResponse(c, "Favorites retrieved", favoritesView{User: user, Products: ids}))
	}
}
