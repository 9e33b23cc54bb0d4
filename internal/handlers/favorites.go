package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/models"
	"github.com/hunyoung529/onepick/internal/services"
)

type FavoriteHandler struct {
	favoriteService *services.FavoriteService
	rankingService  *services.RankingService
}

func NewFavoriteHandler(favoriteService *services.FavoriteService, rankingService *services.RankingService) *FavoriteHandler {
	return &FavoriteHandler{
		favoriteService: favoriteService,
		rankingService:  rankingService,
	}
}

// ToggleFavorite adds or removes a work from the caller's favorites. The
// body may carry the work's display fields; otherwise they are copied from
// works/{platform}_{id} when it exists.
func (h *FavoriteHandler) ToggleFavorite(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	var work models.Work
	if err := c.ShouldBindJSON(&work); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	work.Platform, work.ID = c.Param("platform"), c.Param("id")

	if work.Title == nil {
		stored, err := h.rankingService.WorkByID(c.Request.Context(), work.Platform, work.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		if stored != nil {
			work = *stored
		}
	}

	favorite, err := h.favoriteService.ToggleFavorite(c.Request.Context(), id.UID, work)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": favorite})
}

// IsFavorite reports whether the caller has favorited a work
func (h *FavoriteHandler) IsFavorite(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	favorite, err := h.favoriteService.IsFavorite(c.Request.Context(), id.UID, c.Param("platform"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": favorite})
}

// ListFavorites returns the caller's favorites
func (h *FavoriteHandler) ListFavorites(c *gin.Context) {
	id, ok := requireIdentity(c)
	if !ok {
		return
	}

	favorites, err := h.favoriteService.ListFavorites(c.Request.Context(), id.UID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}
