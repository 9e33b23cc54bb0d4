package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hunyoung529/onepick/internal/services"
)

const maxTake = 100

type RankingHandler struct {
	rankingService *services.RankingService
}

func NewRankingHandler(rankingService *services.RankingService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
	}
}

// Latest returns the newest snapshot date of a platform and its metadata
func (h *RankingHandler) Latest(c *gin.Context) {
	platform := c.Param("platform")
	date, err := h.rankingService.LatestSnapshotDate(c.Request.Context(), platform)
	if err != nil {
		writeError(c, err)
		return
	}
	if date == "" {
		c.JSON(http.StatusOK, gin.H{"date": nil, "meta": nil})
		return
	}

	meta, err := h.rankingService.SnapshotMeta(c.Request.Context(), platform, date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "meta": meta})
}

// SnapshotItems returns the items of one snapshot, optionally one weekday
func (h *RankingHandler) SnapshotItems(c *gin.Context) {
	platform, date := c.Param("platform"), c.Param("date")

	take := services.DefaultTake
	if takeStr := c.Query("take"); takeStr != "" {
		t, err := strconv.Atoi(takeStr)
		if err != nil || t <= 0 || t > maxTake {
			badRequest(c, "take must be between 1 and 100")
			return
		}
		take = t
	}

	var err error
	var items any
	if weekday := c.Query("weekday"); weekday != "" {
		items, err = h.rankingService.SnapshotItemsByWeekday(c.Request.Context(), platform, date, weekday, take)
	} else {
		items, err = h.rankingService.SnapshotItems(c.Request.Context(), platform, date, take)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "items": items})
}

// GetWork returns works/{platform}_{id}
func (h *RankingHandler) GetWork(c *gin.Context) {
	work, err := h.rankingService.WorkByID(c.Request.Context(), c.Param("platform"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if work == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "work not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"work": work})
}
