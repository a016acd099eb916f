package handlers

import (
	"net/http"
	"strconv"

	"loyalty-backend/services"

	"github.com/gin-gonic/gin"
)

type RankingHandler struct {
	Ranking *services.RankingService
}

// GetRanking returns the leaderboard. Without ?limit the whole ranking is
// returned; the total is always in X-Total-Count.
func (h *RankingHandler) GetRanking(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit > 100 {
		limit = 100
	}

	entries, total, err := h.Ranking.Leaderboard(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.JSON(http.StatusOK, entries)
}

func (h *RankingHandler) GetMyPosition(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	entry, err := h.Ranking.Position(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
