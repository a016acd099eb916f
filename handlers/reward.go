package handlers

import (
	"net/http"

	"loyalty-backend/middleware"
	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
)

type RewardHandler struct {
	Redemption *services.RedemptionService
	Catalog    *services.CatalogService
}

// GetRewards lists the public catalog. Signed-in callers also get their
// latest submission status per reward.
func (h *RewardHandler) GetRewards(c *gin.Context) {
	views, err := h.Redemption.ListCatalog(c.Request.Context(), middleware.OptionalUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if middleware.OptionalUserID(c) == nil {
		rewards := make([]interface{}, len(views))
		for i := range views {
			rewards[i] = views[i].Reward
		}
		c.JSON(http.StatusOK, rewards)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *RewardHandler) GetReward(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := middleware.OptionalUserID(c)
	view, err := h.Redemption.GetRewardView(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if userID == nil {
		c.JSON(http.StatusOK, view.Reward)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *RewardHandler) GetAllRewardsAdmin(c *gin.Context) {
	rewards, err := h.Catalog.AdminList(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rewards)
}

func (h *RewardHandler) CreateReward(c *gin.Context) {
	var in services.RewardInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}
	reward, err := h.Catalog.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reward)
}

func (h *RewardHandler) UpdateReward(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.RewardInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}
	reward, err := h.Catalog.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reward)
}

func (h *RewardHandler) DeleteReward(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.Catalog.SoftDelete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reward deleted"})
}

func (h *RewardHandler) SuspendReward(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		IsSuspended *bool `json:"is_suspended" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}
	reward, err := h.Catalog.SetSuspended(c.Request.Context(), id, *req.IsSuspended)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "Reward reactivated"
	if reward.IsSuspended {
		msg = "Reward suspended"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "reward": reward})
}

func (h *RewardHandler) DuplicateReward(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	reward, err := h.Catalog.Duplicate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reward)
}
