package handlers

import (
	"net/http"

	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubmissionHandler struct {
	Redemption *services.RedemptionService
}

// CreateSubmission accepts multipart fields reward_id and file.
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rewardID, err := uuid.Parse(c.PostForm("reward_id"))
	if err != nil {
		badRequest(c, "reward_id is required")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Evidence file is required")
		return
	}
	if err := utils.ValidateEvidenceUpload(fh); err != nil {
		badRequest(c, err.Error())
		return
	}
	data, err := readFile(fh)
	if err != nil {
		badRequest(c, "Failed to read uploaded file")
		return
	}

	sub, err := h.Redemption.CreateSubmission(c.Request.Context(), userID, rewardID, services.Evidence{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Evidence submitted for review",
		"id":         sub.ID,
		"submission": sub,
	})
}

func (h *SubmissionHandler) GetMySubmissions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	subs, err := h.Redemption.ListMine(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *SubmissionHandler) GetPendingSubmissions(c *gin.Context) {
	subs, err := h.Redemption.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *SubmissionHandler) ApproveSubmission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	sub, err := h.Redemption.Approve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Submission approved and points awarded", "submission": sub})
}

func (h *SubmissionHandler) RejectSubmission(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}
	sub, err := h.Redemption.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Submission rejected", "submission": sub})
}
