package handlers

import (
	"net/http"
	"strings"

	"loyalty-backend/dtos"
	"loyalty-backend/models"
	"loyalty-backend/notify"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ContactHandler struct {
	DB       *gorm.DB
	Notifier notify.Notifier
}

func (h *ContactHandler) CreateMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Subject string             `json:"subject" binding:"required,max=200"`
		Type    models.ContactType `json:"type" binding:"required"`
		Message string             `json:"message" binding:"required,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}
	if !req.Type.Valid() {
		badRequest(c, "type must be 'incident' or 'suggestion'")
		return
	}
	subject, message := strings.TrimSpace(req.Subject), strings.TrimSpace(req.Message)
	if subject == "" || message == "" {
		badRequest(c, "subject and message are required")
		return
	}

	msg := models.ContactMessage{
		UserID:  &userID,
		Subject: subject,
		Type:    req.Type,
		Message: message,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		respondError(c, err)
		return
	}

	if h.Notifier != nil {
		var user models.User
		h.DB.Select("username", "name", "email").Where("id = ?", userID).Limit(1).Find(&user)
		_ = h.Notifier.Notify(c.Request.Context(), notify.Event{
			Kind:     notify.ContactReceived,
			Username: user.Username,
			Name:     user.Name,
			Email:    user.Email,
			Subject:  subject,
		})
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully", "id": msg.ID})
}

// GetMessages lists contact messages newest first with their author, if the
// author still exists.
func (h *ContactHandler) GetMessages(c *gin.Context) {
	messages := []dtos.ContactMessageView{}
	err := h.DB.Table("contact_messages").
		Select("contact_messages.id, contact_messages.user_id, contact_messages.subject, contact_messages.type, " +
			"contact_messages.message, contact_messages.created_at, users.username, users.name, users.email").
		Joins("LEFT JOIN users ON users.id = contact_messages.user_id").
		Order("contact_messages.created_at DESC").
		Scan(&messages).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
