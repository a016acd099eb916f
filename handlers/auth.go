package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"loyalty-backend/imageopt"
	"loyalty-backend/models"
	"loyalty-backend/notify"
	"loyalty-backend/services"
	"loyalty-backend/storage"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB        *gorm.DB
	Storage   storage.Client
	Optimizer imageopt.Optimizer
	Notifier  notify.Notifier
	Log       *zap.Logger
}

func (h *AuthHandler) uploader() imageUploader {
	return imageUploader{Storage: h.Storage, Optimizer: h.Optimizer}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `form:"username" json:"username" binding:"required"`
		Password string `form:"password" json:"password" binding:"required,min=6"`
		Name     string `form:"name" json:"name" binding:"required"`
		Email    string `form:"email" json:"email" binding:"required,email"`
	}

	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !utils.ValidUsername(req.Username) {
		badRequest(c, "Username must be 3-30 letters, digits, dots or underscores")
		return
	}

	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		respondError(c, err)
		return
	}
	if count > 0 {
		badRequest(c, "Username or email already exists")
		return
	}

	var photo *string
	if fh, err := c.FormFile("photo"); err == nil {
		if err := utils.ValidateFileUpload(fh); err != nil {
			badRequest(c, err.Error())
			return
		}
		ref, err := h.uploader().store(c.Request.Context(), imageopt.Profile, storage.KindProfile, fh)
		if err != nil {
			respondError(c, &services.Error{Code: services.CodeStorageFailure, Message: "Failed to store file", Err: err})
			return
		}
		photo = &ref
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	user := models.User{
		Username: req.Username,
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: string(hashedPassword),
		Photo:    photo,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		if photo != nil {
			discardObject(context.Background(), h.Storage, h.Log, *photo)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			badRequest(c, "Username or email already exists")
			return
		}
		respondError(c, err)
		return
	}

	if h.Notifier != nil {
		_ = h.Notifier.Notify(c.Request.Context(), notify.Event{
			Kind:     notify.UserRegistered,
			Username: user.Username,
			Name:     user.Name,
			Email:    user.Email,
		})
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"user_id": user.ID,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password", "code": services.CodeUnauthenticated})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password", "code": services.CodeUnauthenticated})
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) CheckUsername(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}

	username := strings.TrimSpace(req.Username)
	if !utils.ValidUsername(username) {
		c.JSON(http.StatusOK, gin.H{"available": false, "valid": false})
		return
	}

	var count int64
	if err := h.DB.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": count == 0, "valid": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		respondError(c, services.NotFound("User"))
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdatePhoto replaces the caller's profile photo. The previous object is
// removed after the row points at the new one.
func (h *AuthHandler) UpdatePhoto(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		badRequest(c, "Photo is required")
		return
	}
	if err := utils.ValidateFileUpload(fh); err != nil {
		badRequest(c, err.Error())
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		respondError(c, services.NotFound("User"))
		return
	}

	ref, err := h.uploader().store(c.Request.Context(), imageopt.Profile, storage.KindProfile, fh)
	if err != nil {
		respondError(c, &services.Error{Code: services.CodeStorageFailure, Message: "Failed to store file", Err: err})
		return
	}

	previous := user.Photo
	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("photo", ref).Error; err != nil {
		discardObject(context.Background(), h.Storage, h.Log, ref)
		respondError(c, err)
		return
	}
	if previous != nil && *previous != "" {
		discardObject(c.Request.Context(), h.Storage, h.Log, *previous)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Photo updated", "photo": ref})
}

func (h *AuthHandler) DeletePhoto(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		respondError(c, services.NotFound("User"))
		return
	}
	if user.Photo == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No photo to delete"})
		return
	}

	previous := *user.Photo
	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("photo", nil).Error; err != nil {
		respondError(c, err)
		return
	}
	discardObject(c.Request.Context(), h.Storage, h.Log, previous)

	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted"})
}
