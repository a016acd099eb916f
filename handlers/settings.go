package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"loyalty-backend/dtos"
	"loyalty-backend/imageopt"
	"loyalty-backend/models"
	"loyalty-backend/services"
	"loyalty-backend/storage"
	"loyalty-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsHandler struct {
	DB        *gorm.DB
	Storage   storage.Client
	Optimizer imageopt.Optimizer
	Log       *zap.Logger
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}

func (h *SettingsHandler) GetColors(c *gin.Context) {
	var settings []models.Setting
	if err := h.DB.Where("key IN ?", []string{models.SettingPrimaryColor, models.SettingSecondaryColor}).
		Find(&settings).Error; err != nil {
		respondError(c, err)
		return
	}
	colors := gin.H{}
	for _, s := range settings {
		colors[s.Key] = s.Value
	}
	c.JSON(http.StatusOK, colors)
}

func (h *SettingsHandler) UpdateColors(c *gin.Context) {
	var req dtos.Colors
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, utils.SanitizeValidationError(err))
		return
	}
	if !utils.ValidHexColor(req.PrimaryColor) || !utils.ValidHexColor(req.SecondaryColor) {
		badRequest(c, "Colors must be hex values like #1a2b3c")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, models.SettingPrimaryColor, req.PrimaryColor); err != nil {
			return err
		}
		return upsertSetting(tx, models.SettingSecondaryColor, req.SecondaryColor)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Colors updated"})
}

func (h *SettingsHandler) currentBanner() (*dtos.Banner, error) {
	var settings []models.Setting
	if err := h.DB.Where("key = ?", models.SettingBanner).Limit(1).Find(&settings).Error; err != nil {
		return nil, err
	}
	if len(settings) == 0 || settings[0].Value == "" {
		return nil, nil
	}
	var banner dtos.Banner
	if err := json.Unmarshal([]byte(settings[0].Value), &banner); err != nil {
		return nil, err
	}
	return &banner, nil
}

// GetBanner returns the banner or JSON null when none is configured.
func (h *SettingsHandler) GetBanner(c *gin.Context) {
	banner, err := h.currentBanner()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, banner)
}

// UpdateBanner takes an optional image and a link url. Without an image the
// banner has no picture; a replaced picture is deleted from storage.
func (h *SettingsHandler) UpdateBanner(c *gin.Context) {
	previous, err := h.currentBanner()
	if err != nil {
		respondError(c, err)
		return
	}

	banner := dtos.Banner{}
	if u := strings.TrimSpace(c.PostForm("url")); u != "" {
		banner.URL = &u
	}

	if fh, err := c.FormFile("image"); err == nil {
		if err := utils.ValidateFileUpload(fh); err != nil {
			badRequest(c, err.Error())
			return
		}
		up := imageUploader{Storage: h.Storage, Optimizer: h.Optimizer}
		ref, err := up.store(c.Request.Context(), imageopt.Banner, storage.KindBanner, fh)
		if err != nil {
			respondError(c, &services.Error{Code: services.CodeStorageFailure, Message: "Failed to store file", Err: err})
			return
		}
		banner.ImagePath = &ref
	}

	value, err := json.Marshal(banner)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := upsertSetting(h.DB, models.SettingBanner, string(value)); err != nil {
		respondError(c, err)
		return
	}

	if previous != nil && previous.ImagePath != nil &&
		(banner.ImagePath == nil || *banner.ImagePath != *previous.ImagePath) {
		discardObject(c.Request.Context(), h.Storage, h.Log, *previous.ImagePath)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Banner updated", "image_path": banner.ImagePath})
}
