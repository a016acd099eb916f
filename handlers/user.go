package handlers

import (
	"fmt"
	"net/http"
	"time"

	"loyalty-backend/export"
	"loyalty-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandler struct {
	DB *gorm.DB
}

func (h *UserHandler) listUsers() ([]models.User, error) {
	users := []models.User{}
	err := h.DB.Select("id", "username", "name", "email", "photo", "points", "is_admin", "created_at", "updated_at").
		Order("created_at DESC").
		Find(&users).Error
	return users, err
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.listUsers()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// ExportUsers streams the user directory as an XLSX workbook.
func (h *UserHandler) ExportUsers(c *gin.Context) {
	users, err := h.listUsers()
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("users_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := export.WriteUsersWorkbook(c.Writer, users); err != nil {
		_ = c.Error(err)
	}
}
