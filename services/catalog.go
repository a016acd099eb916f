package services

import (
	"context"
	"errors"
	"strings"

	"loyalty-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardInput is the admin payload for creating or updating a reward.
type RewardInput struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	HowToRedeem string            `json:"how_to_redeem"`
	Points      int               `json:"points"`
	RedeemType  models.RedeemType `json:"redeem_type"`
}

func (in *RewardInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.HowToRedeem = strings.TrimSpace(in.HowToRedeem)
	if in.Title == "" || in.Description == "" || in.HowToRedeem == "" {
		return Validation("Title, description and how to redeem are required")
	}
	if in.Points <= 0 {
		return Validation("Points must be greater than zero")
	}
	if in.RedeemType == "" {
		in.RedeemType = models.RedeemTypeUnlimited
	}
	if !in.RedeemType.Valid() {
		return Validation("Redeem type must be 'unlimited' or 'once'")
	}
	return nil
}

type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

func (s *CatalogService) Create(ctx context.Context, in RewardInput) (*models.Reward, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	reward := models.Reward{
		Title:       in.Title,
		Description: in.Description,
		HowToRedeem: in.HowToRedeem,
		Points:      in.Points,
		RedeemType:  in.RedeemType,
		IsActive:    true,
	}
	if err := s.DB.WithContext(ctx).Create(&reward).Error; err != nil {
		return nil, unexpected(err)
	}
	return &reward, nil
}

// Get returns an active reward regardless of suspension.
func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	reward, err := activeReward(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, asServiceError(err)
	}
	return reward, nil
}

// Update replaces the editable fields of an active reward. Suspension and
// the active flag are left alone.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, in RewardInput) (*models.Reward, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	reward, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	reward.Title = in.Title
	reward.Description = in.Description
	reward.HowToRedeem = in.HowToRedeem
	reward.Points = in.Points
	reward.RedeemType = in.RedeemType
	if err := s.DB.WithContext(ctx).Model(reward).
		Select("title", "description", "how_to_redeem", "points", "redeem_type", "updated_at").
		Updates(reward).Error; err != nil {
		return nil, unexpected(err)
	}
	return reward, nil
}

// SoftDelete marks a reward inactive. Submissions keep pointing at it.
func (s *CatalogService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&models.Reward{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return unexpected(res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFound("Reward")
	}
	return nil
}

func (s *CatalogService) SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) (*models.Reward, error) {
	reward, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(reward).Update("is_suspended", suspended).Error; err != nil {
		return nil, unexpected(err)
	}
	reward.IsSuspended = suspended
	return reward, nil
}

// Duplicate copies any reward, including an inactive one. The copy gets a
// new id, a " (Copy)" title suffix and always starts suspended.
func (s *CatalogService) Duplicate(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	db := s.DB.WithContext(ctx)
	var original models.Reward
	if err := db.Where("id = ?", id).First(&original).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Reward")
		}
		return nil, unexpected(err)
	}

	dup := models.Reward{
		Title:       original.Title + " (Copy)",
		Description: original.Description,
		HowToRedeem: original.HowToRedeem,
		Points:      original.Points,
		RedeemType:  original.RedeemType,
		IsActive:    original.IsActive,
		IsSuspended: true,
	}
	if err := db.Create(&dup).Error; err != nil {
		return nil, unexpected(err)
	}
	return &dup, nil
}

// AdminList returns every active reward, suspended ones included, newest first.
func (s *CatalogService) AdminList(ctx context.Context) ([]models.Reward, error) {
	rewards := []models.Reward{}
	if err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&rewards).Error; err != nil {
		return nil, unexpected(err)
	}
	return rewards, nil
}
