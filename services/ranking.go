package services

import (
	"context"
	"sort"

	"loyalty-backend/dtos"
	"loyalty-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rank orders users by points descending, then by registration time so the
// earlier member wins a tie. Positions start at 1. The input is not modified.
func Rank(users []models.User) []dtos.RankEntry {
	sorted := make([]models.User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	entries := make([]dtos.RankEntry, len(sorted))
	for i, u := range sorted {
		entries[i] = dtos.RankEntry{
			ID:       u.ID,
			Username: u.Username,
			Name:     u.Name,
			Photo:    u.Photo,
			Points:   u.Points,
			Position: i + 1,
		}
	}
	return entries
}

type RankingService struct {
	DB *gorm.DB
}

func NewRankingService(db *gorm.DB) *RankingService {
	return &RankingService{DB: db}
}

// Leaderboard ranks every non-admin user and returns one page of the result
// along with the total number of ranked users. Positions are global, not
// per page. A limit <= 0 returns everything.
func (s *RankingService) Leaderboard(ctx context.Context, page, limit int) ([]dtos.RankEntry, int, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).
		Select("id", "username", "name", "photo", "points", "created_at").
		Where("is_admin = ?", false).
		Find(&users).Error; err != nil {
		return nil, 0, unexpected(err)
	}

	entries := Rank(users)
	total := len(entries)
	if limit <= 0 {
		return entries, total, nil
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return []dtos.RankEntry{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return entries[start:end], total, nil
}

// Position returns a single user's rank, or NOT_FOUND for admins and unknown
// users.
func (s *RankingService) Position(ctx context.Context, userID uuid.UUID) (*dtos.RankEntry, error) {
	entries, _, err := s.Leaderboard(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == userID {
			return &entries[i], nil
		}
	}
	return nil, NotFound("User")
}
