package services

import (
	"context"
	"time"

	"loyalty-backend/metrics"
	"loyalty-backend/models"
	"loyalty-backend/storage"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultEvidenceRetention = 30 * 24 * time.Hour
	sweepBatchSize           = 200
)

// EvidenceSweeper deletes evidence of submissions resolved more than
// Retention ago whose object is still in storage. Running it twice is a no-op.
type EvidenceSweeper struct {
	DB        *gorm.DB
	Storage   storage.Client
	Log       *zap.Logger
	Retention time.Duration
	Now       func() time.Time
}

func NewEvidenceSweeper(db *gorm.DB, store storage.Client, log *zap.Logger, retention time.Duration) *EvidenceSweeper {
	if retention <= 0 {
		retention = DefaultEvidenceRetention
	}
	return &EvidenceSweeper{DB: db, Storage: store, Log: log, Retention: retention, Now: time.Now}
}

// Sweep purges one batch and returns how many objects were cleaned. Objects
// that fail to delete stay unmarked and are retried on the next run.
func (s *EvidenceSweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	cutoff := now().Add(-s.Retention)

	var subs []models.Submission
	if err := s.DB.WithContext(ctx).
		Select("id", "file_path", "status", "reviewed_at").
		Where("status IN ? AND reviewed_at < ? AND evidence_purged = ?",
			[]models.SubmissionStatus{models.SubmissionStatusApproved, models.SubmissionStatusRejected},
			cutoff, false).
		Order("reviewed_at ASC").
		Limit(sweepBatchSize).
		Find(&subs).Error; err != nil {
		return 0, err
	}

	purged := 0
	for i := range subs {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		if err := purgeEvidence(ctx, s.DB, s.Storage, &subs[i]); err != nil {
			metrics.EvidenceDeleteFailures.Inc()
			s.Log.Warn("evidence sweep: delete failed",
				zap.String("submission_id", subs[i].ID.String()),
				zap.String("ref", subs[i].FilePath),
				zap.Error(err),
			)
			continue
		}
		purged++
	}
	if purged > 0 {
		metrics.EvidencePurged.Add(float64(purged))
		s.Log.Info("evidence sweep finished", zap.Int("purged", purged), zap.Int("candidates", len(subs)))
	}
	return purged, nil
}
