package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"loyalty-backend/dtos"
	"loyalty-backend/imageopt"
	"loyalty-backend/metrics"
	"loyalty-backend/models"
	"loyalty-backend/notify"
	"loyalty-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Evidence is an uploaded proof file, already read into memory.
type Evidence struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RedemptionService owns the submission lifecycle and is the only code path
// that changes a user's points.
type RedemptionService struct {
	DB        *gorm.DB
	Storage   storage.Client
	Optimizer imageopt.Optimizer
	Notifier  notify.Notifier
	Log       *zap.Logger
	Now       func() time.Time
}

func NewRedemptionService(db *gorm.DB, store storage.Client, opt imageopt.Optimizer, n notify.Notifier, log *zap.Logger) *RedemptionService {
	if opt == nil {
		opt = imageopt.Nop{}
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &RedemptionService{DB: db, Storage: store, Optimizer: opt, Notifier: n, Log: log, Now: time.Now}
}

// CanRedeem is the single eligibility rule shared by reads and writes: a
// pending submission blocks, an approved one blocks once-only rewards, and a
// rejection always allows a new attempt.
func CanRedeem(latest *models.SubmissionStatus, redeemType models.RedeemType) bool {
	if latest == nil {
		return true
	}
	switch *latest {
	case models.SubmissionStatusPending:
		return false
	case models.SubmissionStatusApproved:
		return redeemType != models.RedeemTypeOnce
	}
	return true
}

func checkEligibility(latest *models.Submission, reward *models.Reward) error {
	if latest == nil {
		return nil
	}
	if latest.Status == models.SubmissionStatusPending {
		return errConflictPending
	}
	if reward.RedeemType == models.RedeemTypeOnce && latest.Status == models.SubmissionStatusApproved {
		return errAlreadyRedeemed
	}
	return nil
}

// latestSubmission is the most recent submission for (user, reward), or nil.
func latestSubmission(db *gorm.DB, userID, rewardID uuid.UUID) (*models.Submission, error) {
	var subs []models.Submission
	if err := db.Where("user_id = ? AND reward_id = ?", userID, rewardID).
		Order("created_at DESC").
		Limit(1).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return &subs[0], nil
}

func activeReward(db *gorm.DB, id uuid.UUID) (*models.Reward, error) {
	var rewards []models.Reward
	if err := db.Where("id = ? AND is_active = ?", id, true).Limit(1).Find(&rewards).Error; err != nil {
		return nil, err
	}
	if len(rewards) == 0 {
		return nil, NotFound("Reward")
	}
	return &rewards[0], nil
}

func (s *RedemptionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateSubmission stores the evidence and records a pending submission.
// Eligibility is checked before the upload and again inside the insert
// transaction; the partial unique index on pending rows backs both checks.
// When the insert fails the uploaded object is removed again.
func (s *RedemptionService) CreateSubmission(ctx context.Context, userID, rewardID uuid.UUID, ev Evidence) (*models.Submission, error) {
	if len(ev.Data) == 0 {
		return nil, Validation("Evidence file is required")
	}
	db := s.DB.WithContext(ctx)

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("User")
		}
		return nil, unexpected(err)
	}

	reward, err := activeReward(db, rewardID)
	if err != nil {
		return nil, asServiceError(err)
	}

	latest, err := latestSubmission(db, userID, rewardID)
	if err != nil {
		return nil, unexpected(err)
	}
	if err := checkEligibility(latest, reward); err != nil {
		metrics.SubmissionsRefused.WithLabelValues(string(CodeOf(err))).Inc()
		return nil, err
	}

	ref, err := s.storeEvidence(ctx, ev)
	if err != nil {
		return nil, storageFailure(err)
	}

	sub := models.Submission{
		UserID:   userID,
		RewardID: rewardID,
		FilePath: ref,
		Status:   models.SubmissionStatusPending,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		latest, err := latestSubmission(tx, userID, rewardID)
		if err != nil {
			return err
		}
		if err := checkEligibility(latest, reward); err != nil {
			return err
		}
		if err := tx.Create(&sub).Error; err != nil {
			if isUniqueViolation(err) {
				return errConflictPending
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.discardEvidence(ref)
		serr := asServiceError(err)
		if c := CodeOf(serr); c == CodeConflictPending || c == CodeAlreadyRedeemed {
			metrics.SubmissionsRefused.WithLabelValues(string(c)).Inc()
		}
		return nil, serr
	}

	metrics.SubmissionsCreated.Inc()
	s.Log.Info("submission created",
		zap.String("submission_id", sub.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("reward_id", rewardID.String()),
	)
	s.notify(ctx, notify.Event{
		Kind:        notify.SubmissionCreated,
		Username:    user.Username,
		Name:        user.Name,
		Email:       user.Email,
		RewardTitle: reward.Title,
		Points:      reward.Points,
	})
	return &sub, nil
}

func (s *RedemptionService) storeEvidence(ctx context.Context, ev Evidence) (string, error) {
	data, name, ctype := ev.Data, ev.Filename, ev.ContentType
	res, err := s.Optimizer.Optimize(imageopt.Submission, ev.Filename, ev.ContentType, ev.Data)
	if err != nil {
		s.Log.Warn("image optimization failed, storing original", zap.String("filename", ev.Filename), zap.Error(err))
	} else {
		data, name, ctype = res.Data, res.Filename, res.ContentType
	}
	return s.Storage.Upload(ctx, storage.KindSubmission, name, ctype, bytes.NewReader(data))
}

// discardEvidence removes an object whose submission row was never written.
// It runs on a fresh context so a cancelled request still cleans up.
func (s *RedemptionService) discardEvidence(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Storage.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.Log.Error("failed to remove orphaned evidence", zap.String("ref", ref), zap.Error(err))
	}
}

// GetRewardView returns an active reward. With a user it also carries the
// user's latest submission status and whether they may submit again.
func (s *RedemptionService) GetRewardView(ctx context.Context, rewardID uuid.UUID, userID *uuid.UUID) (*dtos.RewardView, error) {
	db := s.DB.WithContext(ctx)
	reward, err := activeReward(db, rewardID)
	if err != nil {
		return nil, asServiceError(err)
	}
	view := &dtos.RewardView{Reward: *reward, CanRedeem: true}
	if userID == nil {
		return view, nil
	}

	latest, err := latestSubmission(db, *userID, rewardID)
	if err != nil {
		return nil, unexpected(err)
	}
	if latest != nil {
		status := latest.Status
		view.UserStatus = &status
	}
	view.CanRedeem = CanRedeem(view.UserStatus, reward.RedeemType)
	return view, nil
}

// ListCatalog returns active, non-suspended rewards, newest first. With a
// user each entry carries that user's latest status.
func (s *RedemptionService) ListCatalog(ctx context.Context, userID *uuid.UUID) ([]dtos.RewardView, error) {
	db := s.DB.WithContext(ctx)
	var rewards []models.Reward
	if err := db.Where("is_active = ? AND is_suspended = ?", true, false).
		Order("created_at DESC").
		Find(&rewards).Error; err != nil {
		return nil, unexpected(err)
	}

	views := make([]dtos.RewardView, len(rewards))
	for i, r := range rewards {
		views[i] = dtos.RewardView{Reward: r, CanRedeem: true}
	}
	if userID == nil || len(rewards) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, len(rewards))
	for i, r := range rewards {
		ids[i] = r.ID
	}
	var subs []models.Submission
	if err := db.Select("reward_id", "status", "created_at").
		Where("user_id = ? AND reward_id IN ?", *userID, ids).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, unexpected(err)
	}
	latest := make(map[uuid.UUID]models.SubmissionStatus, len(subs))
	for _, sub := range subs {
		if _, seen := latest[sub.RewardID]; !seen {
			latest[sub.RewardID] = sub.Status
		}
	}
	for i := range views {
		if st, ok := latest[views[i].ID]; ok {
			st := st
			views[i].UserStatus = &st
		}
		views[i].CanRedeem = CanRedeem(views[i].UserStatus, views[i].RedeemType)
	}
	return views, nil
}

// Approve settles a pending submission: the status change, the points credit
// and the history row commit together or not at all. Evidence is deleted
// after commit on a best-effort basis.
func (s *RedemptionService) Approve(ctx context.Context, submissionID uuid.UUID) (*models.Submission, error) {
	var (
		sub    models.Submission
		reward models.Reward
		user   models.User
	)
	now := s.now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadForReview(tx, submissionID, models.SubmissionStatusApproved, &sub); err != nil {
			return err
		}
		if err := tx.Where("id = ?", sub.RewardID).First(&reward).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("Reward")
			}
			return err
		}

		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", sub.ID, models.SubmissionStatusPending).
			Updates(map[string]interface{}{
				"status":      models.SubmissionStatusApproved,
				"reviewed_at": now,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyResolved
		}

		res = tx.Model(&models.User{}).
			Where("id = ?", sub.UserID).
			Update("points", gorm.Expr("points + ?", reward.Points))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return NotFound("User")
		}

		if err := tx.Create(&models.PointsHistory{
			UserID:       sub.UserID,
			SubmissionID: sub.ID,
			RewardID:     reward.ID,
			Points:       reward.Points,
		}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", sub.UserID).First(&user).Error
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	sub.Status = models.SubmissionStatusApproved
	sub.ReviewedAt = &now
	sub.UpdatedAt = now

	metrics.SubmissionsResolved.WithLabelValues(string(models.SubmissionStatusApproved)).Inc()
	metrics.PointsAwarded.Add(float64(reward.Points))
	s.Log.Info("submission approved",
		zap.String("submission_id", sub.ID.String()),
		zap.String("user_id", sub.UserID.String()),
		zap.Int("points", reward.Points),
		zap.Int("balance", user.Points),
	)

	s.purgeEvidence(ctx, &sub)
	s.notify(ctx, notify.Event{
		Kind:        notify.SubmissionApproved,
		Username:    user.Username,
		Name:        user.Name,
		Email:       user.Email,
		RewardTitle: reward.Title,
		Points:      reward.Points,
	})
	return &sub, nil
}

// Reject closes a pending submission with a mandatory reason. Points are
// never touched.
func (s *RedemptionService) Reject(ctx context.Context, submissionID uuid.UUID, reason string) (*models.Submission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, Validation("Rejection reason is required")
	}

	var (
		sub    models.Submission
		reward models.Reward
		user   models.User
	)
	now := s.now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadForReview(tx, submissionID, models.SubmissionStatusRejected, &sub); err != nil {
			return err
		}
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", sub.ID, models.SubmissionStatusPending).
			Updates(map[string]interface{}{
				"status":           models.SubmissionStatusRejected,
				"rejection_reason": reason,
				"reviewed_at":      now,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyResolved
		}
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	// For the notification only; the rejection is already committed.
	db := s.DB.WithContext(ctx)
	if err := db.Where("id = ?", sub.RewardID).Limit(1).Find(&reward).Error; err != nil {
		s.Log.Warn("reject: load reward for notification", zap.String("submission_id", sub.ID.String()), zap.Error(err))
	}
	if err := db.Where("id = ?", sub.UserID).Limit(1).Find(&user).Error; err != nil {
		s.Log.Warn("reject: load user for notification", zap.String("submission_id", sub.ID.String()), zap.Error(err))
	}

	sub.Status = models.SubmissionStatusRejected
	sub.RejectionReason = &reason
	sub.ReviewedAt = &now
	sub.UpdatedAt = now

	metrics.SubmissionsResolved.WithLabelValues(string(models.SubmissionStatusRejected)).Inc()
	s.Log.Info("submission rejected",
		zap.String("submission_id", sub.ID.String()),
		zap.String("user_id", sub.UserID.String()),
	)

	s.purgeEvidence(ctx, &sub)
	s.notify(ctx, notify.Event{
		Kind:        notify.SubmissionRejected,
		Username:    user.Username,
		Name:        user.Name,
		Email:       user.Email,
		RewardTitle: reward.Title,
		Reason:      reason,
	})
	return &sub, nil
}

// loadForReview locks the submission row and checks the transition.
func loadForReview(tx *gorm.DB, id uuid.UUID, to models.SubmissionStatus, sub *models.Submission) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("Submission")
		}
		return err
	}
	if !models.IsValidTransition(sub.Status, to) {
		return errAlreadyResolved
	}
	return nil
}

// purgeEvidence deletes a resolved submission's object and marks the row.
// Failures are logged and left for the retention sweep.
func (s *RedemptionService) purgeEvidence(ctx context.Context, sub *models.Submission) {
	if err := purgeEvidence(ctx, s.DB, s.Storage, sub); err != nil {
		metrics.EvidenceDeleteFailures.Inc()
		s.Log.Warn("evidence cleanup failed",
			zap.String("submission_id", sub.ID.String()),
			zap.String("ref", sub.FilePath),
			zap.Error(err),
		)
	}
}

func purgeEvidence(ctx context.Context, db *gorm.DB, store storage.Client, sub *models.Submission) error {
	if sub.FilePath != "" {
		if err := store.Delete(ctx, sub.FilePath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return err
		}
	}
	if err := db.WithContext(ctx).Model(&models.Submission{}).
		Where("id = ?", sub.ID).
		Update("evidence_purged", true).Error; err != nil {
		return err
	}
	sub.EvidencePurged = true
	return nil
}

func (s *RedemptionService) notify(ctx context.Context, ev notify.Event) {
	if err := s.Notifier.Notify(ctx, ev); err != nil {
		s.Log.Warn("notification failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

// ListMine returns the user's submissions, newest first. Inactive rewards
// still join.
func (s *RedemptionService) ListMine(ctx context.Context, userID uuid.UUID) ([]dtos.SubmissionDetail, error) {
	details := []dtos.SubmissionDetail{}
	err := s.DB.WithContext(ctx).
		Table("submissions").
		Select(submissionColumns+", rewards.title AS reward_title, rewards.points AS points").
		Joins("JOIN rewards ON rewards.id = submissions.reward_id").
		Where("submissions.user_id = ?", userID).
		Order("submissions.created_at DESC").
		Scan(&details).Error
	if err != nil {
		return nil, unexpected(err)
	}
	return details, nil
}

// ListPending is the admin review queue, oldest first.
func (s *RedemptionService) ListPending(ctx context.Context) ([]dtos.SubmissionDetail, error) {
	details := []dtos.SubmissionDetail{}
	err := s.DB.WithContext(ctx).
		Table("submissions").
		Select(submissionColumns+", users.username, users.name, rewards.title AS reward_title, rewards.points AS points").
		Joins("JOIN users ON users.id = submissions.user_id").
		Joins("JOIN rewards ON rewards.id = submissions.reward_id").
		Where("submissions.status = ?", models.SubmissionStatusPending).
		Order("submissions.created_at ASC").
		Scan(&details).Error
	if err != nil {
		return nil, unexpected(err)
	}
	return details, nil
}

const submissionColumns = "submissions.id, submissions.user_id, submissions.reward_id, submissions.file_path, " +
	"submissions.status, submissions.rejection_reason, submissions.reviewed_at, submissions.created_at"
