package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"loyalty-backend/models"
	"loyalty-backend/notify"
	"loyalty-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestCanRedeem(t *testing.T) {
	pending := models.SubmissionStatusPending
	approved := models.SubmissionStatusApproved
	rejected := models.SubmissionStatusRejected

	tests := []struct {
		name   string
		status *models.SubmissionStatus
		rt     models.RedeemType
		want   bool
	}{
		{"no submission", nil, models.RedeemTypeOnce, true},
		{"pending unlimited", &pending, models.RedeemTypeUnlimited, false},
		{"pending once", &pending, models.RedeemTypeOnce, false},
		{"approved unlimited", &approved, models.RedeemTypeUnlimited, true},
		{"approved once", &approved, models.RedeemTypeOnce, false},
		{"rejected once", &rejected, models.RedeemTypeOnce, true},
		{"rejected unlimited", &rejected, models.RedeemTypeUnlimited, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRedeem(tt.status, tt.rt); got != tt.want {
				t.Errorf("CanRedeem() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCreateSubmission_Success(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	rec := &recordingNotifier{}
	svc := newRedemption(db, store)
	svc.Notifier = rec
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	sub, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != models.SubmissionStatusPending {
		t.Errorf("expected pending, got %s", sub.Status)
	}
	if len(store.Uploads) != 1 || sub.FilePath != store.Uploads[0] {
		t.Errorf("expected file path to be the uploaded ref, got %q (uploads %v)", sub.FilePath, store.Uploads)
	}
	if kinds := rec.kinds(); len(kinds) != 1 || kinds[0] != notify.SubmissionCreated {
		t.Errorf("expected one SubmissionCreated notification, got %v", kinds)
	}
}

func TestCreateSubmission_Validation(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	_, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, Evidence{Filename: "empty.jpg"})
	expectCode(t, err, CodeValidation)
}

func TestCreateSubmission_NotFound(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	_, err := svc.CreateSubmission(context.Background(), user.ID, uuid.New(), evidence())
	expectCode(t, err, CodeNotFound)

	_, err = svc.CreateSubmission(context.Background(), uuid.New(), reward.ID, evidence())
	expectCode(t, err, CodeNotFound)

	db.Model(&reward).Update("is_active", false)
	_, err = svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	expectCode(t, err, CodeNotFound)

	if len(store.Uploads) != 0 {
		t.Errorf("expected no uploads for refused submissions, got %d", len(store.Uploads))
	}
}

func TestCreateSubmission_SuspendedRewardStillAccepted(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	db.Model(&reward).Update("is_suspended", true)

	if _, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence()); err != nil {
		t.Fatalf("expected suspended reward to accept direct submissions, got %v", err)
	}
}

// P1
func TestCreateSubmission_ConflictPending(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	if _, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence()); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	_, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	expectCode(t, err, CodeConflictPending)

	if len(store.Uploads) != 1 {
		t.Errorf("refused submission should not upload, got %d uploads", len(store.Uploads))
	}
}

// P2
func TestCreateSubmission_OnceAlreadyRedeemed(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Welcome", 50, models.RedeemTypeOnce)
	ctx := context.Background()

	sub, err := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	_, err = svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	expectCode(t, err, CodeAlreadyRedeemed)
}

func TestCreateSubmission_UnlimitedAfterApproval(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	ctx := context.Background()

	sub, _ := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	if _, err := svc.Approve(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence()); err != nil {
		t.Fatalf("expected unlimited reward to accept another submission, got %v", err)
	}
}

func TestCreateSubmission_StorageFailure(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	store.UploadFn = func(kind storage.Kind, filename string) (string, error) {
		return "", errors.New("bucket unavailable")
	}
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	_, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	expectCode(t, err, CodeStorageFailure)

	var count int64
	db.Model(&models.Submission{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no submission row, got %d", count)
	}
}

func TestCreateSubmission_CompensatesOnInsertFailure(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	// A pending row that the pre-check cannot see yet: inserted from inside
	// the upload, between the pre-check and the transaction.
	store.UploadFn = func(kind storage.Kind, filename string) (string, error) {
		if err := db.Create(&models.Submission{UserID: user.ID, RewardID: reward.ID, FilePath: "other"}).Error; err != nil {
			return "", err
		}
		return "https://storage.googleapis.com/test-bucket/submissions/racing.pdf", nil
	}

	_, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	expectCode(t, err, CodeConflictPending)

	if len(store.DeleteCalls) != 1 || store.DeleteCalls[0] != "https://storage.googleapis.com/test-bucket/submissions/racing.pdf" {
		t.Errorf("expected uploaded evidence to be removed, got %v", store.DeleteCalls)
	}
}

func TestPendingIndexRejectsDuplicateInsert(t *testing.T) {
	db := freshDB()
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	if err := db.Create(&models.Submission{UserID: user.ID, RewardID: reward.ID, FilePath: "a"}).Error; err != nil {
		t.Fatal(err)
	}
	err := db.Create(&models.Submission{UserID: user.ID, RewardID: reward.ID, FilePath: "b"}).Error
	if err == nil || !isUniqueViolation(err) {
		t.Fatalf("expected unique violation for second pending row, got %v", err)
	}

	// Resolved rows are outside the index.
	if err := db.Create(&models.Submission{UserID: user.ID, RewardID: reward.ID, FilePath: "c", Status: models.SubmissionStatusRejected}).Error; err != nil {
		t.Errorf("expected rejected row to be accepted, got %v", err)
	}
}

func TestCreateSubmission_ConcurrentRequests(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case CodeOf(err) == CodeConflictPending:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful submission, got %d", successes)
	}
	if conflicts != n-1 {
		t.Errorf("expected %d conflicts, got %d", n-1, conflicts)
	}

	var pending int64
	db.Model(&models.Submission{}).Where("status = ?", models.SubmissionStatusPending).Count(&pending)
	if pending != 1 {
		t.Errorf("expected one pending row, got %d", pending)
	}
	store.mu.Lock()
	uploads := len(store.Uploads)
	store.mu.Unlock()
	if uploads-store.deleteCount() != 1 {
		t.Errorf("expected every losing upload to be removed: %d uploads, %d deletes", uploads, store.deleteCount())
	}
}

// P3
func TestApprove_CreditsOnce(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 20)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	ctx := context.Background()

	sub, err := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatal(err)
	}

	approved, err := svc.Approve(ctx, sub.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != models.SubmissionStatusApproved || approved.ReviewedAt == nil {
		t.Errorf("expected approved with reviewed_at, got %+v", approved)
	}
	if got := userPoints(t, db, user.ID); got != 120 {
		t.Fatalf("expected 120 points, got %d", got)
	}

	_, err = svc.Approve(ctx, sub.ID)
	expectCode(t, err, CodeAlreadyResolved)
	if got := userPoints(t, db, user.ID); got != 120 {
		t.Errorf("second approve must not credit again, got %d", got)
	}

	var history []models.PointsHistory
	db.Where("user_id = ?", user.ID).Find(&history)
	if len(history) != 1 || history[0].Points != 100 || history[0].SubmissionID != sub.ID {
		t.Errorf("expected one history row of 100 points, got %+v", history)
	}

	if len(store.DeleteCalls) != 1 || store.DeleteCalls[0] != sub.FilePath {
		t.Errorf("expected evidence deletion after approve, got %v", store.DeleteCalls)
	}
	var reloaded models.Submission
	db.First(&reloaded, "id = ?", sub.ID)
	if !reloaded.EvidencePurged {
		t.Error("expected evidence_purged to be set")
	}
	if reloaded.FilePath != sub.FilePath {
		t.Error("file path should be kept after purge")
	}
}

func TestApprove_ConcurrentCreditsOnce(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	sub, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatal(err)
	}

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(context.Background(), sub.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if CodeOf(err) != CodeAlreadyResolved {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected one successful approve, got %d", ok)
	}
	if got := userPoints(t, db, user.ID); got != 100 {
		t.Errorf("expected 100 points, got %d", got)
	}
}

func TestApprove_RollsBackOnPointsFailure(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 5)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	sub, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatal(err)
	}

	// Fail the points credit after the submission row has been updated.
	const name = "test:fail_users_update"
	if err := db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "users" {
			tx.AddError(errors.New("points write failed"))
		}
	}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Callback().Update().Remove(name) })

	_, err = svc.Approve(context.Background(), sub.ID)
	expectCode(t, err, CodeUnexpected)

	var got models.Submission
	if err := db.First(&got, "id = ?", sub.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SubmissionStatusPending || got.ReviewedAt != nil {
		t.Errorf("expected submission to stay pending, got status=%s reviewed_at=%v", got.Status, got.ReviewedAt)
	}
	if p := userPoints(t, db, user.ID); p != 5 {
		t.Errorf("expected points unchanged at 5, got %d", p)
	}
	var history int64
	db.Model(&models.PointsHistory{}).Count(&history)
	if history != 0 {
		t.Errorf("expected no points history, got %d rows", history)
	}
	if store.deleteCount() != 0 {
		t.Error("evidence must be kept when the approve rolls back")
	}
}

func TestApprove_NotFound(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	_, err := svc.Approve(context.Background(), uuid.New())
	expectCode(t, err, CodeNotFound)
}

func TestApprove_InactiveRewardStillSettles(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 30, models.RedeemTypeUnlimited)
	ctx := context.Background()

	sub, _ := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	db.Model(&reward).Update("is_active", false)

	if _, err := svc.Approve(ctx, sub.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := userPoints(t, db, user.ID); got != 30 {
		t.Errorf("expected 30 points, got %d", got)
	}
}

func TestApprove_EvidenceDeleteFailureIsNotFatal(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	ctx := context.Background()

	sub, _ := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	store.DeleteFn = func(ref string) error { return errors.New("permission denied") }

	if _, err := svc.Approve(ctx, sub.ID); err != nil {
		t.Fatalf("delete failure must not fail approve: %v", err)
	}
	if got := userPoints(t, db, user.ID); got != 100 {
		t.Errorf("expected points committed, got %d", got)
	}
	var reloaded models.Submission
	db.First(&reloaded, "id = ?", sub.ID)
	if reloaded.EvidencePurged {
		t.Error("evidence_purged should stay false so the sweep retries")
	}
}

func TestApprove_MissingObjectCountsAsPurged(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	svc := newRedemption(db, store)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	ctx := context.Background()

	sub, _ := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	store.DeleteFn = func(ref string) error { return storage.ErrObjectNotFound }

	if _, err := svc.Approve(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	var reloaded models.Submission
	db.First(&reloaded, "id = ?", sub.ID)
	if !reloaded.EvidencePurged {
		t.Error("expected evidence_purged when the object is already gone")
	}
}

func TestReject(t *testing.T) {
	db := freshDB()
	store := newMockStorage()
	rec := &recordingNotifier{}
	svc := newRedemption(db, store)
	svc.Notifier = rec
	user := seedUser(t, db, "ana", 10)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	ctx := context.Background()

	sub, _ := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())

	_, err := svc.Reject(ctx, sub.ID, "   ")
	expectCode(t, err, CodeValidation)

	rejected, err := svc.Reject(ctx, sub.ID, "  blurry photo ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != models.SubmissionStatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason != "blurry photo" {
		t.Errorf("expected trimmed reason, got %v", rejected.RejectionReason)
	}
	if got := userPoints(t, db, user.ID); got != 10 {
		t.Errorf("reject must not change points, got %d", got)
	}

	_, err = svc.Reject(ctx, sub.ID, "again")
	expectCode(t, err, CodeAlreadyResolved)
	_, err = svc.Approve(ctx, sub.ID)
	expectCode(t, err, CodeAlreadyResolved)

	kinds := rec.kinds()
	if len(kinds) != 2 || kinds[1] != notify.SubmissionRejected {
		t.Errorf("expected created then rejected notifications, got %v", kinds)
	}
}

func TestReject_NotificationLookupFailureKeepsRejection(t *testing.T) {
	db := freshDB()
	rec := &recordingNotifier{}
	svc := newRedemption(db, newMockStorage())
	svc.Notifier = rec
	core, logs := observer.New(zap.WarnLevel)
	svc.Log = zap.New(core)
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeOnce)
	sub, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatal(err)
	}

	const name = "test:fail_rewards_query"
	if err := db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "rewards" {
			tx.AddError(errors.New("rewards read failed"))
		}
	}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Callback().Query().Remove(name) })

	if _, err := svc.Reject(context.Background(), sub.ID, "blurry photo"); err != nil {
		t.Fatalf("lookup failure must not fail reject: %v", err)
	}

	var got models.Submission
	if err := db.First(&got, "id = ?", sub.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.Status != models.SubmissionStatusRejected {
		t.Errorf("expected rejected, got %s", got.Status)
	}
	if logs.FilterMessage("reject: load reward for notification").Len() != 1 {
		t.Errorf("expected the failed lookup to be logged, got %v", logs.All())
	}
	if kinds := rec.kinds(); len(kinds) != 2 || kinds[1] != notify.SubmissionRejected {
		t.Errorf("expected rejected notification still sent, got %v", kinds)
	}
}

func TestReject_NotFound(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	_, err := svc.Reject(context.Background(), uuid.New(), "reason")
	expectCode(t, err, CodeNotFound)
}

// P4
func TestReject_AllowsResubmission(t *testing.T) {
	for _, rt := range []models.RedeemType{models.RedeemTypeOnce, models.RedeemTypeUnlimited} {
		t.Run(string(rt), func(t *testing.T) {
			db := freshDB()
			svc := newRedemption(db, newMockStorage())
			user := seedUser(t, db, "ana", 0)
			reward := seedReward(t, db, "Coffee", 100, rt)
			ctx := context.Background()

			sub, _ := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
			if _, err := svc.Reject(ctx, sub.ID, "wrong receipt"); err != nil {
				t.Fatal(err)
			}
			if _, err := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence()); err != nil {
				t.Fatalf("expected resubmission after reject, got %v", err)
			}
		})
	}
}

func TestGetRewardView(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	ctx := context.Background()

	anon, err := svc.GetRewardView(ctx, reward.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if anon.UserStatus != nil || anon.Title != "Coffee" {
		t.Errorf("unexpected anonymous view %+v", anon)
	}

	view, _ := svc.GetRewardView(ctx, reward.ID, &user.ID)
	if view.UserStatus != nil || !view.CanRedeem {
		t.Errorf("expected no status and canRedeem, got %+v", view)
	}

	if _, err := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence()); err != nil {
		t.Fatal(err)
	}
	view, _ = svc.GetRewardView(ctx, reward.ID, &user.ID)
	if view.UserStatus == nil || *view.UserStatus != models.SubmissionStatusPending || view.CanRedeem {
		t.Errorf("expected pending and !canRedeem, got %+v", view)
	}

	_, err = svc.GetRewardView(ctx, uuid.New(), &user.ID)
	expectCode(t, err, CodeNotFound)
}

func TestListCatalog(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	coffee := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	time.Sleep(2 * time.Millisecond)
	tea := seedReward(t, db, "Tea", 50, models.RedeemTypeOnce)
	hidden := seedReward(t, db, "Hidden", 10, models.RedeemTypeUnlimited)
	db.Model(&hidden).Update("is_suspended", true)
	gone := seedReward(t, db, "Gone", 10, models.RedeemTypeUnlimited)
	db.Model(&gone).Update("is_active", false)
	ctx := context.Background()

	anon, err := svc.ListCatalog(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(anon) != 2 {
		t.Fatalf("expected 2 visible rewards, got %d", len(anon))
	}
	if anon[0].ID != tea.ID || anon[1].ID != coffee.ID {
		t.Errorf("expected newest first, got %s then %s", anon[0].Title, anon[1].Title)
	}

	if _, err := svc.CreateSubmission(ctx, user.ID, tea.ID, evidence()); err != nil {
		t.Fatal(err)
	}
	views, _ := svc.ListCatalog(ctx, &user.ID)
	for _, v := range views {
		switch v.ID {
		case tea.ID:
			if v.UserStatus == nil || *v.UserStatus != models.SubmissionStatusPending || v.CanRedeem {
				t.Errorf("expected tea pending, got %+v", v)
			}
		case coffee.ID:
			if v.UserStatus != nil || !v.CanRedeem {
				t.Errorf("expected coffee untouched, got %+v", v)
			}
		}
	}
}

func TestListMineAndPending(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	ana := seedUser(t, db, "ana", 0)
	ben := seedUser(t, db, "ben", 0)
	coffee := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	tea := seedReward(t, db, "Tea", 50, models.RedeemTypeUnlimited)
	ctx := context.Background()

	first, _ := svc.CreateSubmission(ctx, ana.ID, coffee.ID, evidence())
	time.Sleep(2 * time.Millisecond)
	second, _ := svc.CreateSubmission(ctx, ben.ID, coffee.ID, evidence())
	time.Sleep(2 * time.Millisecond)
	third, _ := svc.CreateSubmission(ctx, ana.ID, tea.ID, evidence())
	db.Model(&tea).Update("is_active", false)

	mine, err := svc.ListMine(ctx, ana.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 || mine[0].ID != third.ID || mine[1].ID != first.ID {
		t.Fatalf("expected ana's submissions newest first, got %+v", mine)
	}
	if mine[0].RewardTitle != "Tea" || mine[0].Points != 50 {
		t.Errorf("expected joined reward data, got %+v", mine[0])
	}

	if _, err := svc.Reject(ctx, first.ID, "no"); err != nil {
		t.Fatal(err)
	}
	pending, err := svc.ListPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].ID != second.ID || pending[1].ID != third.ID {
		t.Fatalf("expected pending oldest first, got %+v", pending)
	}
	if pending[0].Username != "ben" || pending[0].RewardTitle != "Coffee" {
		t.Errorf("expected joined user and reward, got %+v", pending[0])
	}
}

// Scenario A
func TestScenarioUnlimitedApprove(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Coffee", 100, models.RedeemTypeUnlimited)
	ctx := context.Background()

	sub, err := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	if got := userPoints(t, db, user.ID); got != 100 {
		t.Errorf("expected 100 points, got %d", got)
	}
	view, _ := svc.GetRewardView(ctx, reward.ID, &user.ID)
	if !view.CanRedeem || *view.UserStatus != models.SubmissionStatusApproved {
		t.Errorf("expected approved and canRedeem, got %+v", view)
	}
}

// Scenario B
func TestScenarioOnceRejectThenApprove(t *testing.T) {
	db := freshDB()
	svc := newRedemption(db, newMockStorage())
	user := seedUser(t, db, "ana", 0)
	reward := seedReward(t, db, "Welcome", 40, models.RedeemTypeOnce)
	ctx := context.Background()

	sub, _ := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	if _, err := svc.Reject(ctx, sub.ID, "blurry photo"); err != nil {
		t.Fatal(err)
	}
	view, _ := svc.GetRewardView(ctx, reward.ID, &user.ID)
	if *view.UserStatus != models.SubmissionStatusRejected || !view.CanRedeem {
		t.Fatalf("expected rejected and canRedeem, got %+v", view)
	}

	time.Sleep(2 * time.Millisecond)
	again, err := svc.CreateSubmission(ctx, user.ID, reward.ID, evidence())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Approve(ctx, again.ID); err != nil {
		t.Fatal(err)
	}
	view, _ = svc.GetRewardView(ctx, reward.ID, &user.ID)
	if *view.UserStatus != models.SubmissionStatusApproved || view.CanRedeem {
		t.Errorf("expected approved and !canRedeem, got %+v", view)
	}
	if got := userPoints(t, db, user.ID); got != 40 {
		t.Errorf("expected 40 points, got %d", got)
	}
}
