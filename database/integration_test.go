//go:build integration

package database_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"loyalty-backend/database"
	"loyalty-backend/models"
	"loyalty-backend/services"
	"loyalty-backend/storage"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg, err := postgres.RunContainer(ctx,
		tc.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("loyalty"),
		postgres.WithUsername("loyalty"),
		postgres.WithPassword("loyalty"),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = pg.Terminate(ctx)
	})

	uri, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	var db *gorm.DB
	for i := 0; i < 30; i++ {
		db, err = gorm.Open(gormpg.Open(uri), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		})
		if err == nil {
			if err = database.Ping(ctx, db); err == nil {
				break
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("postgres never became ready: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestPostgresPendingGuardUnderConcurrency(t *testing.T) {
	db := startPostgres(t)

	if err := database.CreateDefaultAdmin(db, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	user := models.User{Username: "racer", Name: "Racer", Email: "racer@test.com", Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	reward := models.Reward{Title: "Coffee", Description: "d", HowToRedeem: "h", Points: 100, IsActive: true}
	if err := db.Create(&reward).Error; err != nil {
		t.Fatal(err)
	}

	store, err := storage.NewLocalClient(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	svc := services.NewRedemptionService(db, store, nil, nil, zap.NewNop())

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		created   *models.Submission
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			sub, err := svc.CreateSubmission(context.Background(), user.ID, reward.ID, services.Evidence{
				Filename: "receipt.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4"),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				created = sub
				return
			}
			if services.CodeOf(err) != services.CodeConflictPending {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one pending submission, got %d", successes)
	}

	// Concurrent approvals credit once.
	var approveWG sync.WaitGroup
	for i := 0; i < 4; i++ {
		approveWG.Add(1)
		go func() {
			defer approveWG.Done()
			_, _ = svc.Approve(context.Background(), created.ID)
		}()
	}
	approveWG.Wait()

	var reloaded models.User
	db.First(&reloaded, "id = ?", user.ID)
	if reloaded.Points != 100 {
		t.Errorf("expected 100 points after concurrent approvals, got %d", reloaded.Points)
	}
}
