package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"loyalty-backend/metrics"
	"loyalty-backend/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=loyalty port=5432 sslmode=disable"
	}

	if err := ensureDatabase(dsn); err != nil {
		return nil, fmt.Errorf("ensure database: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// ensureDatabase creates the target database when a URL-style DSN names one
// that does not exist yet. Key/value DSNs are left alone.
func ensureDatabase(dsn string) error {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" || dbName == "postgres" {
		return nil
	}

	parsed.Path = "/postgres"
	sqlDB, err := sql.Open("postgres", parsed.String())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}

func Migrate(db *gorm.DB) error {
	// Ensure PostgreSQL has gen_random_uuid() available (pgcrypto extension).
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return fmt.Errorf("failed to enable pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Reward{},
		&models.Submission{},
		&models.PointsHistory{},
		&models.Setting{},
		&models.ContactMessage{},
	); err != nil {
		return err
	}

	// At most one pending submission per (user, reward). AutoMigrate cannot
	// express a partial index.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_one_pending
		ON submissions (user_id, reward_id)
		WHERE status = 'pending';
	`).Error; err != nil {
		return fmt.Errorf("failed to create pending submission index: %w", err)
	}

	return nil
}

// CreateDefaultAdmin seeds the admin account on first start.
func CreateDefaultAdmin(db *gorm.DB, log *zap.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" {
		adminEmail = "admin@loyalty.com"
	}
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("email = ? OR username = ?", adminEmail, "admin").
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: "admin",
		Name:     "Administrator",
		Email:    adminEmail,
		Password: string(hashedPassword),
		IsAdmin:  true,
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	if log != nil {
		log.Info("default admin created", zap.String("email", adminEmail))
	}
	return nil
}

// Ping checks connectivity and records the latency.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	start := time.Now()
	err = sqlDB.PingContext(ctx)
	metrics.ObserveDBPing(time.Since(start))
	return err
}
