// Package testutil holds database fixtures shared by package tests.
package testutil

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens a named shared-cache in-memory database with the loyalty
// schema applied. One open connection keeps every goroutine on the same
// in-memory database.
func OpenSQLite(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := CreateSQLiteTables(db); err != nil {
		return nil, err
	}
	return db, nil
}

// CreateSQLiteTables creates all tables with SQLite-compatible DDL.
// This avoids AutoMigrate, which emits PostgreSQL-specific defaults like gen_random_uuid().
func CreateSQLiteTables(db *gorm.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS "users" (
			"id" TEXT PRIMARY KEY,
			"username" TEXT NOT NULL UNIQUE,
			"name" TEXT NOT NULL,
			"email" TEXT NOT NULL UNIQUE,
			"password" TEXT NOT NULL,
			"photo" TEXT,
			"points" INTEGER NOT NULL DEFAULT 0 CHECK ("points" >= 0),
			"is_admin" INTEGER NOT NULL DEFAULT 0,
			"created_at" DATETIME,
			"updated_at" DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS "rewards" (
			"id" TEXT PRIMARY KEY,
			"title" TEXT NOT NULL,
			"description" TEXT NOT NULL,
			"how_to_redeem" TEXT NOT NULL,
			"points" INTEGER NOT NULL CHECK ("points" > 0),
			"redeem_type" TEXT NOT NULL DEFAULT 'unlimited',
			"is_active" INTEGER NOT NULL DEFAULT 1,
			"is_suspended" INTEGER NOT NULL DEFAULT 0,
			"created_at" DATETIME,
			"updated_at" DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rewards_is_active ON "rewards"("is_active")`,

		`CREATE TABLE IF NOT EXISTS "submissions" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"reward_id" TEXT NOT NULL,
			"file_path" TEXT NOT NULL,
			"status" TEXT NOT NULL DEFAULT 'pending',
			"rejection_reason" TEXT,
			"reviewed_at" DATETIME,
			"evidence_purged" INTEGER NOT NULL DEFAULT 0,
			"created_at" DATETIME,
			"updated_at" DATETIME,
			CONSTRAINT fk_submissions_user FOREIGN KEY ("user_id") REFERENCES "users"("id"),
			CONSTRAINT fk_submissions_reward FOREIGN KEY ("reward_id") REFERENCES "rewards"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON "submissions"("user_id")`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_reward_id ON "submissions"("reward_id")`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_status ON "submissions"("status")`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_one_pending ON "submissions"("user_id","reward_id") WHERE "status" = 'pending'`,

		`CREATE TABLE IF NOT EXISTS "points_histories" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT NOT NULL,
			"submission_id" TEXT NOT NULL UNIQUE,
			"reward_id" TEXT NOT NULL,
			"points" INTEGER NOT NULL,
			"created_at" DATETIME,
			CONSTRAINT fk_points_histories_user FOREIGN KEY ("user_id") REFERENCES "users"("id")
		)`,
		`CREATE INDEX IF NOT EXISTS idx_points_histories_user_id ON "points_histories"("user_id")`,

		`CREATE TABLE IF NOT EXISTS "settings" (
			"key" TEXT PRIMARY KEY,
			"value" TEXT,
			"updated_at" DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS "contact_messages" (
			"id" TEXT PRIMARY KEY,
			"user_id" TEXT,
			"subject" TEXT NOT NULL,
			"type" TEXT NOT NULL,
			"message" TEXT NOT NULL,
			"created_at" DATETIME
		)`,
	}

	for _, sql := range tables {
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// Truncate deletes every row, children first.
func Truncate(db *gorm.DB) {
	db.Exec("DELETE FROM points_histories")
	db.Exec("DELETE FROM submissions")
	db.Exec("DELETE FROM contact_messages")
	db.Exec("DELETE FROM settings")
	db.Exec("DELETE FROM rewards")
	db.Exec("DELETE FROM users")
}
