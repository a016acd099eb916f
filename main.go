package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loyalty-backend/config"
	"loyalty-backend/database"
	"loyalty-backend/imageopt"
	"loyalty-backend/jobs"
	"loyalty-backend/logging"
	"loyalty-backend/middleware"
	"loyalty-backend/notify"
	"loyalty-backend/observability"
	"loyalty-backend/routes"
	"loyalty-backend/services"
	"loyalty-backend/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const appName = "Loyalty Rewards"

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		log.Fatal("Error loading .env file:", err)
	}

	appEnv := config.GetEnv("APP_ENV", "dev")
	lg, err := logging.Init(config.GetEnv("LOG_LEVEL", "info"), appEnv)
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer lg.Closer()
	logger := lg.Base

	// Validate critical environment variables
	if err := config.ValidateEnv(logger); err != nil {
		logger.Fatal("environment validation failed", zap.Error(err))
	}

	flush, err := observability.InitSentry(os.Getenv("SENTRY_DSN"), appEnv, config.GetEnv("APP_RELEASE", ""))
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Create default admin user if not exists
	if err := database.CreateDefaultAdmin(db, logger); err != nil {
		logger.Warn("could not create default admin", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, uploadDir, err := newStorage(ctx, logger)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}

	notifier := notify.NewAsync(newNotifier(logger), logger)
	defer notifier.Close()

	runner := jobs.New(ctx, logger)
	sweeper := services.NewEvidenceSweeper(db, store, logger,
		config.GetEnvDuration("EVIDENCE_RETENTION", services.DefaultEvidenceRetention))
	runner.Every(config.GetEnvDuration("EVIDENCE_SWEEP_INTERVAL", 24*time.Hour), "evidence_sweep", true,
		func(ctx context.Context) error {
			n, err := sweeper.Sweep(ctx)
			if n > 0 {
				logger.Info("evidence sweep", zap.Int("purged", n))
			}
			return err
		})

	if appEnv == "prod" || appEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// Limit multipart form memory to 10MB
	r.MaxMultipartMemory = 10 << 20

	// CORS configuration - filter out empty strings from AllowOrigins
	var origins []string
	for _, o := range []string{os.Getenv("FRONTEND_URL"), os.Getenv("ADMIN_URL")} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
		logger.Warn("no CORS origins configured, defaulting to http://localhost:3000")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Total-Count"},
		AllowCredentials: true,
	}))

	routes.SetupRoutes(r, routes.Deps{
		DB:          db,
		Storage:     store,
		Optimizer:   imageopt.New(logger),
		Notifier:    notifier,
		Log:         logger,
		UploadDir:   uploadDir,
		AuthLimiter: middleware.NewRateLimiter(config.GetEnvInt("AUTH_RATE_LIMIT", 10), time.Minute),
	})

	port := config.GetEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in a goroutine
	go func() {
		logger.Info("server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	runner.Wait()

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("error closing database connection", zap.Error(err))
		}
	}

	logger.Info("server exited gracefully")
}

// newStorage picks the object store from STORAGE_DRIVER. The second return
// is the directory to serve under /uploads, empty for remote storage.
func newStorage(ctx context.Context, logger *zap.Logger) (storage.Client, string, error) {
	switch strings.ToLower(config.GetEnv("STORAGE_DRIVER", "firebase")) {
	case "local":
		dir := config.GetEnv("UPLOAD_DIR", "./uploads")
		prefix := strings.TrimSuffix(config.GetEnv("PUBLIC_BASE_URL", ""), "/") + "/uploads"
		client, err := storage.NewLocalClient(dir, prefix)
		if err != nil {
			return nil, "", err
		}
		return client, dir, nil
	default:
		client, err := storage.NewFirebaseClient(ctx,
			os.Getenv("FIREBASE_STORAGE_BUCKET"), os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), logger)
		if err != nil {
			return nil, "", err
		}
		return client, "", nil
	}
}

// newNotifier fans events out to every configured channel.
func newNotifier(logger *zap.Logger) notify.Notifier {
	var channels notify.Multi

	email := notify.EmailConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     config.GetEnv("SMTP_PORT", "587"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
	if email.Configured() {
		channels = append(channels, notify.NewEmail(email, appName))
	}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		chatID := config.GetEnvInt64("TELEGRAM_ADMIN_CHAT_ID", 0)
		tg, err := notify.NewTelegram(token, chatID)
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			channels = append(channels, tg)
		}
	}

	if len(channels) == 0 {
		return notify.Nop{}
	}
	return channels
}
