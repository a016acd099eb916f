package routes

import (
	"context"
	"net/http"
	"time"

	"loyalty-backend/database"
	"loyalty-backend/handlers"
	"loyalty-backend/imageopt"
	"loyalty-backend/metrics"
	"loyalty-backend/middleware"
	"loyalty-backend/notify"
	"loyalty-backend/services"
	"loyalty-backend/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the shared collaborators the HTTP layer is built from.
type Deps struct {
	DB        *gorm.DB
	Storage   storage.Client
	Optimizer imageopt.Optimizer
	Notifier  notify.Notifier
	Log       *zap.Logger

	// UploadDir, when set, is served under /uploads for the local storage
	// driver.
	UploadDir string
	// AuthLimiter throttles register and login. Nil disables it.
	AuthLimiter *middleware.RateLimiter
}

func SetupRoutes(r *gin.Engine, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Optimizer == nil {
		d.Optimizer = imageopt.Nop{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}

	redemption := services.NewRedemptionService(d.DB, d.Storage, d.Optimizer, d.Notifier, d.Log)

	authHandler := &handlers.AuthHandler{DB: d.DB, Storage: d.Storage, Optimizer: d.Optimizer, Notifier: d.Notifier, Log: d.Log}
	rewardHandler := &handlers.RewardHandler{Redemption: redemption, Catalog: services.NewCatalogService(d.DB)}
	submissionHandler := &handlers.SubmissionHandler{Redemption: redemption}
	rankingHandler := &handlers.RankingHandler{Ranking: services.NewRankingService(d.DB)}
	contactHandler := &handlers.ContactHandler{DB: d.DB, Notifier: d.Notifier}
	settingsHandler := &handlers.SettingsHandler{DB: d.DB, Storage: d.Storage, Optimizer: d.Optimizer, Log: d.Log}
	userHandler := &handlers.UserHandler{DB: d.DB}

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, d.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	authLimit := func(c *gin.Context) { c.Next() }
	if d.AuthLimiter != nil {
		authLimit = d.AuthLimiter.Middleware()
	}

	// Public routes
	api := r.Group("/api")
	{
		api.POST("/auth/register", authLimit, authHandler.Register)
		api.POST("/auth/login", authLimit, authHandler.Login)
		api.POST("/auth/check-username", authHandler.CheckUsername)

		api.GET("/ranking", rankingHandler.GetRanking)
		api.GET("/settings/colors", settingsHandler.GetColors)
		api.GET("/settings/banner", settingsHandler.GetBanner)
	}

	// Catalog reads personalise the response when a token is present
	optional := api.Group("")
	optional.Use(middleware.OptionalAuthMiddleware())
	{
		optional.GET("/rewards", rewardHandler.GetRewards)
		optional.GET("/rewards/:id", rewardHandler.GetReward)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/update-photo", authHandler.UpdatePhoto)
		protected.DELETE("/auth/delete-photo", authHandler.DeletePhoto)

		protected.POST("/submissions", submissionHandler.CreateSubmission)
		protected.GET("/submissions/my", submissionHandler.GetMySubmissions)

		protected.GET("/ranking/me", rankingHandler.GetMyPosition)
		protected.POST("/contact", contactHandler.CreateMessage)
	}

	// Admin routes (require admin role)
	admin := api.Group("")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/rewards/admin/all", rewardHandler.GetAllRewardsAdmin)
		admin.POST("/rewards", rewardHandler.CreateReward)
		admin.PUT("/rewards/:id", rewardHandler.UpdateReward)
		admin.DELETE("/rewards/:id", rewardHandler.DeleteReward)
		admin.PATCH("/rewards/:id/suspend", rewardHandler.SuspendReward)
		admin.POST("/rewards/:id/duplicate", rewardHandler.DuplicateReward)

		admin.GET("/submissions/pending", submissionHandler.GetPendingSubmissions)
		admin.POST("/submissions/:id/approve", submissionHandler.ApproveSubmission)
		admin.POST("/submissions/:id/reject", submissionHandler.RejectSubmission)

		admin.GET("/contact", contactHandler.GetMessages)
		admin.POST("/settings/colors", settingsHandler.UpdateColors)
		admin.POST("/settings/banner", settingsHandler.UpdateBanner)

		admin.GET("/users", userHandler.GetUsers)
		admin.GET("/users/export", userHandler.ExportUsers)
	}
}
