package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/greenhill/schoolsite/config"
	"github.com/greenhill/schoolsite/controllers"
	"github.com/greenhill/schoolsite/middleware"
	"github.com/greenhill/schoolsite/utils"
)

// SetupRouter wires middleware, static serving and every API route.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()

	accessPath := cfg.GinPath
	if accessPath == "" {
		accessPath = "log/access.log"
	}
	accessLogger, err := utils.NewRollingFileLogger(accessPath, "info",
		cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnf("access log unavailable, falling back to app logger: %v", err)
		accessLogger = utils.Logger
	}
	router.Use(utils.Ginzap(accessLogger, time.RFC3339, true))
	router.Use(utils.RecoveryWithZap(accessLogger, true))

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// Serve uploads from the configured directory so the URLs the
	// upload handler hands out resolve wherever UPLOAD_DIR points.
	router.Static("/static/uploads", utils.UploadBaseDir())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	userController := controllers.NewUserController(db)
	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)
	eventController := controllers.NewEventController(db)
	messageController := controllers.NewMessageController(db)
	staffController := controllers.NewStaffController(db)
	uploadController := controllers.NewUploadController(db)
	statsController := controllers.NewStatsController(db)
	siteController := controllers.NewSiteController()

	api := router.Group("/api/v1")

	// Public, unauthenticated reads.
	api.GET("/posts", postController.List)
	api.GET("/posts/:id", postController.Detail)
	api.GET("/posts/:id/comments", commentController.ListForPost)
	api.GET("/events", eventController.List)
	api.GET("/events/:id", eventController.Detail)
	api.GET("/staff", staffController.Directory)
	api.GET("/stats", statsController.Overview)
	api.GET("/site/info", siteController.Info)
	api.GET("/site/notice", siteController.Notice)
	api.GET("/captcha", siteController.Captcha)

	// Contact form: open to everyone, linked to the account when logged
	// in, rate limited like the auth endpoints.
	api.POST("/messages", middleware.RateLimitMiddleware(), middleware.AuthOptional(), messageController.Create)

	// Account endpoints share an IP rate limit against brute force.
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware())
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/password-check", authController.CheckPassword)
		auth.POST("/verify-email", authController.VerifyEmail)
		auth.POST("/resend-verification", authController.ResendVerification)
		auth.POST("/forgot-password", authController.ForgotPassword)
		auth.POST("/reset-password", authController.ResetPassword)
		auth.GET("/google", authController.GoogleRedirect)
		auth.GET("/google/callback", authController.GoogleCallback)
	}

	// Authenticated user endpoints.
	user := api.Group("")
	user.Use(middleware.AuthRequired())
	{
		user.POST("/auth/logout", authController.Logout)
		user.GET("/me", authController.Me)
		user.PUT("/me", authController.UpdateProfile)
		user.PUT("/me/password", authController.ChangePassword)
		user.POST("/posts/:id/comments", commentController.Create)
		user.POST("/uploads", uploadController.Image)
	}

	// Administrator endpoints. The role is re-checked against the
	// database on every request.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired(db))
	{
		admin.GET("/stats", statsController.AdminOverview)

		admin.GET("/posts", postController.ListAll)
		admin.POST("/posts", postController.Create)
		admin.PUT("/posts/:id", postController.Update)
		admin.DELETE("/posts/:id", postController.Delete)

		admin.GET("/comments", commentController.ListAll)
		admin.PUT("/comments/:id/approve", commentController.Approve)
		admin.DELETE("/comments/:id", commentController.Decline)

		admin.POST("/events", eventController.Create)
		admin.PUT("/events/:id", eventController.Update)
		admin.DELETE("/events/:id", eventController.Delete)

		admin.GET("/messages", messageController.List)
		admin.PUT("/messages/:id/read", messageController.MarkRead)
		admin.DELETE("/messages/:id", messageController.Delete)

		admin.POST("/staff", staffController.CreateMember)
		admin.PUT("/staff/:id", staffController.UpdateMember)
		admin.DELETE("/staff/:id", staffController.DeleteMember)

		admin.GET("/users", userController.List)
		admin.PUT("/users/:id/role", userController.UpdateRole)
		admin.DELETE("/users/:id", userController.Delete)
	}

	return router
}
