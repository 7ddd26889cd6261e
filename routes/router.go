package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/physhub/physhub/config"
	"github.com/physhub/physhub/controllers"
	"github.com/physhub/physhub/middleware"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, assets *storage.AssetStore) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.Metrics())
	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))

	r.Static("/static", "./static")

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(db)
	forumController := controllers.NewForumController(db, assets)
	resourceController := controllers.NewResourceController(db, assets)
	adminController := controllers.NewAdminController(db, assets)
	imageController := controllers.NewImageController(assets)
	statsController := controllers.NewStatsController(db)

	// Image paths recorded by older deployments resolve through the
	// asset store fallback chain.
	r.GET("/images/*path", imageController.Serve)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/google/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/google/callback", authController.OAuthCallback)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Optional identity: reads let authors see their own unpublished
	// posts, and writes without a valid token land on the anonymous
	// sentinel account instead of being rejected.
	public := api.Group("")
	public.Use(middleware.AuthOptional())
	public.GET("/posts", forumController.ListPosts)
	public.GET("/posts/:id", forumController.GetPost)
	public.POST("/posts", middleware.RateLimitMiddleware(), forumController.CreatePost)
	public.POST("/posts/:id/replies", middleware.RateLimitMiddleware(), forumController.CreateReply)
	public.GET("/attachments/:id/download", forumController.DownloadAttachment)
	public.GET("/resources", resourceController.ListResources)
	public.GET("/resources/:id", resourceController.GetResource)
	public.POST("/resources/:id/download", resourceController.RecordDownload)
	public.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.DELETE("/posts/:id", forumController.DeletePost)
	protected.POST("/replies/:replyId/like", forumController.ToggleReplyLike)
	protected.GET("/users/me/posts", forumController.ListMyPosts)
	protected.POST("/resources/:id/like", resourceController.ToggleLike)
	protected.POST("/users/me/liked-resources", resourceController.LikedStatus)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	admin.GET("/posts/pending", adminController.ListPending)
	admin.POST("/posts/:id/approve", adminController.ApprovePost)
	admin.POST("/posts/:id/reject", adminController.RejectPost)
	admin.POST("/posts/:id/archive", adminController.ArchivePost)
	admin.POST("/posts/:id/reactivate", adminController.ReactivatePost)
	admin.GET("/posts/:id/reviews", adminController.ModerationHistory)
	admin.GET("/stats", adminController.ModerationStats)
	admin.DELETE("/replies/:replyId", forumController.DeleteReply)
	admin.POST("/resources", resourceController.CreateResource)
	admin.POST("/resources/:id/archive", resourceController.ArchiveResource)
	admin.POST("/resources/:id/reactivate", resourceController.ReactivateResource)
	admin.DELETE("/resources/:id", resourceController.DeleteResource)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		ctx.Status(http.StatusOK)
		ctx.File("./static/index.html")
	})

	return r
}
