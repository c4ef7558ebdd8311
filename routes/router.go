package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/controllers"
	"github.com/classboard/classboard/middleware"
	"github.com/classboard/classboard/services"
	"github.com/classboard/classboard/utils"
)

// SetupRouter wires middlewares, controllers and routes.
func SetupRouter(db *gorm.DB, deleter *services.Deleter) *gin.Engine {
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
	// Access logs go to their own rolling file; app logs stay separate.
	accessLogger, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel,
		cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(accessLogger, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(accessLogger, false))
	} else {
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

	// Page routes pass through the authorization gate; the API prefix is
	// public at the gate and enforces its own auth per route.
	r.Use(middleware.Gate(db))

	r.Static("/static", "./static")
	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	for _, page := range []string{"/", "/archive", "/create", "/profile", "/login", "/register", "/reset-password"} {
		r.GET(page, servePage)
	}
	r.GET("/admin", servePage)
	r.GET("/auth/callback", servePage)

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db, deleter)
	commentController := controllers.NewCommentController(db)
	adminController := controllers.NewAdminController(db, deleter)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	// Fixed-window limiter on authentication attempts, default 5/60s.
	authLimiter := middleware.NewFixedWindowLimiter(
		cfg.AuthRateLimit, time.Duration(cfg.AuthRateWindowSec)*time.Second)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authLimiter.Middleware(), authController.Register)
	authGroup.POST("/login", authLimiter.Middleware(), authController.Login)
	authGroup.POST("/logout", authLimiter.Middleware(), middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/oauth/github/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/github/callback", authController.OAuthCallback)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public reads.
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", middleware.PostViewRecorder(db), postController.GetPost)
	api.GET("/posts/:id/comments", commentController.ListComments)
	api.GET("/posts/:id/stats", statsController.GetPostStats)
	api.GET("/stats", statsController.GetStats)
	api.GET("/tags", postController.ListTags)
	api.GET("/users/:id", authController.GetUserPublic)

	// Authenticated writes.
	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/archive", postController.SetArchived(true))
	protected.POST("/posts/:id/unarchive", postController.SetArchived(false))
	protected.POST("/posts/:id/like", postController.LikePost)
	protected.DELETE("/posts/:id/like", postController.UnlikePost)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.DELETE("/comments/:commentId", commentController.DeleteComment)
	protected.POST("/comments/:commentId/like", commentController.LikeComment)
	protected.DELETE("/comments/:commentId/like", commentController.UnlikeComment)

	// Role-restricted admin subtree.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.RequirePrivileged(db))
	admin.GET("/users", adminController.ListUsers)
	admin.PATCH("/users/:id/role", adminController.UpdateUserRole)
	admin.DELETE("/posts/:id", adminController.DeletePost)

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
		// Everything else falls back to the SPA entry; the gate already ran.
		servePage(ctx)
	})

	return r
}

func servePage(ctx *gin.Context) {
	ctx.File("./static/index.html")
}
