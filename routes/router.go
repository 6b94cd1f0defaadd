package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/sbb/config"
	"github.com/cppla/sbb/controllers"
	"github.com/cppla/sbb/middleware"
	"github.com/cppla/sbb/services"
	"github.com/cppla/sbb/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, reg *prometheus.Registry) *gin.Engine {
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
	r.Use(middleware.RequestID())
	gl := utils.Logger.Named("gin")
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Accept", "X-Requested-With", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		// credentials cannot be combined with a literal "*", echo the caller instead
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if reg != nil {
		r.Use(middleware.NewHTTPMetrics(reg).Handler())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}

	zl := utils.Logger
	userService := services.NewUserService(db, zl)
	questionService := services.NewQuestionService(db, zl)
	answerService := services.NewAnswerService(db, zl)

	userController := controllers.NewUserController(userService)
	questionController := controllers.NewQuestionController(questionService, answerService, userService, cfg.CacheTTL)
	answerController := controllers.NewAnswerController(questionService, answerService, userService)
	statsController := controllers.NewStatsController(db)

	r.GET("/health", statsController.Health)

	api := r.Group("/api")
	api.GET("/stats", statsController.GetStats)

	userGroup := api.Group("/user")
	userGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	userGroup.POST("/signup", userController.Signup)
	userGroup.POST("/login", userController.Login)
	userGroup.POST("/logout", middleware.AuthRequired(), userController.Logout)
	userGroup.GET("/me", middleware.AuthRequired(), userController.Me)

	questionGroup := api.Group("/question")
	questionGroup.GET("", questionController.List)
	questionGroup.GET("/list", questionController.List)
	questionGroup.GET("/detail/:id", questionController.Detail)
	questionGroup.POST("", middleware.AuthRequired(), questionController.Create)
	questionGroup.POST("/create", middleware.AuthRequired(), questionController.Create)
	questionGroup.PUT("/modify/:id", middleware.AuthRequired(), questionController.Modify)
	questionGroup.DELETE("/delete/:id", middleware.AuthRequired(), questionController.Delete)
	questionGroup.POST("/vote/:id", middleware.AuthRequired(), questionController.Vote)

	answerGroup := api.Group("/answer")
	answerGroup.GET("/detail/:id", answerController.Detail)
	answerGroup.POST("/create/:questionId", middleware.AuthRequired(), answerController.Create)
	answerGroup.PUT("/modify/:id", middleware.AuthRequired(), answerController.Modify)
	answerGroup.DELETE("/delete/:id", middleware.AuthRequired(), answerController.Delete)
	answerGroup.POST("/vote/:id", middleware.AuthRequired(), answerController.Vote)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
