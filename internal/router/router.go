package router

import (
	"net/http"

	"review-go/internal/config"
	"review-go/internal/handler"
	"review-go/internal/middleware"
	"review-go/internal/service"
	"review-go/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services 路由依赖的服务
type Services struct {
	Auth         *service.AuthService
	Review       *service.ReviewService
	Dataset      *service.DatasetService
	FinalDataset *service.FinalDatasetService
	Generation   *service.GenerationService
	Catalog      *service.CatalogService
	Settings     *service.SettingsService
	Stats        *service.StatsService
	Queue        *service.RegenerationQueue
}

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	logger *logrus.Logger,
	svc *Services,
) *gin.Engine {
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg))

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "训练数据人工审核系统 API",
			"version": "1.0.0",
		})
	})

	authHandler := handler.NewAuthHandler(svc.Auth)
	adminHandler := handler.NewAdminHandler(svc.Auth, svc.Settings, svc.Queue)
	datasetHandler := handler.NewDatasetHandler(svc.Dataset, svc.Queue)
	reviewHandler := handler.NewReviewHandler(svc.Review)
	generationHandler := handler.NewGenerationHandler(svc.Generation)
	finalHandler := handler.NewFinalDatasetHandler(svc.FinalDataset)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog)
	statsHandler := handler.NewStatsHandler(svc.Stats, svc.Auth)

	api := r.Group("/api")
	{
		api.POST("/login", authHandler.Login)
		api.POST("/refresh", authHandler.Refresh)

		auth := api.Group("")
		auth.Use(middleware.AuthMiddleware(jwtManager))
		{
			auth.GET("/me", authHandler.GetMe)
			auth.POST("/logout", authHandler.Logout)

			// 审核
			auth.GET("/datasets", datasetHandler.List)
			auth.GET("/datasets/:id", datasetHandler.Get)
			auth.POST("/review/:id", reviewHandler.Submit)
			auth.GET("/reviews/mine", reviewHandler.MyReviews)
			auth.GET("/rejection-reasons", catalogHandler.ListReasons)
			auth.GET("/articles/search", catalogHandler.SearchArticle)
			auth.GET("/stats/dashboard", statsHandler.Dashboard)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager), middleware.AdminMiddleware())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.DELETE("/users/:user_id", adminHandler.DeleteUser)

			admin.POST("/datasets", datasetHandler.Create)
			admin.POST("/datasets/batch", datasetHandler.CreateBatch)
			admin.POST("/datasets/import", datasetHandler.Import)
			admin.PUT("/datasets/:id", datasetHandler.Update)
			admin.DELETE("/datasets/:id", datasetHandler.Delete)
			admin.GET("/datasets/:id/rejections", datasetHandler.Rejections)
			admin.POST("/datasets/:id/regenerate", datasetHandler.Regenerate)
			admin.POST("/datasets/:id/retry", datasetHandler.RetryStuck)
			admin.GET("/datasets/:id/jobs", datasetHandler.Jobs)
			admin.GET("/regeneration/stuck", adminHandler.ListStuck)

			admin.POST("/generate", generationHandler.Generate)
			admin.POST("/generate/batch", generationHandler.GenerateBatch)
			admin.POST("/generate/confirm", generationHandler.Confirm)

			admin.GET("/final-datasets", finalHandler.List)
			admin.GET("/final-datasets/export", finalHandler.Export)
			admin.DELETE("/final-datasets/:id", finalHandler.Delete)
			admin.DELETE("/final-datasets", finalHandler.DeleteAll)

			admin.POST("/rejection-reasons", catalogHandler.CreateReason)
			admin.PUT("/rejection-reasons/:reason_id", catalogHandler.UpdateReason)

			admin.GET("/articles", catalogHandler.ListArticles)
			admin.POST("/articles", catalogHandler.CreateArticles)
			admin.PUT("/articles/:id", catalogHandler.UpdateArticle)
			admin.DELETE("/articles/:id", catalogHandler.DeleteArticle)

			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
			admin.POST("/settings/test-generator", adminHandler.TestGenerator)
			admin.GET("/settings/models", adminHandler.ListModels)

			admin.GET("/stats/models", statsHandler.ModelStats)
		}
	}

	return r
}
