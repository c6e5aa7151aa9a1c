package router

import (
	"github.com/gin-gonic/gin"
	"github.com/myysophia/filehub-backend/internal/api/handlers"
	"github.com/myysophia/filehub-backend/internal/api/middleware"
	"github.com/myysophia/filehub-backend/internal/config"
	"github.com/myysophia/filehub-backend/internal/policy"
	"github.com/myysophia/filehub-backend/internal/service"
	"github.com/myysophia/filehub-backend/internal/tracker"
)

// Deps 路由依赖的各个组件，由main装配后传入
type Deps struct {
	JWTConfig  *config.JWTConfig
	Upload     *service.UploadService
	Categories service.CategoryStore
	Policy     *policy.Store
	Tracker    *tracker.Tracker
}

// SetupRouter 设置路由
func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()

	// 使用中间件
	r.Use(middleware.Cors())
	r.Use(middleware.RequestID())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.SSEMiddleware())

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 需要认证的路由组
		authenticated := v1.Group("")
		authenticated.Use(middleware.AuthMiddleware(deps.JWTConfig))
		{
			// 文件管理路由
			fileHandler := handlers.NewFileHandler(deps.Upload, deps.Policy, deps.Tracker)
			files := authenticated.Group("/files")
			{
				files.POST("", fileHandler.Upload)
				files.POST("/batch", fileHandler.UploadBatch)
				files.GET("", fileHandler.List)
				files.GET("/stats", fileHandler.Stats)
				files.DELETE("/:id", fileHandler.Delete)
				files.POST("/batch-delete", fileHandler.BatchDelete)
				files.GET("/:id/url", fileHandler.GetAccessURL)
			}

			// 文件分类路由
			categoryHandler := handlers.NewCategoryHandler(deps.Categories)
			categories := authenticated.Group("/categories")
			{
				categories.GET("", categoryHandler.List)
				categories.GET("/:id", categoryHandler.Get)
			}

			// 上传进度路由
			progressHandler := handlers.NewProgressHandler(deps.Tracker)
			progress := authenticated.Group("/uploads/progress")
			{
				progress.POST("/init", progressHandler.Init)
				progress.GET("", progressHandler.ListProgress)
				progress.GET("/:id", progressHandler.GetProgress)
				progress.GET("/:id/stream", progressHandler.StreamProgress)
				progress.POST("/clear-completed", progressHandler.ClearCompleted)
				progress.DELETE("/:id", progressHandler.Dismiss)
			}
		}
	}

	return r
}
