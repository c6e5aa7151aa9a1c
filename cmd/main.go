package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myysophia/filehub-backend/internal/api/router"
	"github.com/myysophia/filehub-backend/internal/checksum"
	"github.com/myysophia/filehub-backend/internal/config"
	"github.com/myysophia/filehub-backend/internal/db"
	"github.com/myysophia/filehub-backend/internal/db/repository"
	"github.com/myysophia/filehub-backend/internal/logger"
	"github.com/myysophia/filehub-backend/internal/policy"
	"github.com/myysophia/filehub-backend/internal/service"
	"github.com/myysophia/filehub-backend/internal/storage"
	"github.com/myysophia/filehub-backend/internal/tracker"
	"github.com/myysophia/filehub-backend/internal/utils"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	env := os.Getenv("APP_ENV")
	cfg, err := config.LoadConfig("configs", env)
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	// 初始化日志系统
	if err := logger.InitLogger(&cfg.Log); err != nil {
		panic(fmt.Sprintf("初始化日志系统失败: %v", err))
	}
	defer logger.Sync()

	logger.Info("文件中心后端服务启动中...")
	logger.Info("配置加载成功", zap.String("env", cfg.App.Env))

	// 初始化参数校验器
	utils.InitValidator()

	// 初始化数据库
	if err := db.Init(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	logger.Info("数据库初始化成功")

	// 加载上传策略覆盖配置
	override, err := config.LoadPolicyOverride("configs", env)
	if err != nil {
		logger.Fatal("加载策略配置失败", zap.Error(err))
	}
	policyStore := policy.NewStoreWithOverride(override)
	if resolved := policyStore.Resolve(); !policy.Validate(resolved) {
		logger.Warn("策略配置存在无效值，部分限制可能不生效")
	}

	// 创建存储服务工厂
	storageFactory := storage.NewFactory(&cfg.Storage)

	// 创建仓储层
	fileRepo := repository.NewFileRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())

	// 创建MD5计算器
	calculator := checksum.NewCalculator(storageFactory, fileRepo, cfg.App.Workers)
	logger.Info("MD5计算器初始化成功", zap.Int("workers", cfg.App.Workers))

	// 创建上传服务和进度跟踪器
	uploadService := service.NewUploadService(storageFactory, fileRepo, categoryRepo, policyStore)
	uploadService.SetChecksumEnqueuer(calculator)
	progressTracker := tracker.NewTracker()

	// 设置路由
	r := router.SetupRouter(router.Deps{
		JWTConfig:  &cfg.JWT,
		Upload:     uploadService,
		Categories: categoryRepo,
		Policy:     policyStore,
		Tracker:    progressTracker,
	})

	// 创建HTTP服务器
	// SSE长连接依赖无限的写超时，这里不设置WriteTimeout
	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:     r,
		ReadTimeout: time.Duration(cfg.App.ReadTimeout) * time.Second,
		IdleTimeout: time.Duration(cfg.App.IdleTimeout) * time.Second,
	}

	// 优雅关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 启动HTTP服务器
	go func() {
		logger.Info("HTTP服务器启动成功", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	<-quit
	logger.Info("正在关闭服务器...")

	// 设置关闭超时时间
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 先关闭HTTP服务器，等在途请求结束后再停止MD5计算器
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("服务器关闭异常", zap.Error(err))
	}

	// 关闭MD5计算器
	calculator.Stop()
	logger.Info("MD5计算器已关闭")

	// 关闭数据库连接
	if err := db.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	logger.Info("服务器已安全关闭")
}
