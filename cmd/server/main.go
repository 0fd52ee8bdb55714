package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"course-planner/config"
	"course-planner/internal/api/handler"
	"course-planner/internal/api/middleware"
	"course-planner/internal/api/router"
	"course-planner/internal/repository"
	"course-planner/internal/service"
	"course-planner/pkg/database"
	applogger "course-planner/pkg/logger"
	"course-planner/pkg/redis"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量（文件不存在则忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("PLANNER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("catalog_source", cfg.Catalog.Source),
		zap.Bool("persistence", cfg.Feature.PersistenceEnabled),
	)

	// 3. 连接数据库（可选：仅在启用选课持久化时）
	var db *gorm.DB
	if cfg.Feature.PersistenceEnabled {
		db, err = database.NewDB(&cfg.Database, cfg.Log.Level, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}

		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，目录缓存与限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 目录数据源
	var fetcher repository.PayloadFetcher
	switch cfg.Catalog.Source {
	case config.CatalogSourceHTTP:
		fetcher = repository.NewHTTPFetcher(cfg.Catalog.BaseURL, cfg.Catalog.FetchTimeout)
	default:
		fetcher = repository.NewFileFetcher(cfg.Catalog.Dir)
	}
	var payloadCache repository.PayloadCache
	var limiter middleware.RateLimiter
	if rdb != nil {
		payloadCache = rdb
		limiter = rdb
	}
	source := repository.NewCatalogSource(fetcher, payloadCache, cfg.Catalog.CacheTTL, cfg.Catalog.TitlesFile, logger.Named("catalog_source"))

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db, source)
	svc, err := service.NewService(cfg, repo, logger)
	if err != nil {
		logger.Fatal("初始化服务失败", zap.Error(err))
	}
	h := handler.NewHandler(svc)

	// 6.1 启动时加载目录；失败时接口返回 503，可通过 POST /catalog/load 重试
	loadTimeout := cfg.Catalog.FetchTimeout * 2
	if loadTimeout <= 0 {
		loadTimeout = time.Minute
	}
	loadCtx, loadCancel := context.WithTimeout(context.Background(), loadTimeout)
	if _, err := svc.Catalog.Load(loadCtx, nil); err != nil {
		logger.Warn("启动时加载课程目录失败", zap.Error(err))
	}
	loadCancel()

	// 7. 初始化路由
	engine := router.Setup(cfg, h, limiter, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if closeDB, _ := db.DB(); closeDB != nil {
			closeDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
