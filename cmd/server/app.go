package main

import (
	"context"
	"fmt"
	"os"

	"review-go/internal/config"
	"review-go/internal/lock"
	"review-go/internal/models"
	"review-go/internal/repository"
	"review-go/internal/router"
	"review-go/internal/service"
	"review-go/internal/settings"
	"review-go/internal/utils"
	"review-go/pkg/generator"
	"review-go/pkg/redislimiter"
	"review-go/pkg/redislock"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app 进程内共享的组件
type app struct {
	cfg         *config.Config
	logger      *logrus.Logger
	db          *gorm.DB
	redisClient *redis.Client
	jwtManager  *utils.JWTManager
	services    *router.Services
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("无效的日志级别 %q，使用 info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// openDB 打开数据库并迁移表结构
func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := models.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}

// connectRedis 未启用Redis时返回nil，使用进程内锁和信号量
func connectRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		logger.Info("未启用Redis，使用进程内锁")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddress(),
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}
	logger.WithField("addr", cfg.Redis.GetAddress()).Info("Redis已连接")
	return client, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	utils.InitValidator()

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var itemLock lock.Distributed
	var limiter generator.Limiter = generator.NewConcurrencyLimiter(cfg.Generator.MaxConcurrent)
	if redisClient != nil {
		itemLock = redislock.NewLocker(redisClient, "review:lock:", cfg.Redis.GetLockTTL())
		limiter = redislimiter.NewRedisLimiter(redisClient, cfg.Generator.MaxConcurrent, "review:generator:", cfg.Generator.GetTimeout(), logger)
	}

	store, err := settings.NewStore(repository.NewSettingRepository(db), cfg, logger)
	if err != nil {
		return nil, err
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.JWT.GetExpireDuration())
	jwtManager.SetRefreshExpire(cfg.JWT.GetRefreshDuration())
	locker := lock.NewItemLocker(itemLock, logger)
	genClient := generator.NewClient(generator.Options{
		APIKey:      cfg.Generator.APIKey,
		Timeout:     cfg.Generator.GetTimeout(),
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	}, limiter, logger)

	queue := service.NewRegenerationQueue(db, store, genClient, locker, service.QueueOptions{
		Workers:       cfg.Worker.Count,
		QueueSize:     cfg.Worker.QueueSize,
		FallbackModel: cfg.Generator.FallbackModel,
		Timeout:       cfg.Generator.GetTimeout(),
		SweepInterval: cfg.Worker.GetSweepInterval(),
	}, logger)
	datasets := service.NewDatasetService(db, locker, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		jwtManager:  jwtManager,
		services: &router.Services{
			Auth:         service.NewAuthService(db, jwtManager, cfg, logger),
			Review:       service.NewReviewService(db, store, locker, queue, logger),
			Dataset:      datasets,
			FinalDataset: service.NewFinalDatasetService(db),
			Generation:   service.NewGenerationService(db, datasets, store, genClient, queue, logger),
			Catalog:      service.NewCatalogService(db),
			Settings:     service.NewSettingsService(store, genClient, logger),
			Stats:        service.NewStatsService(db),
			Queue:        queue,
		},
	}, nil
}

// seed 写入初始账号和默认拒绝理由，已存在的记录不变
func (a *app) seed(ctx context.Context) error {
	if err := a.services.Auth.InitAccounts(ctx); err != nil {
		return err
	}
	if err := a.services.Catalog.SeedReasons(ctx); err != nil {
		return fmt.Errorf("写入默认拒绝理由失败: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.redisClient != nil {
		a.redisClient.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
