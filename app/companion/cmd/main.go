package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
	"github.com/solpet-labs/solpet/app/companion/internal/dao"
	"github.com/solpet-labs/solpet/app/companion/internal/gameconfig"
	"github.com/solpet-labs/solpet/app/companion/internal/handler"
	"github.com/solpet-labs/solpet/app/companion/internal/job"
	"github.com/solpet-labs/solpet/app/companion/internal/metrics"
	"github.com/solpet-labs/solpet/app/companion/internal/pipeline"
	"github.com/solpet-labs/solpet/app/companion/internal/service"
	"github.com/solpet-labs/solpet/pkg/app"
	"github.com/solpet-labs/solpet/pkg/database/redis"
	"github.com/solpet-labs/solpet/pkg/helius"
	"github.com/solpet-labs/solpet/pkg/irys"
	"github.com/solpet-labs/solpet/pkg/logger"
	"github.com/solpet-labs/solpet/pkg/prometheus"
	"github.com/solpet-labs/solpet/pkg/sentry"
	"github.com/solpet-labs/solpet/pkg/solana"
	"github.com/solpet-labs/solpet/pkg/web"
	"github.com/solpet-labs/solpet/pkg/web/middleware"
)

// CompanionConfig 伙伴服务自身的配置
type CompanionConfig struct {
	// CollectionAddress mpl-core 集合地址
	CollectionAddress string `mapstructure:"collection_address"`
	// AuthorityKey 集合更新权限钱包私钥（base58）
	AuthorityKey string `mapstructure:"authority_key"`
	// CronSecret 巡检接口的共享密钥
	CronSecret string `mapstructure:"cron_secret"`
	// GameConfigFile 数值表文件路径，留空使用内置数值
	GameConfigFile string `mapstructure:"game_config_file"`
}

// Config Companion 服务配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// Web Server 配置
	Web web.Config `mapstructure:"web"`

	// Solana RPC 配置
	Solana solana.Config `mapstructure:"solana"`

	// Irys 永久存储配置
	Irys irys.Config `mapstructure:"irys"`

	// Helius AI 解读配置
	Helius helius.Config `mapstructure:"helius"`

	// Redis 配置（分类缓存，留空地址则禁用）
	Redis redis.Config `mapstructure:"redis"`

	// Sentry 配置（留空 DSN 则禁用）
	Sentry sentry.Config `mapstructure:"sentry"`

	// Prometheus 配置
	Prometheus prometheus.Config `mapstructure:"prometheus"`

	// 定时任务配置
	Job job.Config `mapstructure:"job"`

	// 伙伴服务配置
	Companion CompanionConfig `mapstructure:"companion"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	if err := app.LoadConfig(&cfg); err != nil {
		panic(err)
	}

	// 2. 初始化 Logger
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}

	// 3. Sentry（可选）：绑定全局 Hub 后 Recovery 中间件可上报 panic
	var sentryClient *sentry.Client
	if cfg.Sentry.DSN != "" {
		sentryClient, err = sentry.New(&cfg.Sentry)
		if err != nil {
			l.Error("failed to create sentry client", "error", err)
			return
		}
		defer sentryClient.Close()
	}

	// 4. Prometheus 与指标收集器
	promClient, err := prometheus.New(&cfg.Prometheus)
	if err != nil {
		l.Error("failed to create prometheus client", "error", err)
		return
	}
	defer promClient.Close()
	companionMetrics := metrics.New("solpet", promClient.Registry())

	// 5. 链上与存储客户端
	chainClient, err := solana.NewClient(&cfg.Solana, l)
	if err != nil {
		l.Error("failed to create solana client", "error", err)
		return
	}
	irysClient, err := irys.NewClient(&cfg.Irys, l)
	if err != nil {
		l.Error("failed to create irys client", "error", err)
		return
	}
	heliusClient, err := helius.NewClient(&cfg.Helius, l)
	if err != nil {
		l.Error("failed to create helius client", "error", err)
		return
	}

	// 6. 分类缓存：配置了 Redis 用 Redis，否则退回进程内 LRU
	var classificationCache classify.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			l.Error("failed to create redis client", "error", err)
			return
		}
		defer redisClient.Close()
		classificationCache = dao.NewClassificationCache(redisClient, l)
	} else {
		memoryCache := dao.NewMemoryClassificationCache(0)
		defer memoryCache.Close()
		classificationCache = memoryCache
	}
	classificationCache = dao.WithMetrics(classificationCache, companionMetrics)

	// 7. 数值表
	configStore, err := gameconfig.NewStore(nil, l)
	if err != nil {
		l.Error("failed to create game config store", "error", err)
		return
	}
	if cfg.Companion.GameConfigFile != "" {
		if err := configStore.WatchFile(cfg.Companion.GameConfigFile); err != nil {
			l.Error("failed to load game config file",
				"path", cfg.Companion.GameConfigFile,
				"error", err,
			)
			return
		}
	}
	defer configStore.Close()

	// 8. 钱包与集合
	var authority solanago.PrivateKey
	if cfg.Companion.AuthorityKey != "" {
		authority, err = solanago.PrivateKeyFromBase58(cfg.Companion.AuthorityKey)
		if err != nil {
			l.Error("invalid authority key", "error", err)
			return
		}
	}
	var collection solanago.PublicKey
	if cfg.Companion.CollectionAddress != "" {
		collection, err = solanago.PublicKeyFromBase58(cfg.Companion.CollectionAddress)
		if err != nil {
			l.Error("invalid collection address", "error", err)
			return
		}
	}

	// 9. 业务服务
	classifier := classify.NewClassifier(
		service.NewChainReader(chainClient),
		heliusClient,
		classificationCache,
		l,
	)
	registry := pipeline.NewRegistry(l)
	defer registry.Close()

	syncService := service.NewSyncService(chainClient, classifier, companionMetrics, l)
	updateService := service.NewUpdateService(chainClient, irysClient, registry, configStore,
		authority, collection, companionMetrics, l)
	mintService := service.NewMintService(chainClient, irysClient, registry, companionMetrics, l)
	companionService := service.NewCompanionService(chainClient, irysClient, collection, l)
	inactivityService := service.NewInactivityService(companionService, chainClient, irysClient,
		authority, collection, companionMetrics, l)

	// 10. Web Server 与中间件
	webServer := web.NewServer(&cfg.Web, l)
	webServer.Router().Use(middleware.CORS())

	rateLimiter := middleware.NewRateLimiter(l, &middleware.RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		PerIP:             true,
		MaxLimiters:       10000,
		LimiterTTL:        10 * time.Minute,
		CleanupInterval:   time.Minute,
	})
	defer rateLimiter.Close()
	webServer.Router().Use(middleware.RateLimit(rateLimiter))

	// 11. 注册 Handler
	handler.NewSyncHandler(syncService, configStore, l).Register(webServer.Router())
	handler.NewUpdateHandler(updateService, l).Register(webServer.Router())
	handler.NewMintHandler(mintService, l).Register(webServer.Router())
	handler.NewCompanionHandler(companionService, l).Register(webServer.Router())
	handler.NewAdminHandler(inactivityService, cfg.Companion.CronSecret, l).Register(webServer.Router())

	// 12. 健康检查
	webServer.Router().GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 13. 定时巡检
	scheduler, err := job.NewScheduler(&cfg.Job, inactivityService, l)
	if err != nil {
		l.Error("failed to create scheduler", "error", err)
		return
	}
	if err := scheduler.Start(); err != nil {
		l.Error("failed to start scheduler", "error", err)
		return
	}
	defer scheduler.Stop()

	// 14. 运行服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		l.Info("received shutdown signal")
		cancel()
	}()

	l.Info("starting companion server", "port", cfg.Web.Port)
	if err := webServer.Run(ctx); err != nil {
		l.Error("server exited with error", "error", err)
		if sentryClient != nil {
			sentryClient.CaptureException(err)
		}
	}

	l.Info("companion server stopped")
}
