package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yashrajoria/shop-service/cache"
	"github.com/yashrajoria/shop-service/controllers"
	"github.com/yashrajoria/shop-service/database"
	"github.com/yashrajoria/shop-service/kafka"
	"github.com/yashrajoria/shop-service/logger"
	"github.com/yashrajoria/shop-service/metrics"
	"github.com/yashrajoria/shop-service/middleware"
	"github.com/yashrajoria/shop-service/models"
	"github.com/yashrajoria/shop-service/outbox"
	aws_pkg "github.com/yashrajoria/shop-service/pkg/aws"
	"github.com/yashrajoria/shop-service/repository"
	"github.com/yashrajoria/shop-service/routes"
	"github.com/yashrajoria/shop-service/services"
)

const serviceName = "shop-service"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	log, err := logger.Initialize(getEnv("ENV", "development"))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 1. Configuration ---

	awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx, aws_pkg.Options{
		Region:   getEnv("AWS_REGION", "us-east-1"),
		Endpoint: os.Getenv("AWS_ENDPOINT"),
	})
	if awsErr != nil {
		log.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}

	var secrets SecretSource
	if awsErr == nil {
		secrets = aws_pkg.NewSecretsClient(awsCfg)
	}
	cfg, err := LoadConfig(ctx, secrets)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.CloudWatchLogGroup != "" && awsErr == nil {
		if cw, err := aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName); err != nil {
			log.Warn("CloudWatch Logs unavailable", zap.Error(err))
		} else if log, err = logger.InitializeWithWriter(cfg.Env, cw); err != nil {
			panic("failed to initialize logger: " + err.Error())
		}
	}
	zap.ReplaceGlobals(log)

	// --- 2. Storage ---

	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	store := repository.NewGormStore(db, repository.WithLockTimeout(cfg.LockTimeout))

	var (
		redisClient  *redis.Client
		productCache services.ProductCache
		idempotency  services.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, catalog cache and idempotency disabled", zap.Error(err))
		} else {
			productCache = cache.NewCatalogCache(redisClient, cfg.CacheTTL, log)
			idempotency = cache.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
		}
	}

	// --- 3. Metrics ---

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cwMetrics := aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchMetrics && awsErr == nil)
	business := metrics.NewBusiness(registry, serviceName, cwMetrics)
	httpMetrics := metrics.NewServer(registry)

	// --- 4. Services ---

	tokens, err := services.NewTokenService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		log.Fatal("Failed to create token service", zap.Error(err))
	}
	ledger := services.NewInventoryLedger()
	authService := services.NewAuthService(store, tokens, log)
	catalogService := services.NewCatalogService(store, productCache, business, log)
	cartService := services.NewCartService(store, log)
	checkoutService := services.NewCheckoutService(store, ledger, idempotency, business, log)
	orderService := services.NewOrderService(store, ledger, business, log)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Error("Failed to seed admin user", zap.Error(err))
		}
	}

	// --- 5. Background workers ---

	var publishers []outbox.Publisher
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		publishers = append(publishers, producer)
	}
	if cfg.SNSTopicARN != "" && awsErr == nil {
		publishers = append(publishers, outbox.NewSNSPublisher(aws_pkg.NewSNSClient(awsCfg), cfg.SNSTopicARN))
	}
	if len(publishers) > 0 {
		relay := outbox.NewRelay(store, publishers, cfg.OutboxBatch, cfg.OutboxInterval, log)
		go relay.Run(ctx)
	} else {
		log.Warn("No event publishers configured, outbox events stay pending")
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst, 10*time.Minute)
	go limiter.Cleanup(ctx)

	// --- 6. HTTP Server & Middleware ---

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		middleware.RequestLogger(log),
		middleware.MetricsMiddleware(httpMetrics, cwMetrics, serviceName),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(cfg.CORSOrigins),
		middleware.RateLimitMiddleware(limiter),
		middleware.RequestTimeout(cfg.RequestTimeout),
	)

	routes.RegisterRoutes(r, routes.Controllers{
		Catalog: controllers.NewCatalogController(catalogService),
		Cart:    controllers.NewCartController(cartService),
		Order:   controllers.NewOrderController(checkoutService, orderService),
		Auth:    controllers.NewAuthController(authService),
	}, tokens, metrics.Handler(registry))

	// --- 7. Graceful Shutdown ---

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Shop Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down Shop Service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Shop Service stopped gracefully")
}
