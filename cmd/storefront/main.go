package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/avolkov/storefront/internal/cache"
	"github.com/avolkov/storefront/internal/catalog"
	"github.com/avolkov/storefront/internal/config"
	"github.com/avolkov/storefront/internal/enhance"
	"github.com/avolkov/storefront/internal/events"
	"github.com/avolkov/storefront/internal/httpapi"
	"github.com/avolkov/storefront/internal/identity"
	"github.com/avolkov/storefront/internal/repository"
	"github.com/avolkov/storefront/internal/session"
	"github.com/avolkov/storefront/pkg/logger"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()

	// Document store
	mongoDB, err := repository.ConnectMongoDB(ctx, repository.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDBName,
		MaxPoolSize: cfg.MongoMaxPoolSize,
		MinPoolSize: cfg.MongoMinPoolSize,
	})
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoDB.Client().Disconnect(ctx) //nolint:errcheck
	log.Info("connected to MongoDB", zap.String("uri", cfg.MongoURI))

	if err := repository.EnsureCartIndexes(ctx, mongoDB); err != nil {
		log.Fatal("failed to create cart indexes", zap.Error(err))
	}
	if err := identity.EnsureUserIndexes(ctx, mongoDB); err != nil {
		log.Fatal("failed to create user indexes", zap.Error(err))
	}

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	userRepo := identity.NewMongoRepository(mongoDB)

	// Catalog cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	log.Info("redis ping succeeded")
	productCache := cache.NewRedisCache(redisClient)

	// Cart activity events
	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()

	// Services
	identitySvc := identity.NewService(userRepo, []byte(cfg.JWTSecret), cfg.TokenTTL, log)
	catalogSvc := catalog.NewService(productRepo, productCache, log)
	enhancer := enhance.NewGeminiClient(enhance.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
	})

	sessions := session.NewManager(cartRepo, producer, log)
	defer sessions.Close()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go sessions.Watch(watchCtx, identitySvc.Events())

	router := httpapi.NewRouter(
		httpapi.NewAuthHandler(identitySvc),
		httpapi.NewProductHandler(catalogSvc, enhancer),
		httpapi.NewCartHandler(sessions, catalogSvc),
		identitySvc,
		log,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           otelhttp.NewHandler(router, "storefront"),
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	go func() {
		log.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", zap.Error(err))
	}
	log.Info("storefront stopped")
}
