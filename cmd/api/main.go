package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"intakeflow/internal/app"
	"intakeflow/internal/config"
	"intakeflow/internal/database"
	"intakeflow/internal/domain/session"
	apphttp "intakeflow/internal/http"
	"intakeflow/internal/http/handlers"
	httpmw "intakeflow/internal/http/middleware"
	"intakeflow/internal/observability"
	"intakeflow/internal/repository/memory"
	"intakeflow/internal/repository/postgres"
	redisrepo "intakeflow/internal/repository/redis"
	"intakeflow/internal/security"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger()
	defer func() { _ = logger.Sync() }()

	db := database.NewPostgres(database.PostgresConfig{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	defer db.Close()

	positionRepo := postgres.NewPositionRepository(db)
	applicationRepo := postgres.NewApplicationRepository(db)

	var sessions session.Store
	if redisClient := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword); redisClient != nil {
		defer redisClient.Close()
		sessions = redisrepo.NewSessionStore(redisClient)
		logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	} else {
		sessions = memory.NewSessionStore()
		logger.Info("using in-memory session store")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	intakeService := app.NewIntakeService(positionRepo, applicationRepo, sessions, metrics, logger, cfg.SessionTTL)
	reviewService := app.NewReviewService(applicationRepo, positionRepo, logger)
	catalogService := app.NewCatalogService(positionRepo)

	jwtProvider := security.NewJWTProvider(cfg.JWTSecret)

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		PositionHandler: handlers.NewPositionHandler(catalogService),
		SessionHandler:  handlers.NewSessionHandler(intakeService),
		ReviewHandler:   handlers.NewReviewHandler(reviewService),
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthMiddleware:  httpmw.NewAuthMiddleware(jwtProvider),
		Metrics:         metrics,
		Logger:          logger,
		RequestTimeout:  cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API started on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
