package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	env := getEnv("APP_ENV", "dev") // dev | staging | prod

	cfg, err := LoadConfig(getEnv("CONFIG_DIR", "configs"), env)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	shutdownTelemetry, err := setupTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger, err := newLogger(cfg.Log, cfg.Telemetry.Enabled)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize database
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer store.close()

	if cfg.Store.Seed {
		if _, err := seedLessons(ctx, store.lessons, logger); err != nil {
			logger.Error("Error initializing sample data", zap.Error(err))
		}
	}

	publisher := newOrderPublisher(cfg.Kafka, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Error closing order publisher", zap.Error(err))
		}
	}()

	// Initialize dependencies
	tracer := otel.Tracer(serviceName)
	lessonUseCase := NewLessonUseCase(store.lessons, logger, tracer)
	orderUseCase, err := NewOrderUseCase(store.lessons, store.orders, publisher, logger, tracer)
	if err != nil {
		logger.Fatal("Failed to initialize order use case", zap.Error(err))
	}
	handler := NewHandler(lessonUseCase, orderUseCase, tracer, logger, cfg.HTTP.RequestTimeout)

	if env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(handler, cfg, logger)

	srv := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 Lessons Service listening",
			zap.String("addr", cfg.App.HTTPAddr),
			zap.String("env", env),
			zap.String("store", cfg.Store.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Failed to start server", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received: closing HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", zap.Error(err))
	}
}

// newRouter registra middlewares e rotas
func newRouter(h *Handler, cfg Config, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		MetricsMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.HTTP.CORSOrigin),
	)

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/lessons", h.ListLessons)
	r.PUT("/lessons/:id", h.UpdateLesson)
	r.GET("/search", h.SearchLessons)
	r.POST("/orders", h.CreateOrder)

	if cfg.HTTP.ImagesDir != "" {
		r.Static("/images", cfg.HTTP.ImagesDir)
	}
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/images/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return r
}

// storeHandle is the process-wide store connection shared by every repository.
type storeHandle struct {
	lessons LessonRepository
	orders  OrderRepository
	close   func()
}

func openStore(ctx context.Context, cfg Config, logger *zap.Logger) (*storeHandle, error) {
	switch cfg.Store.Driver {
	case StoreMongo:
		client, err := connectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		logger.Info("✅ Connected to MongoDB", zap.String("database", cfg.Mongo.Database))

		db := client.Database(cfg.Mongo.Database)
		return &storeHandle{
			lessons: NewMongoLessonRepository(db),
			orders:  NewMongoOrderRepository(db),
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					logger.Warn("Error closing MongoDB connection", zap.Error(err))
					return
				}
				logger.Info("MongoDB connection closed")
			},
		}, nil

	case StorePostgres:
		pool, err := initPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("✅ Connected to lessons database with connection pool")

		return &storeHandle{
			lessons: NewPostgresLessonRepository(pool),
			orders:  NewPostgresOrderRepository(pool),
			close:   pool.Close,
		}, nil

	case StoreMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		return &storeHandle{
			lessons: NewMemoryLessonRepository(),
			orders:  NewMemoryOrderRepository(),
			close:   func() {},
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
