package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/classifly/ad-service/internal/adapter/checkout"
	"github.com/classifly/ad-service/internal/adapter/email"
	mongoadapter "github.com/classifly/ad-service/internal/adapter/mongo"
	natsadapter "github.com/classifly/ad-service/internal/adapter/nats"
	redisadapter "github.com/classifly/ad-service/internal/adapter/redis"
	"github.com/classifly/ad-service/internal/adapter/storage/s3"
	"github.com/classifly/ad-service/internal/app/config"
	"github.com/classifly/ad-service/internal/platform/logger"
	"github.com/classifly/ad-service/internal/platform/tracer"
	httpserver "github.com/classifly/ad-service/internal/port/http"
	"github.com/classifly/ad-service/internal/service"
	"github.com/classifly/ad-service/internal/taxonomy"
	natsgo "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	cfg            *config.Config
	log            logger.Logger
	server         *httpserver.Server
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	natsConn       *natsgo.Conn
	tracerProvider *sdktrace.TracerProvider
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s", cfg.Env, cfg.HTTPServer.Port)

	var tracerProvider *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tracerProvider, err = tracer.InitTracer(ctx, cfg.Tracing.Endpoint)
		if err != nil {
			appLogger.Errorf("Failed to initialize tracer: %v", err)
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		appLogger.Info("Tracer initialized")
	}

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		appLogger.Errorf("Failed to initialize MongoDB client: %v", err)
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	appLogger.Info("MongoDB client initialized successfully")

	appLogger.Info("Initializing Redis client...")
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Errorf("Failed to initialize Redis client: %v", err)
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized successfully")

	appLogger.Info("Connecting to NATS...")
	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		appLogger.Errorf("Failed to connect to NATS: %v", err)
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	publisher, err := natsadapter.NewNATSPublisher(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	appLogger.Info("NATS publisher initialized")

	checkoutClient, err := checkout.NewClient(cfg.Checkout)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout client: %w", err)
	}

	imageStore, err := s3.NewImageStorage(ctx, cfg.ImageStore, appLogger)
	if err != nil {
		appLogger.Errorf("Failed to initialize image storage: %v", err)
		return nil, fmt.Errorf("failed to initialize image storage: %w", err)
	}
	appLogger.Info("Image storage initialized")

	// Receipt email is optional; with no SMTP host configured upgrades are
	// confirmed silently.
	var emailSender email.EmailSender
	if cfg.SMTP.Host != "" {
		emailSender, err = email.NewSMTPSender(cfg.SMTP, appLogger)
		if err != nil {
			appLogger.Errorf("Failed to initialize SMTP sender: %v", err)
			return nil, fmt.Errorf("failed to initialize SMTP sender: %w", err)
		}
		appLogger.Info("SMTP sender initialized")
	} else {
		appLogger.Warn("SMTP host not configured, premium receipts disabled")
	}

	adRepo := mongoadapter.NewAdRepository(mongoClient, cfg.MongoDB)
	sessionRepo := mongoadapter.NewPaymentSessionRepository(mongoClient, cfg.MongoDB)
	adCache := redisadapter.NewAdCacheRepository(redisClient)
	tax := taxonomy.Default()

	paymentSvc := service.NewPaymentService(
		sessionRepo, adRepo, adCache, checkoutClient, publisher, emailSender, appLogger,
		service.PaymentServiceConfig{
			PremiumPrice:    cfg.Checkout.PremiumPrice,
			Currency:        cfg.Checkout.Currency,
			PremiumDuration: cfg.Listing.PremiumDuration,
			PollAttempts:    cfg.Checkout.PollAttempts,
			PollInterval:    cfg.Checkout.PollInterval,
		},
	)
	catalogSvc := service.NewCatalogService(
		adRepo, adCache, tax, paymentSvc, publisher, appLogger,
		service.CatalogServiceConfig{
			FreeDuration:    cfg.Listing.FreeDuration,
			PremiumImageCap: cfg.Listing.PremiumImageCap,
			AdCacheTTL:      cfg.Redis.AdTTL,
		},
	)
	searchSvc := service.NewSearchService(
		adRepo, tax, appLogger,
		service.SearchServiceConfig{
			DefaultLimit: cfg.Search.DefaultLimit,
			MaxLimit:     cfg.Search.MaxLimit,
			GeoScanLimit: cfg.Search.GeoScanLimit,
		},
	)
	appLogger.Info("Services initialized")

	handler := httpserver.NewAdHandler(catalogSvc, searchSvc, paymentSvc, tax, imageStore, appLogger)
	router := httpserver.NewRouter(handler, cfg.Auth.JWTSecret, appLogger)
	server := httpserver.NewServer(cfg.HTTPServer, router, appLogger)
	appLogger.Info("HTTP server instance created")

	return &App{
		cfg:            cfg,
		log:            appLogger,
		server:         server,
		mongoClient:    mongoClient,
		redisClient:    redisClient,
		natsConn:       natsConn,
		tracerProvider: tracerProvider,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	a.log.Info("HTTP server started in a goroutine")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	} else {
		a.log.Info("HTTP server stopped successfully")
	}

	if a.natsConn != nil {
		a.natsConn.Close()
		a.log.Info("NATS connection closed")
	}

	a.log.Info("Closing database connections...")

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down tracer provider: %v", err)
		}
	}

	a.log.Info("Application shut down successfully")
}
