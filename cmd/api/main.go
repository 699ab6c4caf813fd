package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/domain"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/gateway"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/handler"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/metrics"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/repository"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/service"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/internal/worker"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/config"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/database"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/kafka"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/logger"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/middleware"
	pkgredis "github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/redis"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/retry"
	"github.com/JacksonR64/LocalLoop-V0.3-sub000/pkg/telemetry"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
		Level:       cfg.Log.Level,
	}
	if _, err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting ticket order engine...")

	ctx := context.Background()

	// Initialize tracing
	_, err = telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry init failed, continuing without tracing: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed, continuing without metrics: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
		ServiceName:     cfg.App.Name,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis connection
	redisCfg := &pkgredis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info(fmt.Sprintf("Redis connected (pool: %d, minIdle: %d)", redisCfg.PoolSize, redisCfg.MinIdleConns))

	// Initialize Kafka event publisher
	var eventPublisher service.EventPublisher
	kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		ServiceName: cfg.App.Name,
		ClientID:    cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
		eventPublisher = service.NewNoOpEventPublisher()
	} else {
		eventPublisher = kafkaPublisher
		defer kafkaPublisher.Close()
		appLog.Info("Kafka event publisher connected")
	}

	// Initialize payment gateway
	paymentGateway, err := gateway.New(cfg.Stripe.Gateway, &gateway.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Environment:   cfg.App.Environment,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Payment gateway init failed: %v", err))
	}
	appLog.Info(fmt.Sprintf("Payment gateway ready: %s", paymentGateway.Name()))

	// Initialize repositories
	orderRepo := repository.NewPostgresOrderRepository(db)
	ticketRepo := repository.NewPostgresTicketRepository(db)
	ticketTypeRepo := repository.NewPostgresTicketTypeRepository(db)
	eventRepo := repository.NewPostgresEventRepository(db)
	refundRepo := repository.NewPostgresRefundRepository(db)
	inventoryRepo := repository.NewRedisInventoryRepository(redisClient)

	// Pre-load Lua scripts into Redis
	if err := inventoryRepo.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load Lua scripts: %v", err))
	} else {
		appLog.Info("Lua scripts pre-loaded into Redis")
	}

	fees := domain.FeeSchedule{
		PercentBps: cfg.Engine.FeePercentBps,
		FixedFee:   cfg.Engine.FeeFixed,
	}

	// Initialize services
	syncer := service.NewInventorySyncer(ticketTypeRepo, inventoryRepo)
	checkoutService := service.NewCheckoutService(
		orderRepo, ticketRepo, ticketTypeRepo, eventRepo, inventoryRepo,
		paymentGateway, eventPublisher, syncer,
		&service.CheckoutServiceConfig{
			Fees:            fees,
			DefaultCurrency: cfg.Engine.Currency,
			HoldTTL:         cfg.Engine.ReservationHoldTTL,
			GatewayRetries:  cfg.Engine.GatewayMaxRetries,
		},
	)
	paymentService := service.NewPaymentService(orderRepo, ticketTypeRepo, inventoryRepo, eventPublisher)
	refundService := service.NewRefundService(
		orderRepo, eventRepo, refundRepo, paymentGateway, eventPublisher,
		&service.RefundServiceConfig{
			Fees:           fees,
			RefundCutoff:   cfg.Engine.RefundCutoff,
			GatewayRetries: cfg.Engine.GatewayMaxRetries,
		},
	)
	catalogService := service.NewCatalogService(eventRepo, ticketTypeRepo, ticketRepo)

	// Webhook DLQ: settlement events that keep failing are parked on a
	// dead letter topic instead of being dropped
	var dlqPublisher retry.DLQPublisher = retry.NewNoOpDLQPublisher()
	if kafkaProducer := eventPublisherProducer(eventPublisher); kafkaProducer != nil {
		dlqPublisher = retry.NewKafkaDLQPublisher(
			&retry.KafkaProducerAdapter{Producer: kafkaProducer},
			&retry.DLQConfig{Source: cfg.App.Name},
		)
	}
	dlqHandler := retry.NewDLQHandler(dlqPublisher, &retry.DLQHandlerConfig{
		RetryConfig: retry.DefaultConfig(),
		Source:      cfg.App.Name,
	})

	// Start expiry worker
	expiryWorker := worker.NewExpiryWorker(orderRepo, inventoryRepo, eventPublisher, &worker.ExpiryWorkerConfig{
		ScanInterval: cfg.Engine.ExpirySweepInterval,
		BatchSize:    cfg.Engine.ExpirySweepBatchSize,
	})
	if err := expiryWorker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start expiry worker: %v", err))
	}
	defer expiryWorker.Stop()

	// Initialize handlers
	orderHandler := handler.NewOrderHandler(checkoutService)
	refundHandler := handler.NewRefundHandler(refundService)
	eventHandler := handler.NewEventHandler(catalogService)
	webhookHandler := handler.NewWebhookHandler(paymentService, cfg.Stripe.WebhookSecret, redisClient, dlqHandler)
	adminHandler := handler.NewAdminHandler(db, redisClient, syncer, expiryWorker)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		gin.DisableConsoleColor()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.App.Name))

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Gateway webhooks live outside the versioned API
	router.POST("/webhooks/stripe", webhookHandler.HandleStripeWebhook)

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": cfg.App.Name,
			})
		})

		// Idempotency for write operations
		idempotencyConfig := middleware.DefaultIdempotencyConfig(redisClient.Client())
		idempotencyConfig.SkipPaths = []string{"/health", "/ready", "/webhooks/stripe"}
		idempotent := middleware.IdempotencyMiddleware(idempotencyConfig)

		v1.POST("/checkout", idempotent, orderHandler.Checkout)

		orders := v1.Group("/orders")
		{
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/refund-quote", refundHandler.QuoteRefund)
			orders.GET("/:id/refunds", refundHandler.ListRefunds)
			orders.POST("/:id/refund", idempotent, refundHandler.Refund)
		}

		events := v1.Group("/events")
		{
			events.GET("/:id", eventHandler.GetEvent)
			events.GET("/:id/ticket-types", eventHandler.ListTicketTypes)
		}

		v1.GET("/tickets/:code", eventHandler.GetTicket)

		admin := v1.Group("/admin")
		{
			admin.POST("/events/:id/sync-inventory", adminHandler.SyncInventory)
			admin.GET("/inventory-status", adminHandler.GetInventoryStatus)
			admin.GET("/expiry-worker", adminHandler.GetExpiryWorkerStats)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("Ticket order engine listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}

// eventPublisherProducer unwraps the Kafka producer behind the event
// publisher, or nil when events are running on the no-op publisher
func eventPublisherProducer(p service.EventPublisher) *kafka.Producer {
	if kp, ok := p.(*service.KafkaEventPublisher); ok {
		return kp.Producer()
	}
	return nil
}
