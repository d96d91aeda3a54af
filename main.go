package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-deposits/internal/analytics"
	analytics_api "ms-deposits/internal/analytics/api"
	"ms-deposits/internal/clock"
	"ms-deposits/internal/config"
	"ms-deposits/internal/database/migrations"
	"ms-deposits/internal/deposits"
	deposit_db "ms-deposits/internal/deposits/db"
	"ms-deposits/internal/deposits/deposit_api"
	"ms-deposits/internal/indicators"
	indicator_db "ms-deposits/internal/indicators/db"
	"ms-deposits/internal/indicators/indicator_api"
	"ms-deposits/internal/kafka"
	"ms-deposits/internal/logger"
	"ms-deposits/internal/middleware"
	"ms-deposits/internal/sse"
	"ms-deposits/internal/tickets/allocator"
	ticket_db "ms-deposits/internal/tickets/db"
	qr "ms-deposits/internal/tickets/qr_genrator"
	ticketredis "ms-deposits/internal/tickets/redis"
	tickets "ms-deposits/internal/tickets/service"
	"ms-deposits/internal/tickets/ticket_api"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *sql.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := cfg.ConnectRetry
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return sqldb
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func main() {
	log := logger.NewLogger("ms-deposits")
	defer log.Close()

	log.Info("APP", "Starting Deposit Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("CONFIG", err.Error())
	}
	log.Info("CONFIG", fmt.Sprintf("Roster: %v, timezone: %s", cfg.Roster, loc))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqldb := connectPostgres(cfg.Database, log)
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.NewRunner(sqldb, log).MigrateUp(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Failed to apply migrations: %v", err))
		}
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	emitter := sse.NewDepositEventEmitter()

	var publisher kafka.Publisher = kafka.LogPublisher{Logger: log}
	var stream deposits.Broadcaster = emitter
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.AllTopics(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()
		publisher = producer

		// Every instance reads the full deposit stream, so each gets its own group.
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, []string{
			cfg.Kafka.Topics.DepositCreated,
			cfg.Kafka.Topics.DepositUpdated,
			cfg.Kafka.Topics.DepositDeleted,
		}, "ms-deposits-stream-"+uuid.NewString(), log)
		defer consumer.Close()
		go consumer.Start(ctx, emitter.Emit)

		stream = nil
		log.Info("KAFKA", "Kafka producer and stream consumer initialized")
	} else {
		log.Warn("KAFKA", "Kafka disabled, events are logged and streamed locally")
	}

	ticketStore := &ticket_db.DB{Bun: bunDB}
	ticketService := tickets.NewTicketService(
		ticketStore,
		ticketredis.NewNumberLock(redisClient, cfg.Tickets.LockTTL, log),
		allocator.New(nil),
		qr.NewQRGenerator(cfg.Tickets.QRSecret),
		cfg.Tickets.MaxAttempts,
		log,
	)

	depositStore := &deposit_db.DB{Bun: bunDB}
	depositService := deposits.NewService(depositStore, ticketService, cfg, publisher, cfg.Kafka.Topics, log)
	depositService.Stream = stream

	indicatorStore := &indicator_db.DB{Bun: bunDB}
	indicatorService := indicators.NewService(indicatorStore, cfg, publisher, cfg.Kafka.Topics.IndicatorsRecorded, log)

	reportService := analytics.NewService(depositStore, indicatorStore, clock.NewSystem(loc))

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	deposit_api.NewHandler(depositService, ticketService, emitter, log).RegisterRoutes(r)
	log.Info("ROUTER", "Deposit routes registered under /api/deposits")
	ticket_api.NewHandler(ticketService, log).RegisterRoutes(r)
	log.Info("ROUTER", "Ticket routes registered under /api/tickets")
	indicator_api.NewHandler(indicatorService, log).RegisterRoutes(r)
	log.Info("ROUTER", "Indicator routes registered under /api/indicators")
	analytics_api.NewHandler(reportService, log).RegisterRoutes(r)
	log.Info("ROUTER", "Report routes registered under /api/reports")

	// WriteTimeout stays unset: the deposit stream is long-lived.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Deposit Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Deposit Service shutdown complete")
	}
}

