package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"planetarium-service/internal/auth"
	"planetarium-service/internal/booking"
	booking_api "planetarium-service/internal/booking/api"
	booking_db "planetarium-service/internal/booking/db"
	"planetarium-service/internal/booking/qr"
	"planetarium-service/internal/catalog"
	catalog_api "planetarium-service/internal/catalog/api"
	catalog_db "planetarium-service/internal/catalog/db"
	"planetarium-service/internal/config"
	"planetarium-service/internal/kafka"
	"planetarium-service/internal/logger"
	"planetarium-service/internal/users"
	users_api "planetarium-service/internal/users/api"
	users_db "planetarium-service/internal/users/db"
)

// verifyConnections waits for PostgreSQL with a bounded retry loop and
// pings Redis. The service refuses to start without both.
func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error

	for i := 0; i < cfg.Database.ConnectRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, cfg.Database.ConnectRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(cfg.Database.RetryInterval)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < cfg.Database.ConnectRetries-1 {
			time.Sleep(cfg.Database.RetryInterval)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", cfg.Database.ConnectRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting planetarium service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	runMigrations(bunDB, log)

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		topics := []string{
			cfg.Kafka.Topics.ReservationCreated,
			cfg.Kafka.Topics.ReservationCancelled,
			cfg.Kafka.Topics.TicketCancelled,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		log.Warn("KAFKA", "Kafka disabled, booking events will not be published")
	}

	catalogService := catalog.NewService(&catalog_db.DB{Bun: bunDB})

	var publisher booking.EventPublisher
	if producer != nil {
		publisher = producer
	}
	bookingService := booking.NewService(
		&booking_db.DB{Bun: bunDB},
		publisher,
		qr.NewGenerator(cfg.Auth.QRSecret),
		booking.Topics{
			ReservationCreated:   cfg.Kafka.Topics.ReservationCreated,
			ReservationCancelled: cfg.Kafka.Topics.ReservationCancelled,
			TicketCancelled:      cfg.Kafka.Topics.TicketCancelled,
		},
	)
	userService := users.NewService(&users_db.DB{Bun: bunDB}, cfg.Auth.Secret, cfg.Auth.TokenTTL)

	catalogHandler := catalog_api.NewHandler(catalogService, log)
	bookingHandler := booking_api.NewHandler(bookingService, log)
	userHandler := users_api.NewHandler(userService, log)

	tokenCache := auth.NewTokenCache(redisClient, cfg.Auth.CacheTTL)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/api/user/register", userHandler.Register)
	r.Post("/api/user/token", userHandler.Token)
	log.Info("ROUTER", "Public user routes registered under /api/user")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth.Secret, tokenCache))
		log.Info("AUTH", "Bearer token middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			r.Get("/user/me", userHandler.Me)
			r.Put("/user/me", userHandler.UpdateMe)

			r.Route("/planetarium", func(r chi.Router) {
				catalogHandler.RegisterRoutes(r)
				bookingHandler.RegisterRoutes(r)
			})
			log.Info("ROUTER", "Planetarium routes registered under /api/planetarium")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Planetarium service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Planetarium service shutdown complete")
	}
}
