// @title        CourseHub API
// @version      1.0
// @description  Course catalog backed by the billing service for accounts and payments.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/studyon/coursehub/internal/api"
	"github.com/studyon/coursehub/internal/api/handler"
	"github.com/studyon/coursehub/internal/api/middleware"
	"github.com/studyon/coursehub/internal/core/service"
	"github.com/studyon/coursehub/internal/infrastructure/billing"
	"github.com/studyon/coursehub/internal/infrastructure/db/mongo"
	"github.com/studyon/coursehub/internal/infrastructure/db/redis"
	"github.com/studyon/coursehub/internal/pkg/config"
	"github.com/studyon/coursehub/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coursehub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "coursehub",
	})

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redis.Connect(ctx, redis.Config{
		URL:        cfg.Redis.URL,
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		ClientName: "coursehub",
	})
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()

	courses := mongo.NewCourseRepository(db)
	lessons := mongo.NewLessonRepository(db)
	if err := mongo.EnsureIndexes(ctx, courses, lessons); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	billingClient := billing.NewClient(
		billing.NewHTTPTransport(cfg.Billing.URL, cfg.Billing.Timeout),
		billing.NewDecoder(),
		log,
	)

	e := api.NewRouter(api.Deps{
		Auth:     service.NewAuthService(billingClient, courses, log),
		Courses:  service.NewCourseService(courses, lessons, billingClient, log),
		Lessons:  service.NewLessonService(lessons, courses, billingClient, log),
		Sessions: redis.NewSessionStore(rdb),
		Limiter:  redis.NewRateLimiter(rdb, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, log),
		Health: map[string]handler.Pinger{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
			"redis":   redis.Pinger(rdb, 0),
		},
		Session: middleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure || cfg.IsProduction(),
		},
		Log: log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("billing", cfg.Billing.URL).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
