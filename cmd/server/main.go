// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shiftwork-backend/internal/api"
	"shiftwork-backend/internal/applications"
	"shiftwork-backend/internal/cache"
	"shiftwork-backend/internal/common/config"
	"shiftwork-backend/internal/common/database"
	apperrors "shiftwork-backend/internal/common/errors"
	"shiftwork-backend/internal/common/logger"
	"shiftwork-backend/internal/notify"
	"shiftwork-backend/internal/payments"
	"shiftwork-backend/internal/shifts"
	"shiftwork-backend/internal/webhooks"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting shiftwork backend...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if _, err := pg.HealthCheck(ctx); err != nil {
		zapLog.Fatal("postgres health check failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	// --- Wire services ---
	appCache := cache.New(rds.Client, log)
	sessions := cache.NewSessionStore(appCache, time.Duration(cfg.Cache.SessionTTL)*time.Second)

	notifier, err := notify.New(cfg.Notifications, pg, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	shiftSvc := shifts.NewService(pg, shifts.NewRepository(pg), appCache, notifier, log,
		time.Duration(cfg.Cache.ShiftTTL)*time.Second,
		time.Duration(cfg.Cache.ShiftListTTL)*time.Second)

	appSvc := applications.NewService(pg, applications.NewRepository(pg),
		shiftSvc, shiftSvc, appCache, notifier, log)

	catalog := payments.NewCatalog(cfg.Payments)
	records := payments.NewRecords(pg)
	gateway := payments.NewGateway(cfg.Payments, catalog, records, log)

	processor := webhooks.NewProcessor(pg, appCache, records, cfg.Payments.WebhookSecret, log)

	errs := apperrors.NewHTTPHandler(log)
	handlers := api.NewHandlers(shiftSvc, appSvc, gateway, errs, pg, rds)
	router := api.NewRouter(handlers, webhooks.NewHandler(processor, errs), errs, sessions)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	// pprof on its own port, never exposed through the main router
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			zapLog.Warn("pprof server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server forced to shutdown", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
