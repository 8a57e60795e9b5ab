package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courier/auth"
	"courier/infrastructure/web"
	"courier/internal"
	"courier/repositories"
	"courier/runtime"
	"courier/runtime/workers"
	"courier/services"
	"courier/storage"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/rs/cors"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Calling os.Exit directly would skip the 'defer' statements (like database cleanup),
// so errors bubble up here instead.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx := context.Background()

	// 2. Database (BadgerDB) & attachment storage
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	attachments, err := storage.NewDiskStore(config.UploadsDir, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("attachment store: %w", err)
	}

	// 3. Repositories, registry and relay core
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	registry := runtime.NewRegistry()
	relay := runtime.NewRelay(logger, registry, messageRepository, attachments)

	// 4. Supervision (presence broadcasting + process telemetry)
	sup := workers.NewSupervisor(logger)
	sup.Add(
		workers.NewPresenceWorker(logger, registry),
		workers.NewTelemetryWorker(logger, registry, config.MetricInterval),
	)

	// 5. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 6. HTTP surface (REST + WebSocket) behind CORS
	authService := services.NewAuthService(userRepository, config.AuthTokenDuration)
	server := web.NewServer(logger, authService, auth.NewTokenResolver(),
		userRepository, messageRepository, registry, relay, web.Options{
			AllowedOrigins:  config.Origins(),
			SecureCookies:   config.SecureCookies,
			UploadsDir:      attachments.Dir(),
			ProbeInterval:   config.ProbeInterval,
			DeathTimeout:    config.DeathTimeout,
			OutboxSize:      config.ConnectionBufferSize,
			DeliveryTimeout: config.DeliveryTimeout,
		})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   config.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:    address,
		Handler: corsMiddleware.Handler(server.Router()),
	}

	// Use an error channel to capture ListenAndServe issues asynchronously.
	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	// The execution blocks here until either a signal is received or the server crashes.
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	// Open WebSocket reads fail once the listener closes, which tears
	// their connections down through the usual removal path.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if sup.Cancel != nil {
		sup.Cancel()
	}
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
