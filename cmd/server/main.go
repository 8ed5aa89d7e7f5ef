package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/boardsync/internal/server/handlers"
	"github.com/iudanet/boardsync/internal/server/hub"
	"github.com/iudanet/boardsync/internal/server/middleware"
	"github.com/iudanet/boardsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "boardsync.db", "Path to SQLite database")
	jwtSecret := flag.String("jwt-secret", "", "JWT signing secret (required)")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "Access token TTL")
	refreshTTL := flag.Duration("refresh-ttl", 720*time.Hour, "Refresh token TTL")
	rateLimit := flag.Int("rate-limit", 100, "Requests per minute per client IP")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := newLogger(*logLevel)

	if *jwtSecret == "" {
		logger.Error("jwt secret is required, pass -jwt-secret")
		os.Exit(1)
	}

	if err := run(logger, *addr, *dbPath, *jwtSecret, *accessTTL, *refreshTTL, *rateLimit); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath, jwtSecret string, accessTTL, refreshTTL time.Duration, rateLimit int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Открываем SQLite storage (миграции запускаются автоматически)
	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	jwtConfig := handlers.JWTConfig{
		Secret:          []byte(jwtSecret),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
	}

	boardHub := hub.New(logger)

	authHandler := handlers.NewAuthHandler(logger, store, store, jwtConfig)
	boardHandler := handlers.NewBoardHandler(logger, store, boardHub)
	healthHandler := handlers.NewHealthHandler(logger, store, Version)

	authMiddleware := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("GET /api/v1/auth/salt/{username}", authHandler.GetSalt)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/v1/board/ws", authMiddleware(http.HandlerFunc(boardHandler.ServeWS)))

	// Маршруты авторизации лимитируются жестче общего потока
	authLimits := []middleware.PathLimit{
		{Path: "/api/v1/auth/login", Rate: 10, Window: time.Minute},
		{Path: "/api/v1/auth/register", Rate: 5, Window: time.Minute},
	}

	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(
			middleware.RateLimitMiddleware(rateLimit, time.Minute, authLimits, logger)(mux)))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", Version)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("BoardSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
