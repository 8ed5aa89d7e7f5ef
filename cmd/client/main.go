package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/boardsync/internal/client/api"
	"github.com/iudanet/boardsync/internal/client/auth"
	"github.com/iudanet/boardsync/internal/client/cli"
	"github.com/iudanet/boardsync/internal/client/iocli"
	"github.com/iudanet/boardsync/internal/client/session/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "boardsync-client.db", "Path to local database")
	local := flag.Bool("local", false, "Board commands run against an in-memory board")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn, error")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]

	// watch живет до Ctrl+C, остальные команды короткие
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(*logLevel)

	// Открываем локальное хранилище сессии
	sessionStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := sessionStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL)
	authService := auth.NewService(apiClient, sessionStorage)

	c := cli.New(apiClient, authService, sessionStorage, iocli.NewStdio(), logger, *local)
	c.Run(ctx, command, args[1:])
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("BoardSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
