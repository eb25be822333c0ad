package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sliceops/sliceops/internal/client/api"
	"github.com/sliceops/sliceops/internal/client/auth"
	"github.com/sliceops/sliceops/internal/client/cli"
	"github.com/sliceops/sliceops/internal/client/iocli"
	"github.com/sliceops/sliceops/internal/client/storage/boltdb"
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
	dbPath := flag.String("db", "sliceops-console.db", "Path to local session database")
	password := flag.String("password", "", "Password for login (not recommended, use env var or file)")
	passwordFile := flag.String("password-file", "", "Path to file containing the password")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ctx := context.Background()

	// Открываем локальное хранилище сессии
	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Собираем слои: хранилища -> HTTP клиент -> сервис сессии
	tokens := auth.NewTokenStore(boltStorage, logger)
	cache := auth.NewSessionCache(boltStorage, logger)
	apiClient := api.NewClient(*serverURL, tokens, logger)
	authService := auth.NewService(apiClient, tokens, cache, logger)
	apiClient.SetSessionExpiredHook(authService.HandleSessionExpired)

	console := cli.New(stdio, authService, tokens, cache, cli.PasswordSource{
		FromFile: *passwordFile,
		FromArgs: *password,
	})

	args := flag.Args()
	if len(args) == 0 {
		console.PrintUsage()
		os.Exit(1)
	}

	if err := console.Run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("SliceOps Console\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
