package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sliceops/sliceops/internal/server"
	"github.com/sliceops/sliceops/internal/server/handlers"
	"github.com/sliceops/sliceops/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "sliceops.db", "Path to SQLite database")
	jwtSecret := flag.String("jwt-secret", "", "JWT signing secret (or SLICEOPS_JWT_SECRET env)")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "Access token lifetime")
	refreshWindow := flag.Duration("refresh-window", 7*24*time.Hour, "Window in which an expired token can be refreshed")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if err := run(logger, *addr, *dbPath, *jwtSecret, *accessTTL, *refreshWindow, flag.Args()); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath, jwtSecret string, accessTTL, refreshWindow time.Duration, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if jwtSecret == "" {
		jwtSecret = os.Getenv("SLICEOPS_JWT_SECRET")
	}
	if jwtSecret == "" {
		return errors.New("JWT secret is required: pass -jwt-secret or set SLICEOPS_JWT_SECRET")
	}

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", slog.Any("error", err))
		}
	}()

	// Админские подкоманды работают с той же базой и завершаются сразу
	if len(args) > 0 {
		return runSubcommand(ctx, logger, store, args)
	}

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(jwtSecret),
		AccessTokenTTL: accessTTL,
		RefreshWindow:  refreshWindow,
	}

	authHandler := handlers.NewAuthHandler(
		logger,
		store,
		store,
		store,
		handlers.NewDevMailer(logger),
		jwtConfig,
	)
	healthHandler := handlers.NewHealthHandler(logger, store, Version)

	router := server.NewRouter(server.RouterConfig{
		Logger:        logger,
		AuthHandler:   authHandler,
		HealthHandler: healthHandler,
		JWTConfig:     jwtConfig,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go startTokenJanitor(ctx, logger, store)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", addr), slog.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

// startTokenJanitor периодически удаляет истекшие refresh записи
func startTokenJanitor(ctx context.Context, logger *slog.Logger, store *sqlite.Storage) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpiredTokens(ctx)
			if err != nil {
				logger.Warn("failed to purge expired tokens", slog.Any("error", err))
				continue
			}
			if deleted > 0 {
				logger.Info("purged expired refresh tokens", slog.Int("count", deleted))
			}
		}
	}
}

// runSubcommand обрабатывает админские команды:
//
//	grant -email user@example.com -role store_manager -store MSK-01
func runSubcommand(ctx context.Context, logger *slog.Logger, store *sqlite.Storage, args []string) error {
	switch args[0] {
	case "grant":
		return runGrant(ctx, logger, store, args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runGrant(ctx context.Context, logger *slog.Logger, store *sqlite.Storage, args []string) error {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	email := fs.String("email", "", "User email")
	role := fs.String("role", "", "Role name to assign (e.g. store_manager)")
	storeCode := fs.String("store", "", "Store code to assign (e.g. MSK-01)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		return errors.New("grant: -email is required")
	}
	if *role == "" && *storeCode == "" {
		return errors.New("grant: at least one of -role or -store is required")
	}

	user, err := store.GetUserByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("grant: %w", err)
	}

	if *role != "" {
		if err := store.AssignRole(ctx, user.ID, *role); err != nil {
			return fmt.Errorf("grant role: %w", err)
		}
		logger.Info("role assigned", slog.String("email", *email), slog.String("role", *role))
	}

	if *storeCode != "" {
		if err := store.AssignStore(ctx, user.ID, *storeCode); err != nil {
			return fmt.Errorf("grant store: %w", err)
		}
		logger.Info("store access assigned", slog.String("email", *email), slog.String("store", *storeCode))
	}

	return nil
}

func printVersion() {
	fmt.Printf("SliceOps Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
