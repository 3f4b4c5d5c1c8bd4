// Command rider is a terminal client for the rider sign-in flow.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/leisureryde/rideshare/internal/backend"
	"github.com/leisureryde/rideshare/internal/config"
	"github.com/leisureryde/rideshare/internal/logging"
	"github.com/leisureryde/rideshare/internal/session"
	"github.com/leisureryde/rideshare/internal/storage"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openSessionStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open session storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	client, err := backend.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create auth backend", "error", err)
		os.Exit(1)
	}
	logger.Debug("auth backend ready", "backend", cfg.Backend)

	controller := session.NewController(client, store, logger)
	if err := newApp(controller, os.Stdin, os.Stdout).run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("rider exited", "error", err)
		os.Exit(1)
	}
}

// openSessionStorage keeps the token in an encrypted file. The fallback tier
// is Redis when REDIS_URL is set and a plain file otherwise.
func openSessionStorage(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger) (*storage.SessionStorage, func(), error) {
	if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create session dir: %w", err)
	}
	if cfg.RedisURL == "" {
		s, err := storage.NewFileSessionStorage(cfg.SessionDir, cfg.SessionSecret, logger)
		return s, func() {}, err
	}

	rdb, err := storage.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	secure, err := storage.NewSecureStore(storage.NewFileStore(filepath.Join(cfg.SessionDir, "secure.json")), cfg.SessionSecret)
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	return storage.NewSessionStorage(secure, storage.NewRedisStore(rdb), logger), closeFn, nil
}
