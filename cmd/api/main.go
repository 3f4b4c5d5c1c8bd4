package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/leisureryde/rideshare/internal/auth"
	"github.com/leisureryde/rideshare/internal/config"
	"github.com/leisureryde/rideshare/internal/db"
	httphandler "github.com/leisureryde/rideshare/internal/http"
	"github.com/leisureryde/rideshare/internal/http/handlers"
	"github.com/leisureryde/rideshare/internal/logging"
	"github.com/leisureryde/rideshare/internal/repo"
)

func main() {
	// .env is optional; real env vars override
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var (
		userRepo repo.UserRepo
		otpRepo  repo.OtpRepo
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; users and codes are lost on restart")
		userRepo = repo.NewMemoryUserRepo()
		otpRepo = repo.NewMemoryOtpRepo()
	default:
		database, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		userRepo = repo.NewUserRepo(database)
		otpRepo = repo.NewOtpRepo(database)
	}

	otpProvider := auth.NewOtpStub(otpRepo, cfg.OTPSalt, cfg.DevMode)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go purgeOtpSessions(janitorCtx, otpProvider, logger)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := auth.NewAuthService(otpProvider, jwtService, userRepo)

	authHandler := handlers.NewAuthHandler(authService, cfg.DevMode, logger)
	defer authHandler.Close()

	router := httphandler.NewRouter(authHandler, jwtService, userRepo, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "store", cfg.Store, "dev_mode", cfg.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server exited")
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		_ = database.Close()
		return nil, err
	}
	logger.Info("migrations applied")
	return database, nil
}

// purgeOtpSessions drops dead OTP sessions older than a day, once an hour.
func purgeOtpSessions(ctx context.Context, otp *auth.OtpStub, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := otp.Purge(ctx, 24*time.Hour)
			if err != nil {
				logger.Warn("purge otp sessions failed", "error", err)
				continue
			}
			logger.Debug("purged otp sessions", "count", n)
		}
	}
}
