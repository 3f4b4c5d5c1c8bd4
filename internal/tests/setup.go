// Package tests holds cross-package tests that run the server and the rider
// session against each other.
package tests

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/leisureryde/rideshare/internal/auth"
	"github.com/leisureryde/rideshare/internal/config"
	"github.com/leisureryde/rideshare/internal/db"
	apihttp "github.com/leisureryde/rideshare/internal/http"
	"github.com/leisureryde/rideshare/internal/http/handlers"
	"github.com/leisureryde/rideshare/internal/repo"
)

// Server is an assembled API handler plus its closers.
type Server struct {
	Handler http.Handler
	DB      *sql.DB
	close   func()
}

// Close releases the handler's background workers.
func (s *Server) Close() { s.close() }

// NewServer wires the API the same way cmd/api does. A nil database selects
// the in-memory repositories.
func NewServer(cfg *config.Config, database *sql.DB, logger *slog.Logger) *Server {
	var (
		userRepo repo.UserRepo
		otpRepo  repo.OtpRepo
	)
	if database == nil {
		userRepo = repo.NewMemoryUserRepo()
		otpRepo = repo.NewMemoryOtpRepo()
	} else {
		userRepo = repo.NewUserRepo(database)
		otpRepo = repo.NewOtpRepo(database)
	}

	otpProvider := auth.NewOtpStub(otpRepo, cfg.OTPSalt, cfg.DevMode, auth.WithMinAttemptDelay(0))
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)
	authService := auth.NewAuthService(otpProvider, jwtService, userRepo)
	authHandler := handlers.NewAuthHandler(authService, cfg.DevMode, logger)

	return &Server{
		Handler: apihttp.NewRouter(authHandler, jwtService, userRepo, logger),
		DB:      database,
		close:   authHandler.Close,
	}
}

// OpenTestDB connects to DATABASE_URL and applies migrations.
func OpenTestDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	database, err := db.Open(ctx, databaseURL, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

// TruncateAuthTables truncates auth-related tables for a clean test state.
func TruncateAuthTables(ctx context.Context, database *sql.DB) error {
	_, err := database.ExecContext(ctx, "TRUNCATE TABLE otp_sessions, users RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate auth tables: %w", err)
	}
	return nil
}
