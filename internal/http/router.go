package http

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/leisureryde/rideshare/internal/auth"
	"github.com/leisureryde/rideshare/internal/http/handlers"
	"github.com/leisureryde/rideshare/internal/middleware"
	"github.com/leisureryde/rideshare/internal/repo"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(authHandler *handlers.AuthHandler, jwtService *auth.JWTService, userRepo repo.UserRepo, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/request-otp", authHandler.HandleRequestOTP)
		r.Post("/verify-otp", authHandler.HandleVerifyOTP)

		r.With(middleware.AuthMiddleware(jwtService, userRepo)).Post("/set-pin", authHandler.HandleSetPIN)
	})

	// Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(jwtService, userRepo))
		r.Get("/me", authHandler.HandleMe)
	})

	return r
}
