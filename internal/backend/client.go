// Package backend talks to the phone-verification backend. Two strategies
// implement Client: an in-memory Mock with a fixed code and a Remote HTTP
// client. New picks one from configuration at startup.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leisureryde/rideshare/internal/config"
	"github.com/leisureryde/rideshare/internal/model"
)

var (
	// ErrNetwork is returned when the backend cannot be reached or fails.
	ErrNetwork = errors.New("network error")

	// ErrInvalidCode is returned when a verification code does not match or
	// no code was requested for the phone.
	ErrInvalidCode = errors.New("invalid code")

	// ErrAuth is returned when an operation lacks a valid session token.
	ErrAuth = errors.New("not authenticated")
)

// Client is the auth backend.
type Client interface {
	RequestOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (model.AuthResult, error)
	SetPIN(ctx context.Context, token, pin string) error
}

// Ensure concrete types implement Client.
var (
	_ Client = (*Mock)(nil)
	_ Client = (*Remote)(nil)
)

// New resolves the configured strategy into a Client.
func New(cfg *config.ClientConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Backend {
	case config.BackendMock:
		return NewMock(cfg.MockLatency, logger), nil
	case config.BackendRemote:
		return NewRemote(cfg.APIURL, cfg.APITimeout, logger)
	default:
		return nil, fmt.Errorf("unknown auth backend %q", cfg.Backend)
	}
}
