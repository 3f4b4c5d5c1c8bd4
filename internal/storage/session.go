package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leisureryde/rideshare/internal/logging"
)

// Persisted keys
const (
	TokenKey = "auth.token"
	PhoneKey = "auth.phone"
)

// SessionStorage persists the session token and the last used phone number.
// The token goes to the secure tier first and to the fallback tier when the
// secure tier fails; the phone lives in the fallback tier only. Callers never
// see which tier served them.
type SessionStorage struct {
	secure   Store
	fallback Store
	logger   *slog.Logger
}

// NewSessionStorage creates a SessionStorage over two tiers. secure may be nil,
// in which case every token operation goes to fallback.
func NewSessionStorage(secure, fallback Store, logger *slog.Logger) *SessionStorage {
	return &SessionStorage{
		secure:   secure,
		fallback: fallback,
		logger:   logging.OrDiscard(logger),
	}
}

// NewFileSessionStorage lays out the default on-disk tiers under dir: an
// encrypted secure.json keyed by secret and a plain session.json.
func NewFileSessionStorage(dir, secret string, logger *slog.Logger) (*SessionStorage, error) {
	secure, err := NewSecureStore(NewFileStore(filepath.Join(dir, "secure.json")), secret)
	if err != nil {
		return nil, err
	}
	return NewSessionStorage(secure, NewFileStore(filepath.Join(dir, "session.json")), logger), nil
}

// SaveToken stores the session token.
func (s *SessionStorage) SaveToken(ctx context.Context, token string) error {
	if s.secure != nil {
		err := s.secure.Set(ctx, TokenKey, token)
		if err == nil {
			return nil
		}
		s.logSecureFailure("save token", err)
	}
	if err := s.fallback.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LoadToken returns the stored token, or "" when there is none.
func (s *SessionStorage) LoadToken(ctx context.Context) (string, error) {
	if s.secure != nil {
		token, ok, err := s.secure.Get(ctx, TokenKey)
		if err != nil {
			s.logSecureFailure("load token", err)
		} else if ok && token != "" {
			return token, nil
		}
	}
	token, _, err := s.fallback.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}

// ClearToken removes the token from both tiers. A secure tier failure is
// logged and ignored; the fallback tier is always cleared.
func (s *SessionStorage) ClearToken(ctx context.Context) error {
	if s.secure != nil {
		if err := s.secure.Delete(ctx, TokenKey); err != nil {
			s.logSecureFailure("clear token", err)
		}
	}
	if err := s.fallback.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// SavePhone stores the last used phone number.
func (s *SessionStorage) SavePhone(ctx context.Context, phone string) error {
	if err := s.fallback.Set(ctx, PhoneKey, phone); err != nil {
		return fmt.Errorf("save phone: %w", err)
	}
	return nil
}

// LoadPhone returns the stored phone number, or "" when there is none.
func (s *SessionStorage) LoadPhone(ctx context.Context) (string, error) {
	phone, _, err := s.fallback.Get(ctx, PhoneKey)
	if err != nil {
		return "", fmt.Errorf("load phone: %w", err)
	}
	return phone, nil
}

// ClearPhone removes the stored phone number.
func (s *SessionStorage) ClearPhone(ctx context.Context) error {
	if err := s.fallback.Delete(ctx, PhoneKey); err != nil {
		return fmt.Errorf("clear phone: %w", err)
	}
	return nil
}

func (s *SessionStorage) logSecureFailure(op string, err error) {
	if errors.Is(err, ErrUnavailable) {
		s.logger.Debug("secure store unavailable, using fallback", "op", op)
		return
	}
	s.logger.Warn("secure store failed, using fallback", "op", op, "error", err)
}
