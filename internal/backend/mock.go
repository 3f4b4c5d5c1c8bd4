package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leisureryde/rideshare/internal/logging"
	"github.com/leisureryde/rideshare/internal/model"
)

const (
	// MockCode is the code the mock backend issues for every phone.
	MockCode = "123456"

	// MockTokenPrefix prefixes the phone number to form a mock session token.
	MockTokenPrefix = "mock-token-"
)

// Mock is an in-memory backend. Each phone gets one OtpRecord; the code is
// rewritten on every request and HasPin flips once a PIN is set.
type Mock struct {
	mu      sync.Mutex
	records map[string]*model.OtpRecord
	latency time.Duration
	logger  *slog.Logger
}

// NewMock creates a mock backend that sleeps for latency on each call.
func NewMock(latency time.Duration, logger *slog.Logger) *Mock {
	return &Mock{
		records: make(map[string]*model.OtpRecord),
		latency: latency,
		logger:  logging.OrDiscard(logger),
	}
}

// MockToken returns the token the mock issues for phone.
func MockToken(phone string) string {
	return MockTokenPrefix + phone
}

// RequestOTP creates or refreshes the record for phone with MockCode.
func (m *Mock) RequestOTP(ctx context.Context, phone string) error {
	m.mu.Lock()
	rec, ok := m.records[phone]
	if !ok {
		rec = &model.OtpRecord{Phone: phone}
		m.records[phone] = rec
	}
	rec.Code = MockCode
	m.mu.Unlock()

	if err := m.wait(ctx, m.latency); err != nil {
		return err
	}
	m.logger.Info("mock otp issued", "phone", logging.MaskPhone(phone))
	return nil
}

// VerifyOTP checks code against the stored record.
func (m *Mock) VerifyOTP(ctx context.Context, phone, code string) (model.AuthResult, error) {
	if err := m.wait(ctx, m.latency); err != nil {
		return model.AuthResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[phone]
	if !ok || rec.Code != code {
		return model.AuthResult{}, ErrInvalidCode
	}
	return model.AuthResult{
		Token:     MockToken(phone),
		IsNewUser: !rec.HasPin,
		HasPin:    rec.HasPin,
	}, nil
}

// SetPIN marks the token's phone as having a PIN. Unknown phones are ignored.
func (m *Mock) SetPIN(ctx context.Context, token, _ string) error {
	if err := m.wait(ctx, m.latency/2); err != nil {
		return err
	}

	phone := strings.TrimPrefix(token, MockTokenPrefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[phone]; ok {
		rec.HasPin = true
	}
	return nil
}

// Record returns a copy of the stored record for phone.
func (m *Mock) Record(phone string) (model.OtpRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[phone]
	if !ok {
		return model.OtpRecord{}, false
	}
	return *rec, true
}

// wait simulates network latency. Only the wait itself is cancellable.
func (m *Mock) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
	}
}
