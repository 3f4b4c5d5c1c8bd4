package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leisureryde/rideshare/internal/model"
)

type memoryOtpRepo struct {
	mu       sync.Mutex
	sessions []model.OtpSession
}

// NewMemoryOtpRepo builds an in-memory OtpRepo with the same rules as the
// Postgres one. Used with STORE=memory and in tests.
func NewMemoryOtpRepo() OtpRepo {
	return &memoryOtpRepo{}
}

func (r *memoryOtpRepo) CreateOrReplaceSession(_ context.Context, phone string, otpHash []byte, expiresAt time.Time, meta OtpRequestMeta) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := range r.sessions {
		if r.sessions[i].PhoneNumber == phone && r.sessions[i].ConsumedAt == nil {
			r.sessions[i].ConsumedAt = &now
		}
	}
	session := model.OtpSession{
		ID:          uuid.New(),
		PhoneNumber: phone,
		OTPHash:     append([]byte(nil), otpHash...),
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		RequestIP:   stringPtr(nullString(meta.IP)),
		UserAgent:   stringPtr(nullString(meta.UserAgent)),
	}
	r.sessions = append(r.sessions, session)
	return session.ID, nil
}

func (r *memoryOtpRepo) GetActiveSessionByPhone(_ context.Context, phone string) (model.OtpSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := len(r.sessions) - 1; i >= 0; i-- {
		s := r.sessions[i]
		if s.PhoneNumber == phone && s.ConsumedAt == nil && s.ExpiresAt.After(now) && s.AttemptCount < MaxOtpAttempts {
			return s, nil
		}
	}
	return model.OtpSession{}, fmt.Errorf("active otp session: %w", ErrNotFound)
}

func (r *memoryOtpRepo) MarkConsumed(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.find(sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	s.ConsumedAt = &now
	return nil
}

func (r *memoryOtpRepo) IncrementAttempt(_ context.Context, sessionID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.find(sessionID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	s.AttemptCount++
	s.LastAttemptAt = &now
	return s.AttemptCount, nil
}

func (r *memoryOtpRepo) CountRecentRequests(_ context.Context, phone string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.sessions {
		if s.PhoneNumber == phone && !s.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memoryOtpRepo) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	kept := r.sessions[:0]
	var purged int64
	for _, s := range r.sessions {
		dead := s.ConsumedAt != nil || !s.ExpiresAt.After(now) || s.AttemptCount >= MaxOtpAttempts
		if dead && s.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, s)
	}
	r.sessions = kept
	return purged, nil
}

// find must be called with r.mu held.
func (r *memoryOtpRepo) find(id uuid.UUID) (*model.OtpSession, error) {
	for i := range r.sessions {
		if r.sessions[i].ID == id {
			return &r.sessions[i], nil
		}
	}
	return nil, fmt.Errorf("otp session %s: %w", id, ErrNotFound)
}

type memoryUserRepo struct {
	mu      sync.RWMutex
	byPhone map[string]model.User
}

// NewMemoryUserRepo builds an in-memory UserRepo.
func NewMemoryUserRepo() UserRepo {
	return &memoryUserRepo{byPhone: make(map[string]model.User)}
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byPhone {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
}

func (r *memoryUserRepo) GetOrCreateByPhone(_ context.Context, phone string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byPhone[phone]; ok {
		return u, nil
	}
	u := model.User{ID: uuid.New(), PhoneNumber: phone, CreatedAt: time.Now()}
	r.byPhone[phone] = u
	return u, nil
}

func (r *memoryUserRepo) GetByPhone(_ context.Context, phone string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byPhone[phone]
	if !ok {
		return model.User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	return u, nil
}

func (r *memoryUserRepo) SetPinHash(_ context.Context, id uuid.UUID, pinHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for phone, u := range r.byPhone {
		if u.ID == id {
			now := time.Now()
			u.PinHash = pinHash
			u.PinSetAt = &now
			r.byPhone[phone] = u
			return nil
		}
	}
	return fmt.Errorf("user %s: %w", id, ErrNotFound)
}
