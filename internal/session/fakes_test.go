package session

import (
	"context"
	"sync"
	"time"

	"github.com/leisureryde/rideshare/internal/model"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeBackend returns canned errors and can hold RequestOTP calls until released.
type fakeBackend struct {
	requestErr error
	verifyErr  error
	setPinErr  error

	block   chan struct{}
	entered chan struct{}

	mu          sync.Mutex
	done        int
	setPinCalls int
	lastToken   string
}

func (f *fakeBackend) RequestOTP(ctx context.Context, _ string) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.done++
	f.mu.Unlock()
	return f.requestErr
}

func (f *fakeBackend) VerifyOTP(_ context.Context, phone, _ string) (model.AuthResult, error) {
	if f.verifyErr != nil {
		return model.AuthResult{}, f.verifyErr
	}
	return model.AuthResult{Token: "fake-" + phone, IsNewUser: true}, nil
}

func (f *fakeBackend) SetPIN(_ context.Context, token, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setPinCalls++
	f.lastToken = token
	return f.setPinErr
}

func (f *fakeBackend) finished() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// fakeStorage is an in-memory Storage with injectable failures.
type fakeStorage struct {
	mu    sync.Mutex
	token string
	phone string

	saveTokenErr error
	loadTokenErr error
	clearErr     error

	clearTokenCalls int
	clearPhoneCalls int
}

func (s *fakeStorage) SaveToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveTokenErr != nil {
		return s.saveTokenErr
	}
	s.token = token
	return nil
}

func (s *fakeStorage) LoadToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadTokenErr != nil {
		return "", s.loadTokenErr
	}
	return s.token, nil
}

func (s *fakeStorage) ClearToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearTokenCalls++
	return s.clearErr
}

func (s *fakeStorage) SavePhone(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phone = phone
	return nil
}

func (s *fakeStorage) LoadPhone(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phone, nil
}

func (s *fakeStorage) ClearPhone(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPhoneCalls++
	return s.clearErr
}
