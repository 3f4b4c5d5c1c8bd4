package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"
	"time"

	"github.com/leisureryde/rideshare/internal/repo"
)

const (
	// DevOTP is the only code issued in dev mode.
	DevOTP = "123456"

	otpExpiry            = 5 * time.Minute
	maxAttempts          = repo.MaxOtpAttempts
	defaultAttemptDelay  = 2 * time.Second
	requestWindow        = 10 * time.Minute
	maxRequestsPerWindow = 3
)

// OtpStub implements OtpProvider on top of an OtpRepo. Codes are never
// stored in clear, only SHA-256(phone:code:salt). Delivery is stubbed: in
// dev mode the code is always DevOTP, otherwise it is random and dropped.
type OtpStub struct {
	otpRepo         repo.OtpRepo
	salt            string
	devMode         bool
	minAttemptDelay time.Duration
}

// OtpOption configures an OtpStub.
type OtpOption func(*OtpStub)

// WithMinAttemptDelay sets the minimum spacing between verification attempts.
func WithMinAttemptDelay(d time.Duration) OtpOption {
	return func(p *OtpStub) { p.minAttemptDelay = d }
}

// NewOtpStub creates a new OTP provider
func NewOtpStub(otpRepo repo.OtpRepo, salt string, devMode bool, opts ...OtpOption) *OtpStub {
	p := &OtpStub{
		otpRepo:         otpRepo,
		salt:            salt,
		devMode:         devMode,
		minAttemptDelay: defaultAttemptDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DevMode reports whether codes are pinned to DevOTP.
func (p *OtpStub) DevMode() bool {
	return p.devMode
}

// RequestOTP creates or replaces the phone's OTP session. Rate limit: max 3
// requests per 10 min per phone.
func (p *OtpStub) RequestOTP(ctx context.Context, phone, ip, userAgent string) error {
	since := time.Now().Add(-requestWindow)
	count, err := p.otpRepo.CountRecentRequests(ctx, phone, since)
	if err != nil {
		return fmt.Errorf("rate limit check: %w", err)
	}
	if count >= maxRequestsPerWindow {
		return fmt.Errorf("%w: max %d OTP requests per %v per phone", ErrRateLimited, maxRequestsPerWindow, requestWindow)
	}

	code := DevOTP
	if !p.devMode {
		if code, err = generateOTPCode(); err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
	}

	meta := repo.OtpRequestMeta{IP: ip, UserAgent: userAgent}
	if _, err := p.otpRepo.CreateOrReplaceSession(ctx, phone, hashOTPBytes(phone, code, p.salt), time.Now().Add(otpExpiry), meta); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	// Never log or return plaintext OTP
	return nil
}

// VerifyOTP verifies the code against the active session: attempt limit 5,
// minimum delay between attempts, hash comparison, then mark consumed.
func (p *OtpStub) VerifyOTP(ctx context.Context, phone, code, ip string) error {
	session, err := p.otpRepo.GetActiveSessionByPhone(ctx, phone)
	if err != nil {
		return ErrInvalidOTP
	}

	if session.LastAttemptAt != nil && p.minAttemptDelay > 0 {
		if time.Since(*session.LastAttemptAt) < p.minAttemptDelay {
			return ErrTooManyAttempts
		}
	}

	newCount, err := p.otpRepo.IncrementAttempt(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	providedHash := hashOTPBytes(phone, code, p.salt)
	if !constantTimeCompare(providedHash, session.OTPHash) {
		if newCount >= maxAttempts {
			_ = p.otpRepo.MarkConsumed(ctx, session.ID)
		}
		return ErrInvalidOTP
	}

	if err := p.otpRepo.MarkConsumed(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to consume session: %w", err)
	}
	return nil
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Purge deletes dead sessions older than retain.
func (p *OtpStub) Purge(ctx context.Context, retain time.Duration) (int64, error) {
	return p.otpRepo.PurgeBefore(ctx, time.Now().Add(-retain))
}

// hashOTPBytes returns SHA-256(phone:code:salt); only this is stored.
func hashOTPBytes(phone, code, salt string) []byte {
	data := fmt.Sprintf("%s:%s:%s", phone, code, salt)
	hash := sha256.Sum256([]byte(data))
	return hash[:]
}

func constantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var result int
	for i := 0; i < len(a); i++ {
		result |= int(a[i]) ^ int(b[i])
	}
	return result == 0
}
