package model

import (
	"time"

	"github.com/google/uuid"
)

// AuthResult is returned by a successful OTP verification. It is also the
// JSON body of POST /auth/verify-otp.
type AuthResult struct {
	Token     string `json:"token"`
	IsNewUser bool   `json:"isNewUser"`
	HasPin    bool   `json:"hasPin"`
}

// NeedsPin reports whether the account still has to go through PIN setup.
// A missing PIN wins over the IsNewUser flag.
func (r AuthResult) NeedsPin() bool {
	return r.IsNewUser || !r.HasPin
}

// OtpRecord is the in-memory backend's per-phone verification record.
type OtpRecord struct {
	Phone  string
	Code   string
	HasPin bool
}

// User represents a rider account on the auth server
type User struct {
	ID          uuid.UUID
	PhoneNumber string
	PinHash     string
	PinSetAt    *time.Time
	CreatedAt   time.Time
}

// HasPin reports whether the user completed PIN setup
func (u User) HasPin() bool {
	return u.PinHash != ""
}

// OtpSession represents an OTP session for phone verification
type OtpSession struct {
	ID            uuid.UUID
	PhoneNumber   string
	OTPHash       []byte
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	CreatedAt     time.Time
	AttemptCount  int
	LastAttemptAt *time.Time
	RequestIP     *string
	UserAgent     *string
}
