package auth

import "errors"

var (
	// ErrRateLimited is returned when a phone asked for too many codes.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidOTP is returned for a wrong, expired, exhausted or missing code.
	ErrInvalidOTP = errors.New("invalid or expired OTP")

	// ErrTooManyAttempts is returned when verification is retried too quickly.
	ErrTooManyAttempts = errors.New("too many attempts, try again later")

	// ErrInvalidPIN is returned when a PIN is not exactly four digits.
	ErrInvalidPIN = errors.New("pin must be 4 digits")

	// ErrInvalidToken is returned for a malformed, expired or forged access token.
	ErrInvalidToken = errors.New("invalid or expired token")
)
