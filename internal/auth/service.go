package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/leisureryde/rideshare/internal/model"
	"github.com/leisureryde/rideshare/internal/repo"
)

// AuthService orchestrates authentication operations
type AuthService struct {
	otpProvider OtpProvider
	jwtService  *JWTService
	userRepo    repo.UserRepo
}

// NewAuthService creates a new auth service
func NewAuthService(
	otpProvider OtpProvider,
	jwtService *JWTService,
	userRepo repo.UserRepo,
) *AuthService {
	return &AuthService{
		otpProvider: otpProvider,
		jwtService:  jwtService,
		userRepo:    userRepo,
	}
}

// RequestOTP starts a verification for phone.
func (s *AuthService) RequestOTP(ctx context.Context, phone, ip, userAgent string) error {
	return s.otpProvider.RequestOTP(ctx, phone, ip, userAgent)
}

// VerifyOTP verifies the code, gets or creates the user and issues an access
// token. A user without a PIN is reported as new.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code, ip string) (model.AuthResult, error) {
	if err := s.otpProvider.VerifyOTP(ctx, phone, code, ip); err != nil {
		return model.AuthResult{}, fmt.Errorf("OTP verification failed: %w", err)
	}

	user, err := s.userRepo.GetOrCreateByPhone(ctx, phone)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to get or create user: %w", err)
	}

	token, err := s.jwtService.SignAccessToken(user.ID, user.PhoneNumber)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return model.AuthResult{
		Token:     token,
		IsNewUser: !user.HasPin(),
		HasPin:    user.HasPin(),
	}, nil
}

// SetPIN stores a bcrypt hash of pin for the user.
func (s *AuthService) SetPIN(ctx context.Context, userID uuid.UUID, pin string) error {
	hash, err := HashPIN(pin)
	if err != nil {
		return err
	}
	if err := s.userRepo.SetPinHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to set pin: %w", err)
	}
	return nil
}
