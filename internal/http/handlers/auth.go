package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leisureryde/rideshare/internal/auth"
	"github.com/leisureryde/rideshare/internal/logging"
	"github.com/leisureryde/rideshare/internal/middleware"
)

const maxBodyBytes = 1 << 16

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService     *auth.AuthService
	devMode         bool
	logger          *slog.Logger
	ipLimiter       *middleware.RateLimiter
	verifyIPLimiter *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler. In dev mode request-otp echoes
// the fixed code back to the caller.
func NewAuthHandler(authService *auth.AuthService, devMode bool, logger *slog.Logger) *AuthHandler {
	// IP limits: 10 per 10min for request-otp, 20 per 10min for verify-otp (phone limit lives in the OTP store)
	return &AuthHandler{
		authService:     authService,
		devMode:         devMode,
		logger:          logging.OrDiscard(logger),
		ipLimiter:       middleware.NewRateLimiter(10*time.Minute, 10),
		verifyIPLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
	}
}

// Close stops the handler's rate limiters.
func (h *AuthHandler) Close() {
	h.ipLimiter.Close()
	h.verifyIPLimiter.Close()
}

// requestOTPRequest is the request body for POST /auth/request-otp
type requestOTPRequest struct {
	Phone string `json:"phone"`
}

type requestOTPResponse struct {
	Message string `json:"message"`
	DevOTP  string `json:"devOtp,omitempty"`
}

// verifyOTPRequest is the request body for POST /auth/verify-otp
type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// setPINRequest is the request body for POST /auth/set-pin
type setPINRequest struct {
	Pin string `json:"pin"`
}

type userResponse struct {
	ID     string `json:"id"`
	Phone  string `json:"phone"`
	HasPin bool   `json:"hasPin"`
}

// HandleRequestOTP handles POST /auth/request-otp
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		respondWithError(w, http.StatusBadRequest, "phone is required")
		return
	}

	if !h.ipLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	err := h.authService.RequestOTP(r.Context(), req.Phone, clientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Warn("request otp failed", "phone", logging.MaskPhone(req.Phone), "error", err)
		if errors.Is(err, auth.ErrRateLimited) {
			respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to request OTP")
		return
	}

	response := requestOTPResponse{Message: "otp_sent"}
	if h.devMode {
		response.DevOTP = auth.DevOTP
	}
	h.logger.Info("otp requested", "phone", logging.MaskPhone(req.Phone))
	h.respondJSON(w, http.StatusOK, response)
}

// HandleVerifyOTP handles POST /auth/verify-otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Phone = strings.TrimSpace(req.Phone)
	req.Code = strings.TrimSpace(req.Code)
	if req.Phone == "" || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "phone and code are required")
		return
	}

	if !h.verifyIPLimiter.Allow(middleware.GetIPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), req.Phone, req.Code, clientIP(r))
	if err != nil {
		h.logger.Warn("otp verification failed", "phone", logging.MaskPhone(req.Phone), "error", err)
		if errors.Is(err, auth.ErrInvalidOTP) || errors.Is(err, auth.ErrTooManyAttempts) {
			respondWithError(w, http.StatusUnauthorized, "invalid or expired OTP")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to verify OTP")
		return
	}

	h.logger.Info("otp verified", "phone", logging.MaskPhone(req.Phone), "new_user", result.IsNewUser)
	h.respondJSON(w, http.StatusOK, result)
}

// HandleSetPIN handles POST /auth/set-pin (protected).
func (h *AuthHandler) HandleSetPIN(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req setPINRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.SetPIN(r.Context(), userID, req.Pin); err != nil {
		if errors.Is(err, auth.ErrInvalidPIN) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("set pin failed", "user_id", userID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}

	h.logger.Info("pin set", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /me (protected). Returns the authenticated user.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok || user == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.respondJSON(w, http.StatusOK, userResponse{
		ID:     user.ID.String(),
		Phone:  user.PhoneNumber,
		HasPin: user.HasPin(),
	})
}

func (h *AuthHandler) respondJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}

// clientIP extracts the client IP from the request
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return r.RemoteAddr
}
