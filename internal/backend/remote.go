package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leisureryde/rideshare/internal/logging"
	"github.com/leisureryde/rideshare/internal/model"
)

// Backend endpoints, relative to the configured base URL
const (
	RequestOTPPath = "/auth/request-otp"
	VerifyOTPPath  = "/auth/verify-otp"
	SetPINPath     = "/auth/set-pin"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// Remote calls the auth server over HTTP.
type Remote struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewRemote creates a Remote client for baseURL. timeout bounds each call.
func NewRemote(baseURL string, timeout time.Duration, logger *slog.Logger) (*Remote, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base url %q", baseURL)
	}
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.OrDiscard(logger),
	}, nil
}

// requestOTPRequest is the request body for POST /auth/request-otp
type requestOTPRequest struct {
	Phone string `json:"phone"`
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

// errorResponse matches the server's error JSON body
type errorResponse struct {
	Error string `json:"error"`
}

// RequestOTP asks the server to send a code to phone. Every failure is a
// network error.
func (r *Remote) RequestOTP(ctx context.Context, phone string) error {
	resp, err := r.post(ctx, RequestOTPPath, requestOTPRequest{Phone: phone}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(ErrNetwork, resp)
	}
	return nil
}

// VerifyOTP exchanges a code for a session. A 4xx answer means the code was
// rejected; anything else that is not 2xx is a network error.
func (r *Remote) VerifyOTP(ctx context.Context, phone, code string) (model.AuthResult, error) {
	resp, err := r.post(ctx, VerifyOTPPath, verifyOTPRequest{Phone: phone, Code: code}, "")
	if err != nil {
		return model.AuthResult{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
	case resp.StatusCode/100 == 4:
		return model.AuthResult{}, statusError(ErrInvalidCode, resp)
	default:
		return model.AuthResult{}, statusError(ErrNetwork, resp)
	}

	var result model.AuthResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return model.AuthResult{}, fmt.Errorf("%w: decode verify response: %w", ErrNetwork, err)
	}
	if result.Token == "" {
		return model.AuthResult{}, fmt.Errorf("%w: verify response carries no token", ErrNetwork)
	}
	return result, nil
}

// SetPIN sets the account PIN, authorized by the session token. A 4xx
// answer is an auth error.
func (r *Remote) SetPIN(ctx context.Context, token, pin string) error {
	if token == "" {
		return fmt.Errorf("%w: missing session token", ErrAuth)
	}
	resp, err := r.post(ctx, SetPINPath, setPINRequest{Pin: pin}, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		return nil
	case resp.StatusCode/100 == 4:
		return statusError(ErrAuth, resp)
	default:
		return statusError(ErrNetwork, resp)
	}
}

// post sends body as JSON. Transport failures are wrapped in ErrNetwork.
func (r *Remote) post(ctx context.Context, path string, body any, token string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("auth backend unreachable", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	r.logger.Debug("auth backend call", "path", path, "status", resp.StatusCode)
	return resp, nil
}

// statusError wraps kind with the HTTP status and the server's error message.
func statusError(kind error, resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorResponse
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return fmt.Errorf("%w: %s (status %d)", kind, msg, resp.StatusCode)
}
