package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leisureryde/rideshare/internal/model"
)

// MaxOtpAttempts is the number of verification attempts after which a
// session no longer counts as active.
const MaxOtpAttempts = 5

// OtpRequestMeta describes who asked for a code. Empty fields are stored as NULL.
type OtpRequestMeta struct {
	IP        string
	UserAgent string
}

// OtpRepo stores OTP sessions. At most one session per phone is unconsumed.
type OtpRepo interface {
	CreateOrReplaceSession(ctx context.Context, phone string, otpHash []byte, expiresAt time.Time, meta OtpRequestMeta) (uuid.UUID, error)
	GetActiveSessionByPhone(ctx context.Context, phone string) (model.OtpSession, error)
	MarkConsumed(ctx context.Context, sessionID uuid.UUID) error
	IncrementAttempt(ctx context.Context, sessionID uuid.UUID) (newAttemptCount int, err error)
	CountRecentRequests(ctx context.Context, phone string, since time.Time) (int, error)
	// PurgeBefore deletes sessions created before cutoff that can no longer
	// be verified and returns how many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a Postgres-backed OtpRepo
func NewOtpRepo(db *sql.DB) OtpRepo {
	return &otpRepo{db: db}
}

const otpColumns = `id, phone_number, otp_hash, expires_at, consumed_at, created_at,
	attempt_count, last_attempt_at, request_ip, user_agent`

// CreateOrReplaceSession consumes any open session for phone and inserts a
// new one in a single transaction, serialized per phone by an advisory lock.
func (r *otpRepo) CreateOrReplaceSession(ctx context.Context, phone string, otpHash []byte, expiresAt time.Time, meta OtpRequestMeta) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('otp:' || $1::text))`, phone); err != nil {
		return uuid.Nil, fmt.Errorf("advisory lock: %w", err)
	}

	// Expired rows still hold the partial unique index, so consume them too.
	if _, err := tx.ExecContext(ctx, `
		UPDATE otp_sessions SET consumed_at = now()
		WHERE phone_number = $1 AND consumed_at IS NULL
	`, phone); err != nil {
		return uuid.Nil, fmt.Errorf("consume open sessions: %w", err)
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO otp_sessions (phone_number, otp_hash, expires_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, phone, otpHash, expiresAt, nullString(meta.IP), nullString(meta.UserAgent)).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetActiveSessionByPhone returns the newest unconsumed, unexpired session
// with attempts left.
func (r *otpRepo) GetActiveSessionByPhone(ctx context.Context, phone string) (model.OtpSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+otpColumns+`
		FROM otp_sessions
		WHERE phone_number = $1
		  AND consumed_at IS NULL
		  AND expires_at > now()
		  AND attempt_count < $2
		ORDER BY created_at DESC
		LIMIT 1
	`, phone, MaxOtpAttempts)

	var (
		s             model.OtpSession
		ip, userAgent sql.NullString
	)
	err := row.Scan(&s.ID, &s.PhoneNumber, &s.OTPHash, &s.ExpiresAt, &s.ConsumedAt, &s.CreatedAt,
		&s.AttemptCount, &s.LastAttemptAt, &ip, &userAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return model.OtpSession{}, fmt.Errorf("active otp session: %w", ErrNotFound)
	}
	if err != nil {
		return model.OtpSession{}, fmt.Errorf("query session: %w", err)
	}
	s.RequestIP = stringPtr(ip)
	s.UserAgent = stringPtr(userAgent)
	return s, nil
}

func (r *otpRepo) MarkConsumed(ctx context.Context, sessionID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE otp_sessions SET consumed_at = now() WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("otp session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// IncrementAttempt records one verification attempt and returns the new count.
func (r *otpRepo) IncrementAttempt(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE otp_sessions
		SET attempt_count = attempt_count + 1, last_attempt_at = now()
		WHERE id = $1
		RETURNING attempt_count
	`, sessionID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("otp session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment attempt: %w", err)
	}
	return count, nil
}

// CountRecentRequests counts sessions created for phone since the given time.
func (r *otpRepo) CountRecentRequests(ctx context.Context, phone string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM otp_sessions WHERE phone_number = $1 AND created_at >= $2`,
		phone, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent requests: %w", err)
	}
	return count, nil
}

func (r *otpRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM otp_sessions
		WHERE created_at < $1
		  AND (consumed_at IS NOT NULL OR expires_at <= now() OR attempt_count >= $2)
	`, cutoff, MaxOtpAttempts)
	if err != nil {
		return 0, fmt.Errorf("purge otp sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
