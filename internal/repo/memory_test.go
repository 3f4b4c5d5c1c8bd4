package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPhone = "+2348012345678"

var testHash = []byte{0x00, 0xff}

func TestMemoryOtpRepo_replaceKeepsOneActiveSession(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryOtpRepo()
	expires := time.Now().Add(time.Minute)

	first, err := r.CreateOrReplaceSession(ctx, testPhone, testHash, expires, OtpRequestMeta{})
	require.NoError(t, err)
	second, err := r.CreateOrReplaceSession(ctx, testPhone, []byte{0xab}, expires, OtpRequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	active, err := r.GetActiveSessionByPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, second, active.ID)
	assert.Equal(t, []byte{0xab}, active.OTPHash)
	require.NotNil(t, active.RequestIP)
	assert.Equal(t, "10.0.0.1", *active.RequestIP)
	assert.Nil(t, active.UserAgent)

	count, err := r.CountRecentRequests(ctx, testPhone, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemoryOtpRepo_expiredAndConsumedAreInactive(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryOtpRepo()

	_, err := r.CreateOrReplaceSession(ctx, testPhone, testHash, time.Now().Add(-time.Second), OtpRequestMeta{})
	require.NoError(t, err)
	_, err = r.GetActiveSessionByPhone(ctx, testPhone)
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := r.CreateOrReplaceSession(ctx, testPhone, testHash, time.Now().Add(time.Minute), OtpRequestMeta{})
	require.NoError(t, err)
	require.NoError(t, r.MarkConsumed(ctx, id))
	_, err = r.GetActiveSessionByPhone(ctx, testPhone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryOtpRepo_attemptsExhaustSession(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryOtpRepo()
	id, err := r.CreateOrReplaceSession(ctx, testPhone, testHash, time.Now().Add(time.Minute), OtpRequestMeta{})
	require.NoError(t, err)

	for want := 1; want <= 5; want++ {
		n, err := r.IncrementAttempt(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	_, err = r.GetActiveSessionByPhone(ctx, testPhone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryOtpRepo_unknownSession(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryOtpRepo()
	assert.ErrorIs(t, r.MarkConsumed(ctx, uuid.New()), ErrNotFound)
	_, err := r.IncrementAttempt(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryOtpRepo_purgeBefore(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryOtpRepo()

	consumed, err := r.CreateOrReplaceSession(ctx, testPhone, testHash, time.Now().Add(time.Minute), OtpRequestMeta{})
	require.NoError(t, err)
	require.NoError(t, r.MarkConsumed(ctx, consumed))
	_, err = r.CreateOrReplaceSession(ctx, "+15550001111", testHash, time.Now().Add(time.Minute), OtpRequestMeta{})
	require.NoError(t, err)

	n, err := r.PurgeBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "recent sessions are kept")

	n, err = r.PurgeBefore(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the consumed session is purged")

	_, err = r.GetActiveSessionByPhone(ctx, "+15550001111")
	assert.NoError(t, err)
}

func TestMemoryUserRepo(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryUserRepo()

	_, err := r.GetByPhone(ctx, testPhone)
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := r.GetOrCreateByPhone(ctx, testPhone)
	require.NoError(t, err)
	again, err := r.GetOrCreateByPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.False(t, created.HasPin())

	require.NoError(t, r.SetPinHash(ctx, created.ID, "hash"))
	byID, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, byID.HasPin())
	assert.NotNil(t, byID.PinSetAt)

	assert.ErrorIs(t, r.SetPinHash(ctx, uuid.New(), "hash"), ErrNotFound)
	_, err = r.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
