package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leisureryde/rideshare/internal/model"
)

const testPhone = "+2348012345678"

func TestMock_requestThenVerify(t *testing.T) {
	ctx := context.Background()
	for _, phone := range []string{testPhone, "+491234567890", "0800", ""} {
		m := NewMock(0, nil)
		require.NoError(t, m.RequestOTP(ctx, phone))

		res, err := m.VerifyOTP(ctx, phone, MockCode)
		require.NoError(t, err, "phone %q", phone)
		assert.Equal(t, "mock-token-"+phone, res.Token)
	}
}

func TestMock_verifyWithoutRequest(t *testing.T) {
	m := NewMock(0, nil)
	_, err := m.VerifyOTP(context.Background(), testPhone, MockCode)
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = m.VerifyOTP(context.Background(), testPhone, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestMock_wrongCodeKeepsStoredCode(t *testing.T) {
	ctx := context.Background()
	m := NewMock(0, nil)
	require.NoError(t, m.RequestOTP(ctx, testPhone))

	_, err := m.VerifyOTP(ctx, testPhone, "654321")
	assert.ErrorIs(t, err, ErrInvalidCode)

	rec, ok := m.Record(testPhone)
	require.True(t, ok)
	assert.Equal(t, MockCode, rec.Code)

	_, err = m.VerifyOTP(ctx, testPhone, MockCode)
	assert.NoError(t, err, "the original code must still verify")
}

func TestMock_pinLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMock(0, nil)
	require.NoError(t, m.RequestOTP(ctx, testPhone))

	first, err := m.VerifyOTP(ctx, testPhone, MockCode)
	require.NoError(t, err)
	assert.Equal(t, model.AuthResult{Token: MockToken(testPhone), IsNewUser: true, HasPin: false}, first)

	require.NoError(t, m.SetPIN(ctx, first.Token, "4321"))

	require.NoError(t, m.RequestOTP(ctx, testPhone))
	second, err := m.VerifyOTP(ctx, testPhone, MockCode)
	require.NoError(t, err)
	assert.Equal(t, model.AuthResult{Token: MockToken(testPhone), IsNewUser: false, HasPin: true}, second)

	rec, _ := m.Record(testPhone)
	assert.True(t, rec.HasPin, "a new OTP request must not reset HasPin")
}

func TestMock_setPinForUnknownPhoneIsNoop(t *testing.T) {
	m := NewMock(0, nil)
	require.NoError(t, m.SetPIN(context.Background(), MockToken(testPhone), "4321"))
	_, ok := m.Record(testPhone)
	assert.False(t, ok)
}

func TestMock_latencyHonoursContext(t *testing.T) {
	m := NewMock(time.Hour, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := m.RequestOTP(ctx, testPhone)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
