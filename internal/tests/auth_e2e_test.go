package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leisureryde/rideshare/internal/backend"
	"github.com/leisureryde/rideshare/internal/session"
	"github.com/leisureryde/rideshare/internal/storage"
)

// TestRiderSessionE2E drives the rider session controller against the real
// API over HTTP with on-disk session storage, including an app restart.
func TestRiderSessionE2E(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServer(t)
	dir := t.TempDir()

	remote, err := backend.NewRemote(ts.HTTP.URL, 10*time.Second, nil)
	require.NoError(t, err)

	newController := func() *session.Controller {
		store, err := storage.NewFileSessionStorage(dir, "device-secret", nil)
		require.NoError(t, err)
		c := session.NewController(remote, store, nil)
		c.Hydrate(ctx)
		return c
	}

	c := newController()
	assert.Equal(t, session.State{}, c.State())

	require.NoError(t, c.RequestOTP(ctx, testPhone))
	assert.Equal(t, testPhone, c.State().Phone)

	_, err = c.VerifyOTP(ctx, "000000")
	assert.ErrorIs(t, err, backend.ErrInvalidCode)
	assert.False(t, c.State().SignedIn())

	result, err := c.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, result.IsNewUser)
	assert.False(t, result.HasPin)
	assert.True(t, result.NeedsPin())
	assert.Equal(t, result.Token, c.State().Token)

	// restart: the persisted session comes back
	restarted := newController()
	assert.Equal(t, session.State{Phone: testPhone, Token: result.Token}, restarted.State())

	require.NoError(t, restarted.SetPIN(ctx, "4321"))
	assert.False(t, restarted.State().Loading)

	restarted.SignOut(ctx)
	assert.Equal(t, session.State{}, restarted.State())
	assert.Equal(t, session.State{}, newController().State())

	// a fresh cycle reports the PIN
	c = newController()
	require.NoError(t, c.RequestOTP(ctx, testPhone))
	result, err = c.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	assert.False(t, result.IsNewUser)
	assert.True(t, result.HasPin)
	assert.False(t, result.NeedsPin())
}

func TestRiderSessionE2E_setPinRejectsForeignToken(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServer(t)

	remote, err := backend.NewRemote(ts.HTTP.URL, 10*time.Second, nil)
	require.NoError(t, err)

	err = remote.SetPIN(ctx, backend.MockToken(testPhone), "4321")
	assert.ErrorIs(t, err, backend.ErrAuth)
}

func TestRiderSessionE2E_serverDown(t *testing.T) {
	ctx := context.Background()
	ts := newMemoryServer(t)
	url := ts.HTTP.URL
	ts.HTTP.Close()

	remote, err := backend.NewRemote(url, time.Second, nil)
	require.NoError(t, err)
	c := session.NewController(remote, storage.NewSessionStorage(nil, storage.NewMemoryStore(), nil), nil)

	err = c.RequestOTP(ctx, testPhone)
	assert.True(t, errors.Is(err, backend.ErrNetwork), "got %v", err)
	assert.Equal(t, session.State{}, c.State())
}
