// Package session holds the rider's authentication state and drives the
// phone verification flow: request a code, verify it, optionally set a PIN,
// sign out. UI layers read State and subscribe to changes; only the
// Controller writes.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leisureryde/rideshare/internal/backend"
	"github.com/leisureryde/rideshare/internal/logging"
	"github.com/leisureryde/rideshare/internal/model"
)

// State is a snapshot of the session. An empty Token means no session.
type State struct {
	Phone   string
	Token   string
	Loading bool
}

// SignedIn reports whether a session token is held.
func (s State) SignedIn() bool {
	return s.Token != ""
}

// Storage persists the token and the last used phone number.
type Storage interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
	SavePhone(ctx context.Context, phone string) error
	LoadPhone(ctx context.Context) (string, error)
	ClearPhone(ctx context.Context) error
}

// Controller owns the session state. Operations are not serialized: two
// overlapping calls both run and the last write to Phone or Token wins.
// Loading stays true while at least one operation is in flight.
type Controller struct {
	backend backend.Client
	storage Storage
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	inFlight  int
	nextSubID int
	subs      map[int]func(State)
}

// NewController creates a Controller with an empty session. Call Hydrate to
// restore a persisted one.
func NewController(client backend.Client, storage Storage, logger *slog.Logger) *Controller {
	return &Controller{
		backend: client,
		storage: storage,
		logger:  logging.OrDiscard(logger),
		subs:    make(map[int]func(State)),
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every new snapshot. fn runs on the
// goroutine that changed the state and must not block. The returned func
// removes the subscription.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Hydrate loads the persisted token and phone in parallel. It never contacts
// the backend. A storage failure leaves the affected field empty.
func (c *Controller) Hydrate(ctx context.Context) {
	var token, phone string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		token, err = c.storage.LoadToken(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		phone, err = c.storage.LoadPhone(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("hydrate: storage read failed", "error", err)
	}

	c.update(func(s *State) {
		s.Token = token
		s.Phone = phone
	})
}

// RequestOTP asks the backend for a code for phone, then remembers phone.
func (c *Controller) RequestOTP(ctx context.Context, phone string) error {
	c.begin()
	defer c.end()

	if err := c.backend.RequestOTP(ctx, phone); err != nil {
		return err
	}
	if err := c.storage.SavePhone(ctx, phone); err != nil {
		return fmt.Errorf("persist phone: %w", err)
	}
	c.update(func(s *State) { s.Phone = phone })
	c.logger.Info("otp requested", "phone", logging.MaskPhone(phone))
	return nil
}

// VerifyOTP verifies code for the current phone and stores the issued
// token. On failure the current token is left untouched.
func (c *Controller) VerifyOTP(ctx context.Context, code string) (model.AuthResult, error) {
	c.begin()
	defer c.end()

	phone := c.State().Phone
	result, err := c.backend.VerifyOTP(ctx, phone, code)
	if err != nil {
		return model.AuthResult{}, err
	}
	if err := c.storage.SaveToken(ctx, result.Token); err != nil {
		return model.AuthResult{}, fmt.Errorf("persist token: %w", err)
	}
	c.update(func(s *State) { s.Token = result.Token })
	c.logger.Info("otp verified", "phone", logging.MaskPhone(phone), "new_user", result.IsNewUser, "has_pin", result.HasPin)
	return result, nil
}

// SetPIN sets the account PIN using the current token. It fails with
// backend.ErrAuth when there is no session.
func (c *Controller) SetPIN(ctx context.Context, pin string) error {
	token := c.State().Token
	if token == "" {
		return fmt.Errorf("%w: no session token", backend.ErrAuth)
	}

	c.begin()
	defer c.end()
	return c.backend.SetPIN(ctx, token, pin)
}

// SignOut forgets the session. Both persisted values are cleared best-effort
// and the in-memory state is reset whether or not the clears succeed.
func (c *Controller) SignOut(ctx context.Context) {
	if err := c.storage.ClearToken(ctx); err != nil {
		c.logger.Warn("sign out: clear token failed", "error", err)
	}
	if err := c.storage.ClearPhone(ctx); err != nil {
		c.logger.Warn("sign out: clear phone failed", "error", err)
	}
	c.update(func(s *State) {
		s.Token = ""
		s.Phone = ""
	})
}

func (c *Controller) begin() {
	c.update(func(s *State) {
		c.inFlight++
		s.Loading = true
	})
}

func (c *Controller) end() {
	c.update(func(s *State) {
		c.inFlight--
		s.Loading = c.inFlight > 0
	})
}

// update applies fn under the lock and then notifies subscribers.
func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state
	subs := make([]func(State), 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}
