package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/leisureryde/rideshare/internal/auth"
	"github.com/leisureryde/rideshare/internal/backend"
	"github.com/leisureryde/rideshare/internal/session"
)

const (
	minPhoneLen = 10
	codeLen     = 6
)

var errQuit = errors.New("quit")

// app walks the rider through welcome, login, code entry, PIN setup and home.
type app struct {
	controller *session.Controller
	in         *bufio.Scanner
	out        io.Writer

	mu      sync.Mutex
	pending string
}

func newApp(c *session.Controller, in io.Reader, out io.Writer) *app {
	return &app{controller: c, in: bufio.NewScanner(in), out: out}
}

func (a *app) run(ctx context.Context) error {
	unsubscribe := a.controller.Subscribe(a.onState)
	defer unsubscribe()

	a.controller.Hydrate(ctx)

	for {
		var err error
		if a.controller.State().SignedIn() {
			err = a.home(ctx)
		} else {
			err = a.signIn(ctx)
		}
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// onState prints the pending operation label while the controller is busy.
func (a *app) onState(s session.State) {
	if !s.Loading {
		return
	}
	a.mu.Lock()
	label := a.pending
	a.pending = ""
	a.mu.Unlock()
	if label != "" {
		fmt.Fprintln(a.out, label)
	}
}

func (a *app) busy(label string) {
	a.mu.Lock()
	a.pending = label
	a.mu.Unlock()
}

func (a *app) signIn(ctx context.Context) error {
	fmt.Fprintln(a.out, "Welcome to Rideshare. Sign in with your phone number.")

	phone, err := a.prompt("Phone", a.controller.State().Phone, validPhone, "Enter a valid phone number.")
	if err != nil {
		return err
	}
	a.busy("Sending...")
	if err := a.controller.RequestOTP(ctx, phone); err != nil {
		fmt.Fprintln(a.out, "Could not send code:", describe(err))
		return nil
	}
	fmt.Fprintf(a.out, "Code sent to %s.\n", phone)

	var needsPin bool
	for {
		code, err := a.prompt("Code", "", validCode, "Enter the 6-digit code.")
		if err != nil {
			return err
		}
		a.busy("Verifying...")
		r, err := a.controller.VerifyOTP(ctx, code)
		if err == nil {
			needsPin = r.NeedsPin()
			break
		}
		fmt.Fprintln(a.out, "Verification failed:", describe(err))
		if !errors.Is(err, backend.ErrInvalidCode) {
			return nil
		}
	}

	if needsPin {
		return a.createPIN(ctx)
	}
	return nil
}

func (a *app) createPIN(ctx context.Context) error {
	fmt.Fprintln(a.out, "Create a 4-digit PIN.")
	for {
		pin, err := a.prompt("PIN", "", auth.ValidPIN, "PIN must be 4 digits.")
		if err != nil {
			return err
		}
		confirm, err := a.prompt("Confirm PIN", "", auth.ValidPIN, "PIN must be 4 digits.")
		if err != nil {
			return err
		}
		if pin != confirm {
			fmt.Fprintln(a.out, "PINs do not match.")
			continue
		}
		a.busy("Saving...")
		if err := a.controller.SetPIN(ctx, pin); err != nil {
			fmt.Fprintln(a.out, "Could not save PIN:", describe(err))
			continue
		}
		fmt.Fprintln(a.out, "PIN saved.")
		return nil
	}
}

func (a *app) home(ctx context.Context) error {
	fmt.Fprintf(a.out, "Signed in as %s.\n", a.controller.State().Phone)
	choice, err := a.prompt("[s]ign out or [q]uit", "", func(s string) bool {
		return s == "s" || s == "q"
	}, "Type s or q.")
	if err != nil {
		return err
	}
	if choice == "q" {
		return errQuit
	}
	a.controller.SignOut(ctx)
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// prompt reads lines until valid accepts one. An empty line takes def.
func (a *app) prompt(label, def string, valid func(string) bool, hint string) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(a.out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(a.out, "%s: ", label)
		}
		if !a.in.Scan() {
			if err := a.in.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			line = def
		}
		if valid(line) {
			return line, nil
		}
		fmt.Fprintln(a.out, hint)
	}
}

func validPhone(s string) bool {
	return len(strings.TrimSpace(s)) >= minPhoneLen
}

func validCode(s string) bool {
	if len(s) != codeLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func describe(err error) string {
	switch {
	case errors.Is(err, backend.ErrInvalidCode):
		return "invalid code"
	case errors.Is(err, backend.ErrAuth):
		return "session expired, sign in again"
	case errors.Is(err, backend.ErrNetwork):
		return "network error, try again"
	default:
		return err.Error()
	}
}
