// Package session tracks whether the operator is authenticated against the
// settings API and decides which console pages they may see.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-multierror"

	"filterdesk/pkg/settingsapi"
)

// Authenticator is the part of the settings API the holder needs.
type Authenticator interface {
	CheckAuth(ctx context.Context) (bool, error)
	AnyRegistered(ctx context.Context) (bool, error)
	Login(ctx context.Context, creds settingsapi.Credentials) error
	Register(ctx context.Context, creds settingsapi.Credentials) error
}

// State is a point-in-time copy of the session flags.
type State struct {
	Authenticated bool
	Registered    bool
	Loading       bool
}

// Holder owns the session flags of one operator. It starts in the loading
// state and leaves it once Resolve has run both startup checks.
type Holder struct {
	api Authenticator
	log *slog.Logger

	mu      sync.Mutex
	state   State
	resolve sync.Once
	done    chan struct{}
}

// NewHolder creates a Holder in the loading state.
func NewHolder(api Authenticator, log *slog.Logger) *Holder {
	if log == nil {
		log = slog.Default()
	}
	return &Holder{
		api:   api,
		log:   log,
		state: State{Loading: true},
		done:  make(chan struct{}),
	}
}

// Resolve runs the check-auth call and then the any-registered call, one
// after the other, and leaves the loading state. A failed call leaves its
// flag untouched. Only the first invocation does any work.
func (h *Holder) Resolve(ctx context.Context) error {
	var result error
	ran := false
	h.resolve.Do(func() {
		ran = true
		result = h.runChecks(ctx)
	})
	if !ran {
		return nil
	}
	return result
}

func (h *Holder) runChecks(ctx context.Context) error {
	defer close(h.done)

	var errs *multierror.Error

	authenticated, err := h.api.CheckAuth(ctx)
	if err != nil {
		h.log.Error("failed to check authentication status", "error", err)
		errs = multierror.Append(errs, fmt.Errorf("check auth: %w", err))
	} else {
		h.mu.Lock()
		h.state.Authenticated = authenticated
		h.mu.Unlock()
	}

	registered, err := h.api.AnyRegistered(ctx)
	if err != nil {
		h.log.Error("failed to check for registered accounts", "error", err)
		h.log.Warn("treating settings api as having no account, registration will be offered")
		errs = multierror.Append(errs, fmt.Errorf("check registered: %w", err))
	} else {
		h.mu.Lock()
		h.state.Registered = registered
		h.mu.Unlock()
	}

	h.mu.Lock()
	h.state.Loading = false
	state := h.state
	h.mu.Unlock()

	h.log.Debug("session resolved", "authenticated", state.Authenticated, "registered", state.Registered)
	return errs.ErrorOrNil()
}

// Done is closed once the holder has left the loading state.
func (h *Holder) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the holder is resolved or ctx ends. It reports whether
// the holder is resolved.
func (h *Holder) Wait(ctx context.Context) bool {
	select {
	case <-h.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Snapshot returns the current flags.
func (h *Holder) Snapshot() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ErrLoginRejected is returned when the API refuses the credentials.
var ErrLoginRejected = errors.New("login rejected")

// Login submits credentials and marks the session authenticated when the API
// accepts them. Anything else leaves the flags unchanged.
func (h *Holder) Login(ctx context.Context, username, password string) error {
	err := h.api.Login(ctx, settingsapi.Credentials{Username: username, Password: password})
	if err != nil {
		h.log.Error("failed to login", "username", username, "error", err)
		if errors.Is(err, settingsapi.ErrRejected) {
			return fmt.Errorf("%w: %w", ErrLoginRejected, err)
		}
		return fmt.Errorf("login: %w", err)
	}

	h.mu.Lock()
	h.state.Authenticated = true
	h.mu.Unlock()
	h.log.Info("operator logged in", "username", username)
	return nil
}

// Register creates the account. On success the session counts as registered,
// so the gate sends the operator to the login page next.
func (h *Holder) Register(ctx context.Context, username, password string) error {
	err := h.api.Register(ctx, settingsapi.Credentials{Username: username, Password: password})
	if err != nil {
		h.log.Error("registration failed", "username", username, "error", err)
		return fmt.Errorf("register: %w", err)
	}

	h.mu.Lock()
	h.state.Registered = true
	h.mu.Unlock()
	h.log.Info("operator registered", "username", username)
	return nil
}
