package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// State is the gate's position in the activation/login lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateAdminAuthenticating
	StateAdminConfiguring
	StateActivatedIdle
	StateAdminSession
	StateTeacherSession
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAdminAuthenticating:
		return "admin-authenticating"
	case StateAdminConfiguring:
		return "admin-configuring"
	case StateActivatedIdle:
		return "activated-idle"
	case StateAdminSession:
		return "admin-session"
	case StateTeacherSession:
		return "teacher-session"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidAdminPassword = errors.New("invalid admin password")
	ErrFieldsRequired       = errors.New("all fields are required")
	ErrInvalidPassword      = errors.New("invalid password")
)

// Gate validates administrator setup and teacher entry, and owns the
// process-scoped auth state. It is constructed once and injected; there is no
// ambient global. There is no lockout or attempt counting.
type Gate struct {
	mu          sync.Mutex
	store       CredentialStore
	adminDigest []byte

	state            State
	apiKey           string
	terminalName     string
	terminalPassword string
	activated        bool
	isAdmin          bool
}

// NewGate creates a gate over the given store. adminPassword is the shared
// administrator secret; it is held only as a bcrypt digest.
func NewGate(store CredentialStore, adminPassword string) (*Gate, error) {
	if adminPassword == "" {
		return nil, fmt.Errorf("admin password is empty")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	return &Gate{
		store:       store,
		adminDigest: digest,
		state:       StateUninitialized,
	}, nil
}

// Load reads the durable store once and derives the initial state. Activation
// is a durable one-time fact; the admin role is a session claim and is
// re-derived from the session flag, never from re-authentication.
func (g *Gate) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	activated, ok, err := g.store.GetDurable(ctx, KeyActivated)
	if err != nil {
		return fmt.Errorf("loading activation flag: %w", err)
	}
	if !ok || activated != "true" {
		g.state = StateAdminAuthenticating
		return nil
	}

	g.activated = true
	if g.apiKey, _, err = g.store.GetDurable(ctx, KeyAPIKey); err != nil {
		return fmt.Errorf("loading gateway credential: %w", err)
	}
	if g.terminalName, _, err = g.store.GetDurable(ctx, KeyTerminalName); err != nil {
		return fmt.Errorf("loading terminal name: %w", err)
	}
	if g.terminalPassword, _, err = g.store.GetDurable(ctx, KeyTerminalPassword); err != nil {
		return fmt.Errorf("loading terminal password: %w", err)
	}

	isAdmin, _, err := g.store.GetSession(ctx, SessionKeyAdmin)
	if err != nil {
		return fmt.Errorf("loading admin session flag: %w", err)
	}
	if isAdmin == "true" {
		g.isAdmin = true
		g.state = StateAdminSession
	} else {
		g.state = StateActivatedIdle
	}

	slog.Info("auth gate loaded", "state", g.state.String(), "terminal", g.terminalName)
	return nil
}

// AdminLogin checks the shared administrator secret. On a fresh terminal it
// moves to configuration; on an activated one it opens an admin session.
// A mismatch leaves the state untouched.
func (g *Gate) AdminLogin(ctx context.Context, password string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case StateAdminAuthenticating, StateActivatedIdle:
	default:
		return fmt.Errorf("admin login not allowed in state %s", g.state)
	}

	if bcrypt.CompareHashAndPassword(g.adminDigest, []byte(password)) != nil {
		return ErrInvalidAdminPassword
	}

	if !g.activated {
		g.state = StateAdminConfiguring
		return nil
	}
	return g.grantAdminLocked(ctx)
}

// Configure completes the one-time activation: terminal display name,
// terminal password and the gateway credential, all required. Persists them
// durably along with the activation flag and opens an admin session.
func (g *Gate) Configure(ctx context.Context, terminalName, terminalPassword, apiKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateAdminConfiguring {
		return fmt.Errorf("configuration not allowed in state %s", g.state)
	}
	if terminalName == "" || terminalPassword == "" || apiKey == "" {
		return ErrFieldsRequired
	}

	pairs := map[string]string{
		KeyTerminalName:     terminalName,
		KeyTerminalPassword: terminalPassword,
		KeyAPIKey:           apiKey,
		KeyActivated:        "true",
	}
	for key, value := range pairs {
		if err := g.store.SetDurable(ctx, key, value); err != nil {
			return fmt.Errorf("persisting %s: %w", key, err)
		}
	}

	g.terminalName = terminalName
	g.terminalPassword = terminalPassword
	g.apiKey = apiKey
	g.activated = true

	slog.Info("terminal activated", "terminal", terminalName)
	return g.grantAdminLocked(ctx)
}

// TeacherLogin checks the durable terminal password and opens a non-admin
// session. Mismatch is recoverable, with no attempt counting.
func (g *Gate) TeacherLogin(_ context.Context, password string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateActivatedIdle {
		return fmt.Errorf("teacher login not allowed in state %s", g.state)
	}
	if password != g.terminalPassword {
		return ErrInvalidPassword
	}
	g.state = StateTeacherSession
	return nil
}

// Logout ends the current session. It clears only the session-scoped admin
// role; activation and credentials stay durable. Logout is not deactivation.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case StateAdminSession, StateTeacherSession:
	default:
		return fmt.Errorf("logout not allowed in state %s", g.state)
	}

	if g.isAdmin {
		if err := g.store.DeleteSession(ctx, SessionKeyAdmin); err != nil {
			return fmt.Errorf("clearing admin session: %w", err)
		}
		g.isAdmin = false
	}
	g.state = StateActivatedIdle
	return nil
}

func (g *Gate) grantAdminLocked(ctx context.Context) error {
	if err := g.store.SetSession(ctx, SessionKeyAdmin, "true"); err != nil {
		return fmt.Errorf("granting admin session: %w", err)
	}
	g.isAdmin = true
	g.state = StateAdminSession
	return nil
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsAdmin reports whether the current session holds the admin role.
func (g *Gate) IsAdmin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isAdmin
}

// IsActivated reports whether one-time setup has completed.
func (g *Gate) IsActivated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activated
}

// APIKey returns the stored gateway credential ("" before activation).
func (g *Gate) APIKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apiKey
}

// TerminalName returns the configured display name.
func (g *Gate) TerminalName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.terminalName
}
