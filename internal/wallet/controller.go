// ABOUTME: Wallet controller owning live state, pending work, and lock status
// ABOUTME: Publishes state snapshots and pending-count changes via the broadcaster

package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/keyfold/walletd/internal/notify"
	"github.com/keyfold/walletd/internal/platform"
)

// Controller errors.
var (
	ErrLocked          = errors.New("wallet is locked")
	ErrBadPassword     = errors.New("invalid password")
	ErrNoPassword      = errors.New("no password set")
	ErrPendingNotFound = errors.New("pending item not found")
)

// Options configures a Controller.
type Options struct {
	// InitState is the migrated state produced by the loader. The
	// controller owns it from here on.
	InitState map[string]any

	// Platform is the host surface handle.
	Platform platform.Platform

	// Attention callbacks. The controller decides when attention is
	// needed; the callback decides whether to surface the popup.
	OnUnconfirmedMessage func()
	OnUnlockRequest      func()
	OnUnapprovedTx       func()

	Logger *slog.Logger
}

// Controller is the wallet's central coordinator. All mutations of the
// live state flow through it; every observable change is published on the
// broadcaster for the persistence pipeline and badge aggregator.
type Controller struct {
	mu     sync.RWMutex
	state  map[string]any
	locked bool

	pendingTxs      map[string]*PendingTx
	pendingMsgs     map[string]*SignRequest
	pendingPersonal map[string]*SignRequest
	pendingTyped    map[string]*SignRequest

	broadcaster *notify.Broadcaster
	opts        Options
	logger      *slog.Logger
}

// New constructs a Controller around the loader's initial state.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "wallet")

	state := opts.InitState
	if state == nil {
		state = map[string]any{}
	}

	c := &Controller{
		state:           state,
		locked:          true,
		pendingTxs:      make(map[string]*PendingTx),
		pendingMsgs:     make(map[string]*SignRequest),
		pendingPersonal: make(map[string]*SignRequest),
		pendingTyped:    make(map[string]*SignRequest),
		broadcaster:     notify.NewBroadcaster(logger),
		opts:            opts,
		logger:          logger,
	}

	// A wallet without a password starts unlocked; there is nothing to
	// unlock against.
	if c.passwordHash() == "" {
		c.locked = false
	}

	return c
}

// Subscribe exposes the controller's notification streams.
func (c *Controller) Subscribe(ctx context.Context, topic string) (<-chan notify.Event, string) {
	return c.broadcaster.Subscribe(ctx, topic)
}

// State returns a snapshot of the live state (top-level copy).
func (c *Controller) State() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// PendingCounts returns the four pending-work counts.
func (c *Controller) PendingCounts() (tx, msg, personal, typed int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pendingTxs), len(c.pendingMsgs), len(c.pendingPersonal), len(c.pendingTyped)
}

// Locked reports whether the wallet is locked.
func (c *Controller) Locked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locked
}

// SetPassword sets (or replaces) the wallet password and unlocks.
// Replacing requires the wallet to be unlocked already.
func (c *Controller) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.locked {
		c.mu.Unlock()
		return ErrLocked
	}
	auth, _ := c.state["auth"].(map[string]any)
	if auth == nil {
		auth = map[string]any{}
	}
	auth["passwordHash"] = string(hash)
	c.state["auth"] = auth
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(snapshot)
	return nil
}

// Unlock verifies the password and unlocks the wallet.
func (c *Controller) Unlock(password string) error {
	hash := c.passwordHash()
	if hash == "" {
		return ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrBadPassword
	}

	c.mu.Lock()
	c.locked = false
	c.mu.Unlock()

	c.logger.Info("wallet unlocked")
	return nil
}

// Lock locks the wallet.
func (c *Controller) Lock() {
	c.mu.Lock()
	hasPassword := c.passwordHashLocked() != ""
	if hasPassword {
		c.locked = true
	}
	c.mu.Unlock()

	if hasPassword {
		c.logger.Info("wallet locked")
	}
}

// UpdatePreferences merges the given keys into the preferences
// sub-document.
func (c *Controller) UpdatePreferences(prefs map[string]any) {
	c.mu.Lock()
	current, _ := c.state["preferences"].(map[string]any)
	if current == nil {
		current = map[string]any{}
	}
	for k, v := range prefs {
		current[k] = v
	}
	c.state["preferences"] = current
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.publishState(snapshot)
}

func (c *Controller) passwordHash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.passwordHashLocked()
}

func (c *Controller) passwordHashLocked() string {
	auth, _ := c.state["auth"].(map[string]any)
	if auth == nil {
		return ""
	}
	hash, _ := auth["passwordHash"].(string)
	return hash
}

// snapshotLocked copies the top level of the state map. Callers must hold
// at least the read lock.
func (c *Controller) snapshotLocked() map[string]any {
	snapshot := make(map[string]any, len(c.state))
	for k, v := range c.state {
		snapshot[k] = v
	}
	return snapshot
}

func (c *Controller) publishState(snapshot map[string]any) {
	c.broadcaster.Publish(notify.Event{Topic: notify.TopicState, State: snapshot})
}

// attention fires the given callback, or the unlock callback when the
// wallet is locked (the user has to unlock before they can act anyway).
func (c *Controller) attention(cb func()) {
	if c.Locked() {
		if c.opts.OnUnlockRequest != nil {
			c.opts.OnUnlockRequest()
		}
		return
	}
	if cb != nil {
		cb()
	}
}
