// ABOUTME: Popup trigger that opens the UI surface only when none is already open
// ABOUTME: The controller decides when attention is needed; this decides whether to open

package platform

import "log/slog"

// PopupState reports whether the singleton popup surface is currently
// connected. Implemented by the connection multiplexer.
type PopupState interface {
	PopupOpen() bool
}

// Trigger requests the popup surface for user-attention events.
type Trigger struct {
	surface Platform
	state   PopupState
	logger  *slog.Logger
}

// NewTrigger creates a Trigger.
func NewTrigger(surface Platform, state PopupState, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		surface: surface,
		state:   state,
		logger:  logger.With("component", "trigger"),
	}
}

// TriggerUI opens the popup surface unless one is already open.
// Never opens a second popup concurrently.
func (t *Trigger) TriggerUI() {
	if t.state.PopupOpen() {
		return
	}
	if err := t.surface.ShowPopup(); err != nil {
		t.logger.Error("showing popup failed", "error", err)
	}
}
