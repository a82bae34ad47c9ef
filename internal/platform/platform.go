// ABOUTME: Host platform abstraction: badge rendering and the popup surface
// ABOUTME: Local implementation keeps badge state in memory and spawns UI via a command

package platform

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
)

// Platform is the host surface walletd renders into.
type Platform interface {
	SetBadgeText(text string)
	SetBadgeColor(color string)
	ShowPopup() error
}

// Badge is the currently rendered badge, exposed for the /badge endpoint.
type Badge struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// Local implements Platform for a standalone daemon. The badge is held in
// memory for status queries; the popup surface is an external command
// (typically the wallet UI launcher) run fire-and-forget.
type Local struct {
	popupCommand []string
	logger       *slog.Logger

	mu    sync.Mutex
	badge Badge
}

// NewLocal creates a Local platform. popupCommand may be empty, in which
// case ShowPopup only logs.
func NewLocal(popupCommand []string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{
		popupCommand: popupCommand,
		logger:       logger.With("component", "platform"),
	}
}

// SetBadgeText implements Platform.
func (l *Local) SetBadgeText(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.badge.Text = text
}

// SetBadgeColor implements Platform.
func (l *Local) SetBadgeColor(color string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.badge.Color = color
}

// CurrentBadge returns the last rendered badge.
func (l *Local) CurrentBadge() Badge {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.badge
}

// ShowPopup surfaces the wallet UI.
func (l *Local) ShowPopup() error {
	if len(l.popupCommand) == 0 {
		l.logger.Info("popup requested (no popup command configured)")
		return nil
	}

	cmd := exec.CommandContext(context.Background(), l.popupCommand[0], l.popupCommand[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	l.logger.Info("popup surface launched", "pid", cmd.Process.Pid)

	// Reap the child; the popup's exit status is not walletd's concern.
	go cmd.Wait()
	return nil
}
