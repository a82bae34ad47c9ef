// ABOUTME: Multiplexer that classifies inbound channels as trusted or untrusted
// ABOUTME: Dispatches each to the controller and tracks popup surface liveness

package conn

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
)

// Internal surface names on the trusted allow-list.
const (
	// SurfacePopup is the singleton primary UI surface. Its liveness is
	// tracked so the popup trigger never opens a second one.
	SurfacePopup = "popup"

	// SurfaceNotification is the secondary notification surface.
	SurfaceNotification = "notification"
)

// ProtocolLabel tags trusted channels handed to the controller.
const ProtocolLabel = "wallet-provider"

// ErrBadOrigin indicates an untrusted channel's remote URL could not be
// reduced to an origin domain. The failure is scoped to that one channel.
var ErrBadOrigin = errors.New("cannot derive origin from remote url")

// Controller is the wallet-side endpoint channels are dispatched to.
type Controller interface {
	SetupTrustedCommunication(ch Channel, protocol string)
	SetupUntrustedCommunication(ch Channel, originDomain string)
}

// Multiplexer routes every inbound channel to the controller, classifying
// by declared name. It owns the popup-liveness flag; PopupOpen is the only
// way to read it.
type Multiplexer struct {
	controller Controller
	logger     *slog.Logger

	mu        sync.Mutex
	popupOpen bool
}

// NewMultiplexer creates a Multiplexer dispatching to the given controller.
func NewMultiplexer(controller Controller, logger *slog.Logger) *Multiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multiplexer{
		controller: controller,
		logger:     logger.With("component", "mux"),
	}
}

// HandleConnect classifies and dispatches one inbound channel. A returned
// error is scoped to that channel; the caller keeps listening.
func (m *Multiplexer) HandleConnect(ch Channel) error {
	switch ch.Name() {
	case SurfacePopup:
		m.setPopupOpen(true)
		go m.watchPopup(ch)
		m.logger.Info("popup surface connected", "channel_id", ch.ID())
		m.controller.SetupTrustedCommunication(ch, ProtocolLabel)
		return nil

	case SurfaceNotification:
		m.logger.Info("notification surface connected", "channel_id", ch.ID())
		m.controller.SetupTrustedCommunication(ch, ProtocolLabel)
		return nil

	default:
		origin, err := originDomain(ch.RemoteURL())
		if err != nil {
			m.logger.Warn("rejecting channel with bad origin",
				"channel_id", ch.ID(),
				"remote_url", ch.RemoteURL(),
				"error", err,
			)
			ch.Close("bad origin")
			return err
		}
		m.logger.Info("external channel connected",
			"channel_id", ch.ID(),
			"origin", origin,
		)
		m.controller.SetupUntrustedCommunication(ch, origin)
		return nil
	}
}

// PopupOpen reports whether the singleton popup surface is currently
// connected.
func (m *Multiplexer) PopupOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.popupOpen
}

func (m *Multiplexer) setPopupOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.popupOpen = open
}

// watchPopup clears the popup flag when this specific channel disconnects.
// Other trusted channels never touch the flag.
func (m *Multiplexer) watchPopup(ch Channel) {
	<-ch.Done()
	m.setPopupOpen(false)
	m.logger.Info("popup surface disconnected", "channel_id", ch.ID())
}

// originDomain reduces a remote URL to its hostname. Scheme, path, and
// query are discarded.
func originDomain(remoteURL string) (string, error) {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadOrigin, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrBadOrigin, remoteURL)
	}
	return host, nil
}
