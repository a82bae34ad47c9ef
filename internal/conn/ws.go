// ABOUTME: WebSocket listener that turns inbound upgrades into Channels
// ABOUTME: Channel name comes from the query string, remote URL from the Origin header

package conn

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// wsChannel adapts a websocket connection to the Channel interface.
type wsChannel struct {
	id        string
	name      string
	remoteURL string
	ws        *websocket.Conn

	done     chan struct{}
	doneOnce sync.Once
}

func newWSChannel(name, remoteURL string, ws *websocket.Conn) *wsChannel {
	return &wsChannel{
		id:        uuid.New().String(),
		name:      name,
		remoteURL: remoteURL,
		ws:        ws,
		done:      make(chan struct{}),
	}
}

func (c *wsChannel) ID() string        { return c.id }
func (c *wsChannel) Name() string      { return c.name }
func (c *wsChannel) RemoteURL() string { return c.remoteURL }

func (c *wsChannel) Send(ctx context.Context, payload []byte) error {
	return c.ws.Write(ctx, websocket.MessageText, payload)
}

func (c *wsChannel) Receive(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		c.markDone()
		return nil, err
	}
	return data, nil
}

func (c *wsChannel) Done() <-chan struct{} {
	return c.done
}

func (c *wsChannel) Close(reason string) error {
	c.markDone()
	return c.ws.Close(websocket.StatusNormalClosure, reason)
}

func (c *wsChannel) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Listener accepts WebSocket upgrades and feeds the resulting channels to
// the multiplexer. It implements http.Handler for mounting at /connect.
type Listener struct {
	mux    *Multiplexer
	logger *slog.Logger
}

// NewListener creates a Listener dispatching to the given multiplexer.
func NewListener(mux *Multiplexer, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		mux:    mux,
		logger: logger.With("component", "listener"),
	}
}

// ServeHTTP upgrades the request and hands the channel to the multiplexer.
// The declared channel name is the "name" query parameter; the remote URL
// is the Origin header. A failed channel never takes down the listener.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing name parameter", http.StatusBadRequest)
		return
	}
	origin := r.Header.Get("Origin")

	// Origin-based access control belongs to the controller, not the
	// transport, so cross-origin upgrades are accepted here.
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		l.logger.Warn("websocket accept failed", "error", err)
		return
	}

	ch := newWSChannel(name, origin, ws)
	if err := l.mux.HandleConnect(ch); err != nil {
		l.logger.Warn("channel dispatch failed",
			"channel_id", ch.ID(),
			"name", name,
			"error", err,
		)
	}
}
