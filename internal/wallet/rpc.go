// ABOUTME: Per-channel request/response serving for trusted and untrusted callers
// ABOUTME: Trusted surfaces get the full method set plus pushed state snapshots

package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/keyfold/walletd/internal/conn"
	"github.com/keyfold/walletd/internal/notify"
)

// request is one inbound frame on a channel.
type request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the reply to a request.
type response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// push is an unsolicited notification sent to trusted surfaces.
type push struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// handler services one method. Params may be nil.
type handler func(params json.RawMessage) (any, error)

// SetupTrustedCommunication serves a trusted internal surface. The channel
// gets the full method set and pushed state snapshots until it disconnects.
func (c *Controller) SetupTrustedCommunication(ch conn.Channel, protocol string) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-ch.Done()
		cancel()
	}()

	logger := c.logger.With("channel_id", ch.ID(), "protocol", protocol)
	logger.Debug("trusted channel attached")

	events, _ := c.Subscribe(ctx, notify.TopicState)
	go c.pushStateUpdates(ctx, ch, events)
	go c.serve(ctx, ch, c.trustedHandlers())
}

// SetupUntrustedCommunication serves an external caller. Every pending
// item it creates carries its origin domain.
func (c *Controller) SetupUntrustedCommunication(ch conn.Channel, originDomain string) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-ch.Done()
		cancel()
	}()

	c.logger.Debug("untrusted channel attached", "channel_id", ch.ID(), "origin", originDomain)
	go c.serve(ctx, ch, c.untrustedHandlers(originDomain))
}

// serve runs the request loop for one channel. A channel's death ends its
// loop only; errors never propagate past this boundary.
func (c *Controller) serve(ctx context.Context, ch conn.Channel, handlers map[string]handler) {
	for {
		payload, err := ch.Receive(ctx)
		if err != nil {
			return
		}

		var req request
		if err := json.Unmarshal(payload, &req); err != nil {
			c.respond(ctx, ch, response{Error: "malformed request"})
			continue
		}

		h, ok := handlers[req.Method]
		if !ok {
			c.respond(ctx, ch, response{ID: req.ID, Error: fmt.Sprintf("unknown method %q", req.Method)})
			continue
		}

		result, err := h(req.Params)
		if err != nil {
			c.respond(ctx, ch, response{ID: req.ID, Error: err.Error()})
			continue
		}
		c.respond(ctx, ch, response{ID: req.ID, Result: result})
	}
}

func (c *Controller) respond(ctx context.Context, ch conn.Channel, resp response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("encoding response failed", "error", err)
		return
	}
	if err := ch.Send(ctx, payload); err != nil {
		c.logger.Debug("response send failed", "channel_id", ch.ID(), "error", err)
	}
}

// pushStateUpdates forwards state snapshots to a trusted channel until it
// disconnects.
func (c *Controller) pushStateUpdates(ctx context.Context, ch conn.Channel, events <-chan notify.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(push{Method: "stateChanged", Params: ev.State})
			if err != nil {
				continue
			}
			if err := ch.Send(ctx, payload); err != nil {
				return
			}
		}
	}
}

// trustedHandlers is the full method set for internal surfaces.
func (c *Controller) trustedHandlers() map[string]handler {
	return map[string]handler{
		"getState": func(json.RawMessage) (any, error) {
			return map[string]any{"state": c.State(), "locked": c.Locked()}, nil
		},
		"getPending": func(json.RawMessage) (any, error) {
			return map[string]any{
				"transactions": c.PendingTransactions(),
				"messages":     c.PendingSignRequests(SignOpaque),
				"personal":     c.PendingSignRequests(SignPersonal),
				"typed":        c.PendingSignRequests(SignTyped),
			}, nil
		},
		"unlock": func(params json.RawMessage) (any, error) {
			var p struct {
				Password string `json:"password"`
			}
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return nil, c.Unlock(p.Password)
		},
		"lock": func(json.RawMessage) (any, error) {
			c.Lock()
			return nil, nil
		},
		"setPassword": func(params json.RawMessage) (any, error) {
			var p struct {
				Password string `json:"password"`
			}
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return nil, c.SetPassword(p.Password)
		},
		"updatePreferences": func(params json.RawMessage) (any, error) {
			var prefs map[string]any
			if err := unmarshalParams(params, &prefs); err != nil {
				return nil, err
			}
			c.UpdatePreferences(prefs)
			return nil, nil
		},
		"submitTransaction": func(params json.RawMessage) (any, error) {
			var tx PendingTx
			if err := unmarshalParams(params, &tx); err != nil {
				return nil, err
			}
			return c.AddTransaction("", tx), nil
		},
		"approveTransaction": func(params json.RawMessage) (any, error) {
			id, err := paramID(params)
			if err != nil {
				return nil, err
			}
			return nil, c.ResolveTransaction(id, true)
		},
		"rejectTransaction": func(params json.RawMessage) (any, error) {
			id, err := paramID(params)
			if err != nil {
				return nil, err
			}
			return nil, c.ResolveTransaction(id, false)
		},
		"approveSignRequest": func(params json.RawMessage) (any, error) {
			id, kind, err := paramIDKind(params)
			if err != nil {
				return nil, err
			}
			return nil, c.ResolveSignRequest(id, kind, true)
		},
		"rejectSignRequest": func(params json.RawMessage) (any, error) {
			id, kind, err := paramIDKind(params)
			if err != nil {
				return nil, err
			}
			return nil, c.ResolveSignRequest(id, kind, false)
		},
	}
}

// untrustedHandlers is the restricted method set for external callers.
// origin is stamped onto everything the caller creates.
func (c *Controller) untrustedHandlers(origin string) map[string]handler {
	return map[string]handler{
		"requestTransaction": func(params json.RawMessage) (any, error) {
			var tx PendingTx
			if err := unmarshalParams(params, &tx); err != nil {
				return nil, err
			}
			return c.AddTransaction(origin, tx), nil
		},
		"signMessage": func(params json.RawMessage) (any, error) {
			return c.addSignFromParams(origin, SignOpaque, params)
		},
		"signPersonalMessage": func(params json.RawMessage) (any, error) {
			return c.addSignFromParams(origin, SignPersonal, params)
		},
		"signTypedData": func(params json.RawMessage) (any, error) {
			return c.addSignFromParams(origin, SignTyped, params)
		},
		"getLocked": func(json.RawMessage) (any, error) {
			return c.Locked(), nil
		},
	}
}

func (c *Controller) addSignFromParams(origin string, kind SignKind, params json.RawMessage) (any, error) {
	var p struct {
		Payload string `json:"payload"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Payload == "" {
		return nil, errors.New("payload is required")
	}
	return c.AddSignRequest(origin, kind, p.Payload), nil
}

func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return errors.New("params are required")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("malformed params: %w", err)
	}
	return nil
}

func paramID(params json.RawMessage) (string, error) {
	var p struct {
		ID string `json:"id"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", errors.New("id is required")
	}
	return p.ID, nil
}

func paramIDKind(params json.RawMessage) (string, SignKind, error) {
	var p struct {
		ID   string   `json:"id"`
		Kind SignKind `json:"kind"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return "", "", err
	}
	if p.ID == "" {
		return "", "", errors.New("id is required")
	}
	if p.Kind == "" {
		p.Kind = SignOpaque
	}
	return p.ID, p.Kind, nil
}
