// ABOUTME: Tests for per-channel request serving
// ABOUTME: Covers trusted/untrusted method sets, origin stamping, and state pushes

package wallet

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeChannel is an in-memory conn.Channel for controller tests.
type pipeChannel struct {
	id       string
	name     string
	inbound  chan []byte
	outbound chan []byte
	done     chan struct{}
	once     sync.Once
}

func newPipeChannel(name string) *pipeChannel {
	return &pipeChannel{
		id:       "pipe-" + name,
		name:     name,
		inbound:  make(chan []byte, 16),
		outbound: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

func (p *pipeChannel) ID() string        { return p.id }
func (p *pipeChannel) Name() string      { return p.name }
func (p *pipeChannel) RemoteURL() string { return "" }

func (p *pipeChannel) Send(ctx context.Context, payload []byte) error {
	select {
	case p.outbound <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case payload := <-p.inbound:
		return payload, nil
	case <-p.done:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pipeChannel) Done() <-chan struct{} { return p.done }

func (p *pipeChannel) Close(reason string) error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// call sends a request frame and decodes the next response frame that
// carries its ID (skipping pushes).
func (p *pipeChannel) call(t *testing.T, id, method string, params any) response {
	t.Helper()

	req := request{ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(t, err)
		req.Params = raw
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	p.inbound <- payload

	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-p.outbound:
			var resp response
			require.NoError(t, json.Unmarshal(frame, &resp))
			if resp.ID == id {
				return resp
			}
		case <-deadline:
			t.Fatalf("no response for %s", method)
		}
	}
}

func TestTrusted_GetState(t *testing.T) {
	c := New(Options{InitState: map[string]any{"preferences": map[string]any{"locale": "en"}}})
	ch := newPipeChannel("popup")
	defer ch.Close("test done")

	c.SetupTrustedCommunication(ch, "wallet-provider")

	resp := ch.call(t, "1", "getState", nil)
	require.Empty(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.Equal(t, false, result["locked"])
	state := result["state"].(map[string]any)
	assert.Contains(t, state, "preferences")
}

func TestTrusted_UnlockFlow(t *testing.T) {
	c := New(Options{InitState: map[string]any{}})
	ch := newPipeChannel("popup")
	defer ch.Close("test done")

	c.SetupTrustedCommunication(ch, "wallet-provider")

	resp := ch.call(t, "1", "setPassword", map[string]any{"password": "pw"})
	require.Empty(t, resp.Error)

	resp = ch.call(t, "2", "lock", nil)
	require.Empty(t, resp.Error)
	assert.True(t, c.Locked())

	resp = ch.call(t, "3", "unlock", map[string]any{"password": "wrong"})
	assert.Equal(t, ErrBadPassword.Error(), resp.Error)

	resp = ch.call(t, "4", "unlock", map[string]any{"password": "pw"})
	require.Empty(t, resp.Error)
	assert.False(t, c.Locked())
}

func TestUntrusted_OriginStamped(t *testing.T) {
	c := New(Options{InitState: map[string]any{}})
	ch := newPipeChannel("dapp-provider")
	defer ch.Close("test done")

	c.SetupUntrustedCommunication(ch, "dapp.example")

	resp := ch.call(t, "1", "requestTransaction", map[string]any{"to": "0xabc", "value": "5"})
	require.Empty(t, resp.Error)
	require.IsType(t, "", resp.Result)

	pending := c.PendingTransactions()
	require.Len(t, pending, 1)
	assert.Equal(t, "dapp.example", pending[0].Origin)
	assert.Equal(t, "0xabc", pending[0].To)
}

func TestUntrusted_CannotUseTrustedMethods(t *testing.T) {
	c := New(Options{InitState: map[string]any{}})
	ch := newPipeChannel("dapp-provider")
	defer ch.Close("test done")

	c.SetupUntrustedCommunication(ch, "dapp.example")

	resp := ch.call(t, "1", "approveTransaction", map[string]any{"id": "x"})
	assert.Contains(t, resp.Error, "unknown method")
}

func TestUntrusted_SignRequestKinds(t *testing.T) {
	c := New(Options{InitState: map[string]any{}})
	ch := newPipeChannel("dapp-provider")
	defer ch.Close("test done")

	c.SetupUntrustedCommunication(ch, "dapp.example")

	require.Empty(t, ch.call(t, "1", "signMessage", map[string]any{"payload": "aa"}).Error)
	require.Empty(t, ch.call(t, "2", "signPersonalMessage", map[string]any{"payload": "bb"}).Error)
	require.Empty(t, ch.call(t, "3", "signTypedData", map[string]any{"payload": "{}"}).Error)

	_, msg, personal, typed := c.PendingCounts()
	assert.Equal(t, 1, msg)
	assert.Equal(t, 1, personal)
	assert.Equal(t, 1, typed)
}

func TestTrusted_ReceivesStatePush(t *testing.T) {
	c := New(Options{InitState: map[string]any{}})
	ch := newPipeChannel("popup")
	defer ch.Close("test done")

	c.SetupTrustedCommunication(ch, "wallet-provider")

	c.UpdatePreferences(map[string]any{"locale": "sv"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-ch.outbound:
			var p push
			require.NoError(t, json.Unmarshal(frame, &p))
			if p.Method != "stateChanged" {
				continue
			}
			params := p.Params.(map[string]any)
			prefs := params["preferences"].(map[string]any)
			assert.Equal(t, "sv", prefs["locale"])
			return
		case <-deadline:
			t.Fatal("no stateChanged push")
		}
	}
}

func TestServe_MalformedFrame(t *testing.T) {
	c := New(Options{InitState: map[string]any{}})
	ch := newPipeChannel("dapp-provider")
	defer ch.Close("test done")

	c.SetupUntrustedCommunication(ch, "dapp.example")

	ch.inbound <- []byte("{not json")

	select {
	case frame := <-ch.outbound:
		var resp response
		require.NoError(t, json.Unmarshal(frame, &resp))
		assert.Equal(t, "malformed request", resp.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("no error response")
	}
}
