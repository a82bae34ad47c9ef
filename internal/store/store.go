// ABOUTME: Envelope type and Primary store interface for walletd persistence
// ABOUTME: Defines the versioned state wrapper and the single-slot store contract

package store

import (
	"context"
	"errors"
)

// ErrNoState is returned when the primary slot has never been written.
var ErrNoState = errors.New("no persisted state")

// Envelope is the versioned wrapper persisted to the primary store.
// Version only ever moves forward; Data is replaced wholesale by a
// migration or by the controller's live state, never partially patched.
type Envelope struct {
	Version int            `json:"version"`
	Data    map[string]any `json:"data"`
}

// Clone returns a copy of the envelope with a freshly allocated top-level
// data map. Nested values are shared; callers replace whole keys.
func (e *Envelope) Clone() *Envelope {
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = v
	}
	return &Envelope{Version: e.Version, Data: data}
}

// Primary is the single-slot persistent store holding one Envelope.
// GetState returns ErrNoState when the slot is empty.
type Primary interface {
	GetState(ctx context.Context) (*Envelope, error)
	PutState(ctx context.Context, env *Envelope) error
	Close() error
}
