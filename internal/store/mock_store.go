// ABOUTME: Mock Primary implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sync"
)

// Mock is an in-memory Primary implementation for testing.
type Mock struct {
	mu  sync.RWMutex
	env *Envelope

	// GetErr and PutErr, when set, are returned by the corresponding call.
	GetErr error
	PutErr error

	// Puts records every envelope written, in order.
	Puts []*Envelope
}

// NewMock creates an empty Mock store.
func NewMock() *Mock {
	return &Mock{}
}

// Seed sets the stored envelope directly, bypassing PutState bookkeeping.
func (m *Mock) Seed(env *Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.env = env.Clone()
}

// GetState implements Primary.
func (m *Mock) GetState(ctx context.Context) (*Envelope, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.env == nil {
		return nil, ErrNoState
	}
	return m.env.Clone(), nil
}

// PutState implements Primary.
func (m *Mock) PutState(ctx context.Context, env *Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PutErr != nil {
		return m.PutErr
	}
	m.env = env.Clone()
	m.Puts = append(m.Puts, m.env)
	return nil
}

// Close implements Primary.
func (m *Mock) Close() error {
	return nil
}

// PutCount returns the number of envelopes written so far.
// Safe to call while another goroutine is writing.
func (m *Mock) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Puts)
}

// Put returns the i-th written envelope.
func (m *Mock) Put(i int) *Envelope {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Puts[i]
}

// SetGetErr sets the error returned by GetState.
func (m *Mock) SetGetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetErr = err
}
