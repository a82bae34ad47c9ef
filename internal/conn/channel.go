// ABOUTME: Channel abstraction for a single duplex connection to one remote endpoint
// ABOUTME: Created on connect, destroyed on remote disconnect, observed via Done

package conn

import "context"

// Channel is an open duplex message connection to exactly one remote
// endpoint. The declared name drives trusted/untrusted classification;
// RemoteURL identifies the caller's origin for untrusted channels.
//
// A channel lives from the inbound connect event until the remote end
// disconnects. Done is closed at disconnect; no other lifetime signal
// exists.
type Channel interface {
	// ID uniquely identifies this channel instance.
	ID() string

	// Name is the name declared by the remote end at connect time.
	Name() string

	// RemoteURL is the URL of the remote endpoint, as reported by the host.
	RemoteURL() string

	// Send transmits one message frame to the remote end.
	Send(ctx context.Context, payload []byte) error

	// Receive blocks until the next message frame arrives.
	Receive(ctx context.Context) ([]byte, error)

	// Done is closed when the remote end disconnects.
	Done() <-chan struct{}

	// Close tears the channel down locally.
	Close(reason string) error
}
