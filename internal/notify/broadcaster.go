// ABOUTME: In-memory fan-out broadcaster for controller change notifications
// ABOUTME: Publishes state snapshots and pending-count updates to topic subscribers

package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Topics published by the wallet controller.
const (
	TopicState         = "state"
	TopicTxCount       = "count:tx"
	TopicMsgCount      = "count:msg"
	TopicPersonalCount = "count:personal"
	TopicTypedCount    = "count:typed"
)

// Event is a single notification. State is set for TopicState events;
// Count for the count topics.
type Event struct {
	Topic string
	State map[string]any
	Count int
}

// Broadcaster provides in-memory pub/sub for controller notifications.
// Delivery to each subscriber is FIFO over a buffered channel; slow
// subscribers drop events rather than blocking the publisher.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // topic -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Event),
		logger:      logger.With("component", "notify"),
	}
}

// Subscribe registers a subscriber for events on the given topic. Returns
// the receive channel and a subscription ID. The subscription is cleaned
// up automatically when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, topic string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[topic]; !ok {
		b.subscribers[topic] = make(map[string]chan Event)
	}
	b.subscribers[topic][subID] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.Unsubscribe(topic, subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers of its topic.
// Non-blocking: events are dropped for subscribers whose channels are full.
// The read lock is held across the sends; Unsubscribe closes channels under
// the write lock, so a send can never race a close.
func (b *Broadcaster) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[event.Topic] {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber", "topic", event.Topic)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(topic, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[topic]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	if len(subs) == 0 {
		delete(b.subscribers, topic)
	}
	close(ch)
}
