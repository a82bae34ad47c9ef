// ABOUTME: Badge aggregator combining the four pending-count streams into one label
// ABOUTME: Empty label at zero, decimal total otherwise, fixed background color

package badge

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/keyfold/walletd/internal/notify"
	"github.com/keyfold/walletd/internal/platform"
)

// Color is the fixed badge background color.
const Color = "#506F8B"

// CountSource exposes the controller's current pending counts.
type CountSource interface {
	PendingCounts() (tx, msg, personal, typed int)
}

// Subscriber provides the count-changed notification streams.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan notify.Event, string)
}

// Aggregator recomputes the badge whenever any pending count changes.
// It keeps no state of its own; rendering the same counts twice is a
// no-op beyond re-issuing the same render calls.
type Aggregator struct {
	counts   CountSource
	surface  platform.Platform
	notifier Subscriber
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(counts CountSource, surface platform.Platform, notifier Subscriber, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		counts:   counts,
		surface:  surface,
		notifier: notifier,
		logger:   logger.With("component", "badge"),
	}
}

// Run subscribes to all four count topics and re-renders on every
// notification until ctx is cancelled. The initial render happens
// immediately.
func (a *Aggregator) Run(ctx context.Context) {
	topics := []string{
		notify.TopicTxCount,
		notify.TopicMsgCount,
		notify.TopicPersonalCount,
		notify.TopicTypedCount,
	}

	merged := make(chan notify.Event, 16)
	for _, topic := range topics {
		ch, _ := a.notifier.Subscribe(ctx, topic)
		go func(ch <-chan notify.Event) {
			for ev := range ch {
				select {
				case merged <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	a.Render()

	for {
		select {
		case <-ctx.Done():
			return
		case <-merged:
			a.Render()
		}
	}
}

// Render reads the current counts and updates the badge.
func (a *Aggregator) Render() {
	tx, msg, personal, typed := a.counts.PendingCounts()
	total := tx + msg + personal + typed

	label := ""
	if total > 0 {
		label = strconv.Itoa(total)
	}

	a.surface.SetBadgeText(label)
	a.surface.SetBadgeColor(Color)
}
