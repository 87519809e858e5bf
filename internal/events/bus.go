// ABOUTME: In-memory tool call event bus with bounded history and live fan-out
// ABOUTME: Subscribers receive events non-blocking; slow subscribers drop

package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// historyLimit caps retained events; older entries fall off the end.
	historyLimit = 100

	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// ToolCallEvent records one tool execution.
type ToolCallEvent struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	ToolName   string         `json:"tool_name"`
	ProjectID  string         `json:"project_id"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Success    bool           `json:"success"`
	Content    string         `json:"content,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// Bus retains the most recent tool call events and fans new ones out to
// live subscribers.
type Bus struct {
	mu          sync.RWMutex
	history     []*ToolCallEvent
	subscribers map[string]chan *ToolCallEvent
	logger      *slog.Logger
}

// NewBus creates an empty bus. Pass nil logger for default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string]chan *ToolCallEvent),
		logger:      logger.With("component", "events"),
	}
}

// Record stores the event as the newest history entry and delivers it to
// every subscriber. Non-blocking: events are dropped for subscribers whose
// channels are full.
func (b *Bus) Record(event *ToolCallEvent) {
	b.mu.Lock()
	b.history = append([]*ToolCallEvent{event}, b.history...)
	if len(b.history) > historyLimit {
		b.history = b.history[:historyLimit]
	}
	targets := make([]chan *ToolCallEvent, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber", "event_id", event.ID)
		}
	}
}

// History returns retained events, newest first.
func (b *Bus) History() []*ToolCallEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*ToolCallEvent, len(b.history))
	copy(out, b.history)
	return out
}

// Subscribe registers for live events. The subscription is cleaned up when
// ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context) <-chan *ToolCallEvent {
	subID := uuid.NewString()
	ch := make(chan *ToolCallEvent, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.unsubscribe(subID)
	}()

	return ch
}

func (b *Bus) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}
}
