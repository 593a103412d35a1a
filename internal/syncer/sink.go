package syncer

import (
	"log/slog"
	"time"

	"github.com/fernwick/supbridge/internal/models"
	"github.com/fernwick/supbridge/internal/store"
)

// Constants for channel sink configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for the event channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel emits
	DefaultChannelTimeout = 1 * time.Second
)

// EventSink receives emitted sync events. Calls are synchronous and
// fire-and-forget from the loop's perspective: no acknowledgment is awaited
// before the loop continues to the next message.
type EventSink interface {
	HandleSyncEvent(event models.SyncEvent)
}

// ChannelSink exposes emitted events on a buffered channel for downstream
// consumers. Emits never block the sync loop: if the consumer falls behind
// for longer than the timeout, the event is dropped with a warning.
type ChannelSink struct {
	events chan models.SyncEvent
}

// Compile-time check that ChannelSink implements EventSink.
var _ EventSink = (*ChannelSink)(nil)

// NewChannelSink creates a ChannelSink with the given buffer size;
// non-positive sizes use the default.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = DefaultChannelBufferSize
	}
	return &ChannelSink{events: make(chan models.SyncEvent, buffer)}
}

func (s *ChannelSink) HandleSyncEvent(event models.SyncEvent) {
	select {
	case s.events <- event:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("ChannelSink events channel blocked, dropping event", "message_id", event.MessageID, "timeout", DefaultChannelTimeout)
	}
}

// Events returns the channel of emitted events.
func (s *ChannelSink) Events() <-chan models.SyncEvent {
	return s.events
}

// StoreSink journals emitted events through a store backend. Journal write
// failures are logged and otherwise ignored; the loop's dedup state has
// already advanced and the event was still delivered to any other sinks.
type StoreSink struct {
	store store.Store
}

var _ EventSink = (*StoreSink)(nil)

// NewStoreSink creates a StoreSink writing to st.
func NewStoreSink(st store.Store) *StoreSink {
	return &StoreSink{store: st}
}

func (s *StoreSink) HandleSyncEvent(event models.SyncEvent) {
	if err := s.store.AddEvent(event); err != nil {
		slog.Error("StoreSink failed to journal event", "error", err, "message_id", event.MessageID)
	}
}

// MultiSink fans one event out to every sink in order.
type MultiSink []EventSink

var _ EventSink = (MultiSink)(nil)

func (m MultiSink) HandleSyncEvent(event models.SyncEvent) {
	for _, sink := range m {
		sink.HandleSyncEvent(event)
	}
}
