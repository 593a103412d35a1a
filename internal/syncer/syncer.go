// Package syncer implements the Sup message synchronization loop.
//
// A Syncer polls the chat panel snapshot on a recurring timer, filters each
// snapshot through its dedup state and relevance rules, and emits one sync
// event per new relevant message. Failures inside a single poll cycle are
// logged and contained; the loop keeps running until stopped.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fernwick/supbridge/internal/credentials"
	"github.com/fernwick/supbridge/internal/models"
	"github.com/fernwick/supbridge/internal/scheduler"
	"github.com/robfig/cron/v3"
)

// DefaultPollInterval is used when no poll interval is configured.
const DefaultPollInterval = 5000 * time.Millisecond

// State describes the sync loop lifecycle.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// SnapshotFetcher is the slice of the Sup client the loop depends on.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (models.ChatSnapshot, error)
}

// ClientFactory builds a snapshot fetcher once the session token has been
// loaded. The session is loaded at most once per loop start and the fetcher
// uses it unchanged for every request it issues.
type ClientFactory func(session string) (SnapshotFetcher, error)

// Opts holds configuration options for a Syncer.
type Opts struct {
	CredentialPath string
	PollInterval   time.Duration
	SelfID         string
	SeenCapacity   int
	Sink           EventSink
	Factory        ClientFactory
}

// Option defines a configuration option for a Syncer.
type Option func(*Opts)

// WithCredentialPath sets the path of the auth session token file.
func WithCredentialPath(path string) Option {
	return func(o *Opts) {
		o.CredentialPath = path
	}
}

// WithPollInterval sets the delay between poll cycles.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Opts) {
		o.PollInterval = interval
	}
}

// WithSelfID sets the identity used for mention relevance and for
// suppressing echoes of the bridge's own messages.
func WithSelfID(selfID string) Option {
	return func(o *Opts) {
		o.SelfID = selfID
	}
}

// WithSeenCapacity bounds the dedup set; 0 means unbounded.
func WithSeenCapacity(capacity int) Option {
	return func(o *Opts) {
		o.SeenCapacity = capacity
	}
}

// WithSink sets the sink receiving emitted events.
func WithSink(sink EventSink) Option {
	return func(o *Opts) {
		o.Sink = sink
	}
}

// WithClientFactory sets the factory building the snapshot fetcher at start.
func WithClientFactory(factory ClientFactory) Option {
	return func(o *Opts) {
		o.Factory = factory
	}
}

// Syncer owns one synchronization loop: its session, dedup state, timer, and
// lifecycle. Independent Syncer instances share nothing.
type Syncer struct {
	credentialPath string
	pollInterval   time.Duration
	selfID         string
	sink           EventSink
	factory        ClientFactory

	// mu guards state, seen, sched, and entry. cycleMu serializes poll
	// cycles: at most one fetch-and-process cycle runs at a time.
	mu      sync.Mutex
	cycleMu sync.Mutex
	state   State
	seen    *SeenSet
	fetcher SnapshotFetcher
	sched   *scheduler.Scheduler
	entry   cron.EntryID
}

// NewSyncer creates a stopped Syncer, applying any provided options.
func NewSyncer(opts ...Option) *Syncer {
	cfg := Opts{PollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	sink := cfg.Sink
	if sink == nil {
		sink = MultiSink(nil)
	}
	return &Syncer{
		credentialPath: cfg.CredentialPath,
		pollInterval:   cfg.PollInterval,
		selfID:         cfg.SelfID,
		sink:           sink,
		factory:        cfg.Factory,
		state:          StateStopped,
		seen:           NewSeenSet(cfg.SeenCapacity),
	}
}

// Start loads the session credential, drains the current backlog with one
// synchronous poll cycle, and arms the recurring timer. A credential or
// client construction failure aborts the whole start; the loop stays
// stopped. Starting an already-running loop is an error.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return fmt.Errorf("syncer already started (state %s)", s.state)
	}
	s.state = StateStarting
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return err
	}

	if s.factory == nil {
		return fail(models.ErrNotConfigured)
	}
	session, err := credentials.Load(s.credentialPath)
	if err != nil {
		return fail(fmt.Errorf("load auth session: %w", err))
	}
	fetcher, err := s.factory(session)
	if err != nil {
		return fail(fmt.Errorf("build sup client: %w", err))
	}
	s.mu.Lock()
	s.fetcher = fetcher
	s.mu.Unlock()

	// Drain the current backlog before the timer is armed.
	s.runCycle(ctx)

	sched := scheduler.NewScheduler()
	entry, err := sched.AddIntervalJob(s.pollInterval, func() {
		s.runCycle(ctx)
	})
	if err != nil {
		sched.Stop()
		return fail(fmt.Errorf("schedule poll job: %w", err))
	}

	s.mu.Lock()
	s.sched = sched
	s.entry = entry
	s.state = StateRunning
	s.mu.Unlock()

	slog.Info("Sup sync loop started", "poll_interval", s.pollInterval, "self_id_set", s.selfID != "")
	return nil
}

// Stop cancels the poll timer and waits for an in-flight cycle to finish.
// Stopping an already-stopped loop is a no-op.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		slog.Debug("Syncer Stop is a no-op", "state", state)
		return
	}
	s.state = StateStopping
	sched := s.sched
	entry := s.entry
	s.sched = nil
	s.mu.Unlock()

	if sched != nil {
		sched.RemoveJob(entry)
		sched.Stop()
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	slog.Info("Sup sync loop stopped")
}

// State returns the current lifecycle state.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SeenCount returns the number of message ids currently in the dedup set.
func (s *Syncer) SeenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen.Len()
}

// runCycle performs one fetch-and-process pass. A fetch failure skips the
// whole cycle with the dedup state untouched; nothing in that snapshot was
// examined. Messages are walked in the snapshot's own chat-then-message
// order with no additional sorting.
func (s *Syncer) runCycle(ctx context.Context) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	snapshot, err := s.fetcher.FetchSnapshot(ctx)
	if err != nil {
		slog.Warn("Snapshot fetch failed, skipping cycle", "error", err)
		return
	}

	emitted := 0
	for _, chat := range snapshot.Chats {
		for _, msg := range chat.Messages {
			if msg.ID == "" {
				continue
			}
			s.mu.Lock()
			fresh := s.seen.Mark(msg.ID)
			s.mu.Unlock()
			if !fresh {
				continue
			}
			if s.selfID != "" && msg.SenderID == s.selfID {
				// Echoes of our own sends are new ids but never relevant.
				slog.Debug("Skipping self-sent message", "message_id", msg.ID)
				continue
			}
			isDM := chat.IsDirect()
			if !isDM && !msg.MentionsIdentity(s.selfID) {
				continue
			}
			chatID := chat.ID
			if chatID == "" {
				chatID = msg.ChatID
			}
			s.sink.HandleSyncEvent(models.SyncEvent{
				Channel:   models.ChannelSup,
				ChatID:    chatID,
				MessageID: msg.ID,
				SenderID:  msg.SenderID,
				Text:      msg.Content,
				IsDM:      isDM,
				Mentions:  msg.Mentions,
			})
			emitted++
		}
	}
	slog.Debug("Sync cycle complete", "chat_count", len(snapshot.Chats), "emitted", emitted)
}
