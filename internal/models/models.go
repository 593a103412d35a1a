// Package models defines the core data structures for supbridge.
//
// It includes the chat snapshot types fetched from the Sup service, the sync
// events surfaced to downstream consumers, and the shared error variables used
// across modules.
package models

import (
	"errors"
	"time"
)

// ChannelSup identifies the Sup chat channel on emitted events.
const ChannelSup = "sup"

// ChatType describes how a chat is shared between participants.
type ChatType string

const (
	// ChatTypeDirect is a one-on-one chat; every message in it is relevant.
	ChatTypeDirect ChatType = "direct"
	// ChatTypeGroup is a multi-party chat; only messages mentioning the
	// configured identity are relevant.
	ChatTypeGroup ChatType = "group"
)

// Validation constants for input validation
const (
	// MaxMessageBodyLength defines the maximum allowed length for outbound message text
	MaxMessageBodyLength = 4096
)

// Error variables for better error handling and testability
var (
	ErrNotConfigured      = errors.New("sup bridge is not configured")
	ErrEmptyChatID        = errors.New("chat id cannot be empty")
	ErrEmptyMessageBody   = errors.New("message body cannot be empty")
	ErrMessageBodyTooLong = errors.New("message body exceeds maximum length")
	ErrMissingBaseURL     = errors.New("base URL is required")
	ErrMissingSession     = errors.New("auth session token is required")
)

// Message is a single chat message as observed in a snapshot. IDs are stable
// across polls; everything else is carried through unmodified.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	Mentions  []string  `json:"mentions,omitempty"`
}

// MentionsIdentity reports whether the message mentions the given identity.
// An empty identity never matches.
func (m Message) MentionsIdentity(identity string) bool {
	if identity == "" {
		return false
	}
	for _, mention := range m.Mentions {
		if mention == identity {
			return true
		}
	}
	return false
}

// Chat is one chat and its currently visible messages, in snapshot order.
type Chat struct {
	ID       string    `json:"id"`
	Type     ChatType  `json:"type"`
	Messages []Message `json:"messages"`
}

// IsDirect reports whether the chat is a one-on-one conversation.
func (c Chat) IsDirect() bool {
	return c.Type == ChatTypeDirect
}

// ChatSnapshot is one point-in-time fetch of all chats and their visible
// messages.
type ChatSnapshot struct {
	Chats []Chat `json:"chats"`
}

// SyncEvent is emitted once per new relevant message. It is immutable and
// handed off to the sink without acknowledgment.
type SyncEvent struct {
	Channel   string   `json:"channel"`
	ChatID    string   `json:"chat_id"`
	MessageID string   `json:"message_id"`
	SenderID  string   `json:"sender_id"`
	Text      string   `json:"text"`
	IsDM      bool     `json:"is_dm"`
	Mentions  []string `json:"mentions,omitempty"`
}

// EventRecord is a journaled SyncEvent as stored by the event store.
type EventRecord struct {
	ID         string    `json:"id"`
	Event      SyncEvent `json:"event"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StatusType represents the outcome of an outbound send attempt.
type StatusType string

const (
	// StatusTypeSent indicates the message was accepted by the Sup service.
	StatusTypeSent StatusType = "sent"
	// StatusTypeFailed indicates the send attempt failed.
	StatusTypeFailed StatusType = "failed"
)

// SendReceipt records one outbound send attempt for diagnostics.
type SendReceipt struct {
	ChatID       string     `json:"chat_id"`
	OptimisticID string     `json:"optimistic_id"`
	Status       StatusType `json:"status"`
	Time         int64      `json:"time"`
}

// SendResult is the structured outcome of a sendText call. Failures are
// reported in-band; the send boundary never raises.
type SendResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ValidateOutbound checks an outbound message before it is submitted.
func ValidateOutbound(chatID, text string) error {
	if chatID == "" {
		return ErrEmptyChatID
	}
	if text == "" {
		return ErrEmptyMessageBody
	}
	if len(text) > MaxMessageBodyLength {
		return ErrMessageBodyTooLong
	}
	return nil
}
