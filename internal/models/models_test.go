package models

import (
	"strings"
	"testing"
)

func TestMentionsIdentity(t *testing.T) {
	msg := Message{ID: "m1", Mentions: []string{"u1", "u2"}}
	if !msg.MentionsIdentity("u1") {
		t.Error("expected mention of u1 to match")
	}
	if msg.MentionsIdentity("u3") {
		t.Error("expected u3 not to match")
	}
	if msg.MentionsIdentity("") {
		t.Error("empty identity must never match")
	}

	none := Message{ID: "m2"}
	if none.MentionsIdentity("u1") {
		t.Error("message without mentions must not match")
	}
}

func TestIsDirect(t *testing.T) {
	if !(Chat{Type: ChatTypeDirect}).IsDirect() {
		t.Error("direct chat should report IsDirect")
	}
	if (Chat{Type: ChatTypeGroup}).IsDirect() {
		t.Error("group chat should not report IsDirect")
	}
}

func TestValidateOutbound(t *testing.T) {
	tests := []struct {
		name    string
		chatID  string
		text    string
		wantErr error
	}{
		{"valid", "c1", "hello", nil},
		{"empty chat id", "", "hello", ErrEmptyChatID},
		{"empty body", "c1", "", ErrEmptyMessageBody},
		{"body too long", "c1", strings.Repeat("x", MaxMessageBodyLength+1), ErrMessageBodyTooLong},
		{"body at limit", "c1", strings.Repeat("x", MaxMessageBodyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateOutbound(tt.chatID, tt.text); err != tt.wantErr {
				t.Errorf("ValidateOutbound(%q, len %d) = %v, want %v", tt.chatID, len(tt.text), err, tt.wantErr)
			}
		})
	}
}
