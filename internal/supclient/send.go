package supclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fernwick/supbridge/internal/models"
	"github.com/fernwick/supbridge/internal/util"
)

// createMessagePath is the tRPC mutation endpoint for posting a chat message.
const createMessagePath = "/api/trpc/chatMessage.create"

// textRun is a single unformatted text run inside a paragraph.
type textRun struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// paragraphNode is one paragraph of a content document.
type paragraphNode struct {
	Type    string    `json:"type"`
	Content []textRun `json:"content"`
}

// contentDoc is the structured document representation the Sup service
// expects alongside the plain-text content field.
type contentDoc struct {
	Type    string          `json:"type"`
	Content []paragraphNode `json:"content"`
}

// singleParagraphDoc wraps text as one paragraph with a single run and no
// formatting marks.
func singleParagraphDoc(text string) contentDoc {
	return contentDoc{
		Type: "doc",
		Content: []paragraphNode{{
			Type:    "paragraph",
			Content: []textRun{{Type: "text", Text: text}},
		}},
	}
}

// createMessageParams is the json payload of the chatMessage.create mutation.
type createMessageParams struct {
	OptimisticID  string     `json:"optimisticId"`
	ChatID        string     `json:"chatId"`
	Content       string     `json:"content"`
	ContentData   contentDoc `json:"contentData"`
	Mentions      []string   `json:"mentions"`
	Attachments   []any      `json:"attachments"`
	IsGenerated   bool       `json:"isGenerated"`
	IsPostComment bool       `json:"isPostComment"`
	Visibility    string     `json:"visibility"`
}

// trpcMeta is the meta envelope tRPC mutations carry.
type trpcMeta struct {
	Values map[string]any `json:"values"`
}

// trpcMutation is the request body shape for tRPC mutation endpoints.
type trpcMutation struct {
	JSON createMessageParams `json:"json"`
	Meta trpcMeta            `json:"meta"`
}

// SendMessage posts a new chat message and returns the generated
// optimisticId. The id is an idempotency hint for the Sup service; it is not
// recorded in the dedup state, so a later snapshot echoing the message back
// looks like any other new id. Failures from the request layer propagate
// verbatim; no retry is attempted.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, mentions []string) (string, error) {
	if err := models.ValidateOutbound(chatID, text); err != nil {
		return "", err
	}
	if mentions == nil {
		mentions = []string{}
	}

	optimisticID := util.GenerateOptimisticID()
	body := trpcMutation{
		JSON: createMessageParams{
			OptimisticID:  optimisticID,
			ChatID:        chatID,
			Content:       text,
			ContentData:   singleParagraphDoc(text),
			Mentions:      mentions,
			Attachments:   []any{},
			IsGenerated:   true,
			IsPostComment: false,
			Visibility:    "public",
		},
		Meta: trpcMeta{Values: map[string]any{}},
	}

	slog.Debug("Sending Sup chat message", "chat_id", chatID, "optimistic_id", optimisticID, "body_length", len(text), "mention_count", len(mentions))
	if _, err := c.Request(ctx, createMessagePath, &RequestOptions{Method: http.MethodPost, Body: body}); err != nil {
		slog.Error("Sup chat message send failed", "error", err, "chat_id", chatID, "optimistic_id", optimisticID)
		return optimisticID, fmt.Errorf("create chat message: %w", err)
	}

	slog.Info("Sup chat message sent", "chat_id", chatID, "optimistic_id", optimisticID)
	return optimisticID, nil
}
