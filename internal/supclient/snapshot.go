package supclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/fernwick/supbridge/internal/models"
)

// chatPanelDataPath is the tRPC loader endpoint serving the chat panel snapshot.
const chatPanelDataPath = "/api/trpc/loader.chatPanelData"

// FetchSnapshot retrieves the current chat panel snapshot. The remote schema
// is not contractually guaranteed, so the response is decoded tolerantly:
// any missing or malformed level maps to "no chats/messages this tick" rather
// than an error. Only request-layer failures are returned.
func (c *Client) FetchSnapshot(ctx context.Context) (models.ChatSnapshot, error) {
	raw, err := c.Request(ctx, chatPanelDataPath, nil)
	if err != nil {
		return models.ChatSnapshot{}, err
	}
	snapshot := decodeSnapshot(raw)
	slog.Debug("Chat panel snapshot fetched", "chat_count", len(snapshot.Chats))
	return snapshot, nil
}

// decodeSnapshot maps the untyped chat panel response onto the snapshot
// model. All defensive navigation of the loose response shape lives here;
// the sync loop only ever sees well-formed (possibly empty) snapshots.
func decodeSnapshot(raw any) models.ChatSnapshot {
	root := asMap(raw)
	result := asMap(root["result"])
	data := asMap(result["data"])
	rawChats := asSlice(data["chats"])

	var snapshot models.ChatSnapshot
	for _, rawChat := range rawChats {
		chatMap := asMap(rawChat)
		if chatMap == nil {
			continue
		}
		chat := models.Chat{
			ID:   asString(chatMap["id"]),
			Type: models.ChatType(asString(chatMap["type"])),
		}
		for _, rawMsg := range asSlice(chatMap["messages"]) {
			msgMap := asMap(rawMsg)
			if msgMap == nil {
				continue
			}
			msg := models.Message{
				ID:        asString(msgMap["id"]),
				ChatID:    asString(msgMap["chatId"]),
				SenderID:  asString(msgMap["senderId"]),
				Content:   asString(msgMap["content"]),
				CreatedAt: asTime(msgMap["createdAt"]),
				Mentions:  asMentions(msgMap["mentions"]),
			}
			if msg.ChatID == "" {
				msg.ChatID = chat.ID
			}
			chat.Messages = append(chat.Messages, msg)
		}
		snapshot.Chats = append(snapshot.Chats, chat)
	}
	return snapshot
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// asMentions accepts both plain identity strings and mention objects carrying
// an "id" field; anything else decodes as no mention.
func asMentions(v any) []string {
	var mentions []string
	for _, item := range asSlice(v) {
		switch mention := item.(type) {
		case string:
			if mention != "" {
				mentions = append(mentions, mention)
			}
		case map[string]any:
			if id := asString(mention["id"]); id != "" {
				mentions = append(mentions, id)
			}
		}
	}
	return mentions
}
