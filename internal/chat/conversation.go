package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is used until a title can be derived from the first
// user message.
const DefaultTitle = "New chat"

// maxMessages bounds a conversation's history; appending past the cap
// drops the oldest messages first.
const maxMessages = 100

// titleLimit is the number of characters of the first user message
// kept as the conversation title.
const titleLimit = 36

// Conversation is a titled, bounded message history. Timestamps are
// Unix milliseconds.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
	Pinned    bool      `json:"pinned"`
}

func newConversation() *Conversation {
	now := time.Now().UnixMilli()
	return &Conversation{
		ID:        newConversationID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// newConversationID only needs to be unique for the process lifetime;
// a timestamp plus a short random suffix is enough.
func newConversationID() string {
	return fmt.Sprintf("chat_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// deriveTitle builds a conversation title from the first user message,
// truncated to a display-friendly length.
func deriveTitle(messages []Message) string {
	for _, message := range messages {
		if message.Role != RoleUser || message.Content == "" {
			continue
		}
		runes := []rune(message.Content)
		if len(runes) > titleLimit {
			runes = runes[:titleLimit]
		}
		return string(runes)
	}
	return DefaultTitle
}

// firstContent returns the first message's content, used by search.
func (c *Conversation) firstContent() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[0].Content
}
