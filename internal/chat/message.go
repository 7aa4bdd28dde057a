package chat

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. Role is "user" or "assistant"; error
// entries shown in the UI are not messages and are never persisted.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
