package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sideai/internal/chat"
)

const timestampLayout = "2006-01-02 15:04:05"

// Document renders a message history as a markdown document: a title
// line with the export time, then one section per message with the
// raw content as the body.
func Document(messages []chat.Message, now time.Time) string {
	sections := []string{fmt.Sprintf("# SideAI Chat - %s", now.Format(timestampLayout))}
	for _, message := range messages {
		sections = append(sections, fmt.Sprintf("## %s", sectionHeading(message.Role)))
		sections = append(sections, message.Content)
	}
	return strings.Join(sections, "\n\n")
}

func sectionHeading(role string) string {
	switch role {
	case chat.RoleUser:
		return "User"
	case chat.RoleAssistant:
		return "Assistant"
	case "":
		return "Message"
	default:
		return role
	}
}

// Filename derives the export file name from the same timestamp shown
// in the title line, with characters unfit for file names replaced.
func Filename(now time.Time) string {
	stamp := strings.NewReplacer(":", "-", " ", "-").Replace(now.Format(timestampLayout))
	return fmt.Sprintf("sideai-chat-%s.md", stamp)
}

// Write renders the document and saves it under dir, returning the
// full path of the written file.
func Write(dir string, messages []chat.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to export")
	}

	now := time.Now()
	path := filepath.Join(dir, Filename(now))
	if err := os.WriteFile(path, []byte(Document(messages, now)), 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
