package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"sideai/internal/storage"
)

const (
	keyConversations = "conversations"
	keyActive        = "activeConversationId"
	keyLegacyHistory = "history"
)

var foldCaser = cases.Fold()

// Store owns every conversation and the active-conversation pointer.
// The UI only ever holds references handed out by the store; all
// mutation goes through it so the persisted state and the notification
// hook stay consistent.
type Store struct {
	mu            sync.Mutex
	kv            storage.Store
	conversations []*Conversation
	activeID      string
	onChange      func()
}

func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// OnChange registers a hook invoked after every mutation, with no
// locks held. The UI uses it to re-render.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load reads persisted conversations. When no conversation set exists
// but a legacy flat history does, that history is migrated once into a
// single conversation. Load guarantees that afterwards at least one
// conversation exists and the active id resolves to one of them.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.kv.Get(keyConversations, keyActive, keyLegacyHistory)
	if err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}

	if raw := data[keyConversations]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.conversations); err != nil {
			return fmt.Errorf("failed to parse stored conversations: %w", err)
		}
	}
	s.activeID = data[keyActive]

	if len(s.conversations) == 0 {
		if migrated := migrateLegacyHistory(data[keyLegacyHistory]); migrated != nil {
			s.conversations = []*Conversation{migrated}
			s.activeID = migrated.ID
		}
	}

	if len(s.conversations) == 0 {
		conversation := newConversation()
		s.conversations = []*Conversation{conversation}
		s.activeID = conversation.ID
	} else if s.find(s.activeID) == nil {
		s.activeID = s.mostRecent().ID
	}

	return s.persist()
}

// migrateLegacyHistory wraps a pre-multi-conversation flat message
// list in a single conversation. Returns nil when there is nothing to
// migrate.
func migrateLegacyHistory(raw string) *Conversation {
	if raw == "" {
		return nil
	}
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil || len(messages) == 0 {
		return nil
	}
	if len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}
	now := time.Now().UnixMilli()
	return &Conversation{
		ID:        fmt.Sprintf("chat_%d", now),
		Title:     deriveTitle(messages),
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Active returns the current conversation. Load must have run first.
func (s *Store) Active() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(s.activeID)
}

// ActiveMessages returns a snapshot of the active conversation's
// messages, safe to read while other goroutines mutate the store.
func (s *Store) ActiveMessages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation := s.find(s.activeID)
	if conversation == nil {
		return nil
	}
	messages := make([]Message, len(conversation.Messages))
	copy(messages, conversation.Messages)
	return messages
}

// Create starts a fresh conversation and makes it active.
func (s *Store) Create() (*Conversation, error) {
	s.mu.Lock()
	conversation := newConversation()
	s.conversations = append([]*Conversation{conversation}, s.conversations...)
	s.activeID = conversation.ID
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	s.notify()
	return conversation, nil
}

// SetActive switches to the given conversation. Unknown ids are
// ignored.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	if s.find(id) == nil {
		s.mu.Unlock()
		return nil
	}
	s.activeID = id
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// AppendMessage adds a message to the active conversation, re-derives
// the title while it is still the default, and drops the oldest
// messages beyond the history cap.
func (s *Store) AppendMessage(role, content string) error {
	s.mu.Lock()
	conversation := s.find(s.activeID)
	if conversation == nil {
		s.mu.Unlock()
		return fmt.Errorf("no active conversation")
	}

	conversation.Messages = append(conversation.Messages, Message{Role: role, Content: content})
	if len(conversation.Messages) > maxMessages {
		conversation.Messages = conversation.Messages[len(conversation.Messages)-maxMessages:]
	}
	if conversation.Title == DefaultTitle {
		conversation.Title = deriveTitle(conversation.Messages)
	}
	conversation.UpdatedAt = time.Now().UnixMilli()
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Remove deletes a conversation. Deleting the active one promotes the
// most recently updated survivor, or creates a fresh conversation when
// none remain.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	if s.find(id) == nil {
		s.mu.Unlock()
		return nil
	}
	kept := s.conversations[:0]
	for _, conversation := range s.conversations {
		if conversation.ID != id {
			kept = append(kept, conversation)
		}
	}
	s.conversations = kept

	if s.activeID == id {
		if len(s.conversations) > 0 {
			s.activeID = s.mostRecent().ID
		} else {
			conversation := newConversation()
			s.conversations = []*Conversation{conversation}
			s.activeID = conversation.ID
		}
	}
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Rename sets a conversation's title to the trimmed input, falling
// back to the default title when the input is blank.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	conversation := s.find(id)
	if conversation == nil {
		s.mu.Unlock()
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	conversation.Title = title
	conversation.UpdatedAt = time.Now().UnixMilli()
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *Store) TogglePin(id string) error {
	s.mu.Lock()
	conversation := s.find(id)
	if conversation == nil {
		s.mu.Unlock()
		return nil
	}
	conversation.Pinned = !conversation.Pinned
	conversation.UpdatedAt = time.Now().UnixMilli()
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Clear empties the active conversation and resets its title.
func (s *Store) Clear() error {
	s.mu.Lock()
	conversation := s.find(s.activeID)
	if conversation == nil {
		s.mu.Unlock()
		return nil
	}
	conversation.Messages = []Message{}
	conversation.Title = DefaultTitle
	conversation.UpdatedAt = time.Now().UnixMilli()
	err := s.persist()
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// List returns every conversation in display order: pinned first,
// then most recently updated.
func (s *Store) List() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

// Search filters the display-ordered list by a case-insensitive
// substring match against each conversation's title and first message.
func (s *Store) Search(term string) []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	term = foldCaser.String(strings.TrimSpace(term))
	if term == "" {
		return s.sorted()
	}

	var matched []*Conversation
	for _, conversation := range s.sorted() {
		haystack := foldCaser.String(conversation.Title + " " + conversation.firstContent())
		if strings.Contains(haystack, term) {
			matched = append(matched, conversation)
		}
	}
	return matched
}

func (s *Store) sorted() []*Conversation {
	list := make([]*Conversation, len(s.conversations))
	copy(list, s.conversations)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Pinned != list[j].Pinned {
			return list[i].Pinned
		}
		return list[i].UpdatedAt > list[j].UpdatedAt
	})
	return list
}

func (s *Store) find(id string) *Conversation {
	for _, conversation := range s.conversations {
		if conversation.ID == id {
			return conversation
		}
	}
	return nil
}

// mostRecent assumes at least one conversation exists.
func (s *Store) mostRecent() *Conversation {
	best := s.conversations[0]
	for _, conversation := range s.conversations[1:] {
		if conversation.UpdatedAt > best.UpdatedAt {
			best = conversation
		}
	}
	return best
}

// persist is called with the lock held.
func (s *Store) persist() error {
	encoded, err := json.Marshal(s.conversations)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	if err := s.kv.Set(map[string]string{
		keyConversations: string(encoded),
		keyActive:        s.activeID,
	}); err != nil {
		return fmt.Errorf("failed to persist conversations: %w", err)
	}
	return nil
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
