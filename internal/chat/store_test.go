package chat

import (
	"fmt"
	"strings"
	"testing"

	"sideai/internal/storage"
)

func newTestStore(t *testing.T) (*Store, storage.Store) {
	t.Helper()
	kv := storage.NewMemStore()
	store := NewStore(kv)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return store, kv
}

func TestLoadCreatesFirstConversation(t *testing.T) {
	store, _ := newTestStore(t)

	active := store.Active()
	if active == nil {
		t.Fatal("Expected an active conversation after load")
	}
	if active.Title != DefaultTitle {
		t.Errorf("Expected default title, got %q", active.Title)
	}
	if len(active.Messages) != 0 {
		t.Errorf("Expected empty conversation, got %d messages", len(active.Messages))
	}
}

func TestLoadMigratesLegacyHistory(t *testing.T) {
	kv := storage.NewMemStore()
	kv.Set(map[string]string{
		keyLegacyHistory: `[{"role":"user","content":"hi"}]`,
	})

	store := NewStore(kv)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	list := store.List()
	if len(list) != 1 {
		t.Fatalf("Expected exactly one migrated conversation, got %d", len(list))
	}
	if list[0].Title != "hi" {
		t.Errorf("Expected migrated title hi, got %q", list[0].Title)
	}
	active := store.Active()
	if active == nil || active.ID != list[0].ID {
		t.Error("Expected migrated conversation to be active")
	}
	if len(active.Messages) != 1 || active.Messages[0].Content != "hi" {
		t.Errorf("Expected migrated message preserved, got %v", active.Messages)
	}
}

func TestLoadIgnoresLegacyHistoryWhenConversationsExist(t *testing.T) {
	kv := storage.NewMemStore()
	kv.Set(map[string]string{
		keyConversations: `[{"id":"c1","title":"kept","messages":[],"createdAt":1,"updatedAt":1,"pinned":false}]`,
		keyActive:        "c1",
		keyLegacyHistory: `[{"role":"user","content":"stale"}]`,
	})

	store := NewStore(kv)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	list := store.List()
	if len(list) != 1 || list[0].ID != "c1" {
		t.Fatalf("Expected only the stored conversation, got %v", list)
	}
}

func TestLoadResolvesStaleActiveID(t *testing.T) {
	kv := storage.NewMemStore()
	kv.Set(map[string]string{
		keyConversations: `[` +
			`{"id":"old","title":"old","messages":[],"createdAt":1,"updatedAt":10,"pinned":false},` +
			`{"id":"recent","title":"recent","messages":[],"createdAt":2,"updatedAt":20,"pinned":false}]`,
		keyActive: "deleted",
	})

	store := NewStore(kv)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if active := store.Active(); active == nil || active.ID != "recent" {
		t.Errorf("Expected most recently updated conversation promoted, got %v", active)
	}
}

func TestAppendMessageDerivesTitle(t *testing.T) {
	store, _ := newTestStore(t)

	if err := store.AppendMessage(RoleUser, "How do goroutines work?"); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if title := store.Active().Title; title != "How do goroutines work?" {
		t.Errorf("Expected title from first user message, got %q", title)
	}

	// Later messages must not change an already-derived title.
	store.AppendMessage(RoleAssistant, "They are lightweight threads.")
	store.AppendMessage(RoleUser, "Tell me more")
	if title := store.Active().Title; title != "How do goroutines work?" {
		t.Errorf("Expected title to stay, got %q", title)
	}
}

func TestAppendMessageTruncatesTitle(t *testing.T) {
	store, _ := newTestStore(t)

	long := strings.Repeat("é", 50)
	store.AppendMessage(RoleUser, long)

	title := store.Active().Title
	if len([]rune(title)) != 36 {
		t.Errorf("Expected 36-rune title, got %d runes", len([]rune(title)))
	}
	if !strings.HasPrefix(long, title) {
		t.Errorf("Expected title to be a prefix of the message, got %q", title)
	}
}

func TestAppendMessageCapsHistory(t *testing.T) {
	store, _ := newTestStore(t)

	for i := 0; i < maxMessages+5; i++ {
		if err := store.AppendMessage(RoleUser, fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	messages := store.ActiveMessages()
	if len(messages) != maxMessages {
		t.Fatalf("Expected history capped at %d, got %d", maxMessages, len(messages))
	}
	if messages[0].Content != "message 5" {
		t.Errorf("Expected oldest messages dropped first, front is %q", messages[0].Content)
	}
	if messages[len(messages)-1].Content != fmt.Sprintf("message %d", maxMessages+4) {
		t.Errorf("Expected newest message kept, back is %q", messages[len(messages)-1].Content)
	}
}

func TestCreateBecomesActive(t *testing.T) {
	store, _ := newTestStore(t)
	first := store.Active()

	created, err := store.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if store.Active().ID != created.ID {
		t.Error("Expected created conversation to be active")
	}
	if created.ID == first.ID {
		t.Error("Expected a fresh id")
	}
	if len(store.List()) != 2 {
		t.Errorf("Expected 2 conversations, got %d", len(store.List()))
	}
}

func TestRemoveActivePromotesMostRecent(t *testing.T) {
	store, _ := newTestStore(t)
	a := store.Active()
	b, _ := store.Create()
	c, _ := store.Create()

	// Make b the most recently updated survivor.
	a.UpdatedAt = 10
	b.UpdatedAt = 30
	c.UpdatedAt = 20

	if err := store.Remove(c.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if active := store.Active(); active.ID != b.ID {
		t.Errorf("Expected %s promoted, got %s", b.ID, active.ID)
	}
	if len(store.List()) != 2 {
		t.Errorf("Expected 2 conversations left, got %d", len(store.List()))
	}
}

func TestRemoveInactiveKeepsActive(t *testing.T) {
	store, _ := newTestStore(t)
	first := store.Active()
	second, _ := store.Create()

	if err := store.Remove(first.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if store.Active().ID != second.ID {
		t.Error("Expected active conversation unchanged")
	}
}

func TestRemoveUnknownIDIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	active := store.Active()

	notified := 0
	store.OnChange(func() { notified++ })

	if err := store.Remove("does-not-exist"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if notified != 0 {
		t.Errorf("Expected no change notification, got %d", notified)
	}
	if len(store.List()) != 1 || store.Active().ID != active.ID {
		t.Error("Expected conversations untouched")
	}
}

func TestRemoveLastCreatesFresh(t *testing.T) {
	store, _ := newTestStore(t)
	only := store.Active()
	store.AppendMessage(RoleUser, "bye")

	if err := store.Remove(only.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	active := store.Active()
	if active == nil {
		t.Fatal("Expected a fresh conversation after removing the last one")
	}
	if active.ID == only.ID {
		t.Error("Expected a new conversation, got the removed one")
	}
	if len(active.Messages) != 0 {
		t.Error("Expected fresh conversation to be empty")
	}
}

func TestRename(t *testing.T) {
	store, _ := newTestStore(t)
	id := store.Active().ID

	store.Rename(id, "  Project notes  ")
	if title := store.Active().Title; title != "Project notes" {
		t.Errorf("Expected trimmed title, got %q", title)
	}

	store.Rename(id, "   ")
	if title := store.Active().Title; title != DefaultTitle {
		t.Errorf("Expected blank rename to fall back to default, got %q", title)
	}
}

func TestClear(t *testing.T) {
	store, _ := newTestStore(t)
	store.AppendMessage(RoleUser, "hello")

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	active := store.Active()
	if len(active.Messages) != 0 {
		t.Errorf("Expected messages cleared, got %d", len(active.Messages))
	}
	if active.Title != DefaultTitle {
		t.Errorf("Expected title reset, got %q", active.Title)
	}
}

func TestListOrdering(t *testing.T) {
	store, _ := newTestStore(t)
	a := store.Active()
	b, _ := store.Create()
	c, _ := store.Create()

	a.UpdatedAt = 10
	b.UpdatedAt = 20
	c.UpdatedAt = 30
	a.Pinned = true

	list := store.List()
	if list[0].ID != a.ID {
		t.Errorf("Expected pinned conversation first, got %s", list[0].ID)
	}
	if list[1].ID != c.ID || list[2].ID != b.ID {
		t.Errorf("Expected unpinned ordered by updatedAt desc, got %s then %s", list[1].ID, list[2].ID)
	}
}

func TestTogglePin(t *testing.T) {
	store, _ := newTestStore(t)
	id := store.Active().ID

	store.TogglePin(id)
	if !store.Active().Pinned {
		t.Error("Expected conversation pinned")
	}
	store.TogglePin(id)
	if store.Active().Pinned {
		t.Error("Expected conversation unpinned")
	}
}

func TestSearch(t *testing.T) {
	store, _ := newTestStore(t)
	store.AppendMessage(RoleUser, "Deploying with Docker")

	store.Create()
	store.AppendMessage(RoleUser, "Kubernetes basics")

	tests := []struct {
		name     string
		term     string
		expected []string
	}{
		{
			name:     "Case-insensitive title match",
			term:     "DOCKER",
			expected: []string{"Deploying with Docker"},
		},
		{
			name:     "First message match",
			term:     "kubernetes",
			expected: []string{"Kubernetes basics"},
		},
		{
			name:     "No match",
			term:     "zebra",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := store.Search(tt.term)
			if len(results) != len(tt.expected) {
				t.Fatalf("Search(%q) returned %d results, expected %d", tt.term, len(results), len(tt.expected))
			}
			for i, title := range tt.expected {
				if results[i].Title != title {
					t.Errorf("Search(%q)[%d] = %q, expected %q", tt.term, i, results[i].Title, title)
				}
			}
		})
	}

	if all := store.Search("  "); len(all) != 2 {
		t.Errorf("Expected blank search to return everything, got %d", len(all))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	store, kv := newTestStore(t)
	store.AppendMessage(RoleUser, "persist me")
	store.TogglePin(store.Active().ID)
	activeID := store.Active().ID

	reloaded := NewStore(kv)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	active := reloaded.Active()
	if active == nil || active.ID != activeID {
		t.Fatal("Expected active conversation restored")
	}
	if active.Title != "persist me" {
		t.Errorf("Expected title restored, got %q", active.Title)
	}
	if !active.Pinned {
		t.Error("Expected pinned flag restored")
	}
	if len(active.Messages) != 1 || active.Messages[0].Content != "persist me" {
		t.Errorf("Expected messages restored, got %v", active.Messages)
	}
}

func TestOnChangeNotifies(t *testing.T) {
	store, _ := newTestStore(t)

	notified := 0
	store.OnChange(func() { notified++ })

	store.AppendMessage(RoleUser, "hi")
	store.Create()
	store.Clear()

	if notified != 3 {
		t.Errorf("Expected 3 notifications, got %d", notified)
	}
}
