package ui

import (
	"strings"
	"testing"

	"sideai/internal/settings"
	"sideai/internal/storage"
)

func newTestMiniSettings(t *testing.T, values map[string]string) (MiniSettingsModel, *settings.Store) {
	t.Helper()
	kv := storage.NewMemStore()
	store := settings.NewStore(kv)
	if len(values) > 0 {
		if err := store.Save(values); err != nil {
			t.Fatalf("Save settings failed: %v", err)
		}
	}

	m := NewMiniSettingsModel(store)
	m.Reload()
	return m, store
}

func TestMiniSettingsAddModel(t *testing.T) {
	m, store := newTestMiniSettings(t, map[string]string{
		settings.KeyModels: "gpt-a",
	})

	m.modelAddInput.SetValue("  gpt-b  ")
	m.addModel()

	if len(m.models) != 2 || m.models[1] != "gpt-b" {
		t.Fatalf("Expected trimmed name appended, got %v", m.models)
	}
	if m.models[m.modelIndex] != "gpt-b" {
		t.Errorf("Expected added model selected, got %q", m.models[m.modelIndex])
	}
	if m.modelAddInput.Value() != "" {
		t.Error("Expected add input cleared after adding")
	}

	msg := m.save()()
	if _, ok := msg.(MiniSettingsSaved); !ok {
		t.Fatalf("Expected MiniSettingsSaved, got %T", msg)
	}

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := strings.Join(cfg.Models, ","); got != "gpt-a,gpt-b" {
		t.Errorf("Expected model list persisted, got %q", got)
	}
	if cfg.ActiveModel != "gpt-b" {
		t.Errorf("Expected added model persisted as active, got %q", cfg.ActiveModel)
	}
}

func TestMiniSettingsAddModelExisting(t *testing.T) {
	m, _ := newTestMiniSettings(t, map[string]string{
		settings.KeyModels: "gpt-a, gpt-b",
	})

	m.modelAddInput.SetValue("gpt-a")
	m.addModel()

	if len(m.models) != 2 {
		t.Fatalf("Expected no duplicate entry, got %v", m.models)
	}
	if m.models[m.modelIndex] != "gpt-a" {
		t.Errorf("Expected existing model selected, got %q", m.models[m.modelIndex])
	}
}

func TestMiniSettingsAddModelBlank(t *testing.T) {
	m, _ := newTestMiniSettings(t, nil)

	m.modelAddInput.SetValue("   ")
	m.addModel()

	if len(m.models) != 0 {
		t.Errorf("Expected blank input ignored, got %v", m.models)
	}
}
