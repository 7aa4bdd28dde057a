package storage

import (
	"testing"
)

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Set(map[string]string{
		"apiKey": "sk-test",
		"theme":  "dark",
	}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	values, err := store.Get("apiKey", "theme", "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if values["apiKey"] != "sk-test" {
		t.Errorf("Expected apiKey 'sk-test', got %q", values["apiKey"])
	}
	if values["theme"] != "dark" {
		t.Errorf("Expected theme 'dark', got %q", values["theme"])
	}
	if _, ok := values["missing"]; ok {
		t.Error("Expected missing key to be absent from result")
	}
}

func TestBadgerStoreDelete(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Set(map[string]string{"history": "[]"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete("history", "never-existed"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	values, err := store.Get("history")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := values["history"]; ok {
		t.Error("Expected deleted key to be absent")
	}
}

func TestMemStore(t *testing.T) {
	store := NewMemStore()

	if err := store.Set(map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	values, err := store.Get("a", "b", "c")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(values) != 2 || values["a"] != "1" || values["b"] != "2" {
		t.Errorf("Unexpected values: %v", values)
	}

	if err := store.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	values, _ = store.Get("a")
	if len(values) != 0 {
		t.Errorf("Expected empty result after delete, got %v", values)
	}
}
