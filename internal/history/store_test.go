package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"multivox/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "history", "translator.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, Entry{
		Owner:          "user-1",
		SourceText:     "Hello",
		SourceLang:     "en",
		TargetLang:     "es",
		TranslatedText: "Hola",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %#v", saved)
	}

	got, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TranslatedText != "Hola" || got.Owner != "user-1" || got.SourceLang != "en" {
		t.Fatalf("unexpected entry %#v", got)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, saved.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Get(context.Background(), "does-not-exist"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRequiresOwner(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Save(context.Background(), Entry{SourceText: "x"}); !errors.Is(err, services.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestListByOwnerNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		if _, err := store.Save(ctx, Entry{
			Owner:          "alice",
			SourceText:     text,
			TargetLang:     "fr",
			TranslatedText: text + "-fr",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Save %s: %v", text, err)
		}
	}
	if _, err := store.Save(ctx, Entry{Owner: "bob", SourceText: "other", TargetLang: "de", TranslatedText: "andere"}); err != nil {
		t.Fatalf("Save bob: %v", err)
	}

	entries, err := store.ListByOwner(ctx, "alice", 2)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(entries) != 2 || entries[0].SourceText != "third" || entries[1].SourceText != "second" {
		t.Fatalf("unexpected entries %#v", entries)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 4 {
		t.Fatalf("Count = %d, %v", count, err)
	}

	if _, err := store.ListByOwner(ctx, " ", 0); !errors.Is(err, services.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for blank owner, got %v", err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translator.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	saved, err := store.Save(ctx, Entry{Owner: "o", SourceText: "a", TargetLang: "ja", TranslatedText: "b"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = store.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, saved.ID); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translator.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(ctx, path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
