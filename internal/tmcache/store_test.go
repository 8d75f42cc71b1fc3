package tmcache_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"subburn/internal/tmcache"
)

func openStore(t *testing.T) *tmcache.Store {
	t.Helper()
	store, err := tmcache.Open(context.Background(), filepath.Join(t.TempDir(), "cache", "translations.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLookupMissThenHit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := tmcache.Key{Source: "ru", Target: "kk", Model: "deepseek-chat", Text: "Привет"}

	if _, ok, err := store.Lookup(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, key, "Сәлем"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok, err := store.Lookup(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != "Сәлем" {
		t.Fatalf("unexpected translation %q", got)
	}

	other := key
	other.Model = "gpt-4o-mini"
	if _, ok, _ := store.Lookup(ctx, other); ok {
		t.Fatal("expected model to be part of the key")
	}
}

func TestPutReplacesTranslation(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	key := tmcache.Key{Source: "ru", Target: "kk", Model: "m", Text: "Да"}

	if err := store.Put(ctx, key, "Иә?"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, key, "Иә"); err != nil {
		t.Fatal(err)
	}
	got, _, err := store.Lookup(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Иә" {
		t.Fatalf("expected replaced translation, got %q", got)
	}
}

func TestStatsAndClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	for _, key := range []tmcache.Key{
		{Source: "ru", Target: "kk", Model: "m", Text: "a"},
		{Source: "ru", Target: "kk", Model: "m", Text: "b"},
		{Source: "ru", Target: "uz", Model: "m", Text: "a"},
	} {
		if err := store.Put(ctx, key, key.Text+"!"); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := store.Lookup(ctx, tmcache.Key{Source: "ru", Target: "kk", Model: "m", Text: "a"}); err != nil {
		t.Fatal(err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 3 || stats.Hits != 1 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if len(stats.Pairs) != 2 || stats.Pairs[0].Target != "kk" || stats.Pairs[0].Entries != 2 {
		t.Fatalf("unexpected pairs: %+v", stats.Pairs)
	}
	if stats.LastUsed.IsZero() {
		t.Fatal("expected last used timestamp")
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected empty cache, got %+v", stats)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")
	ctx := context.Background()
	key := tmcache.Key{Source: "ru", Target: "kk", Model: "m", Text: "Спасибо"}

	store, err := tmcache.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, key, "Рақмет"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := tmcache.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	if got, ok, err := reopened.Lookup(ctx, key); err != nil || !ok || got != "Рақмет" {
		t.Fatalf("expected persisted entry, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := tmcache.Open(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")
	ctx := context.Background()
	store, err := tmcache.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := tmcache.Open(ctx, path); !errors.Is(err, tmcache.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
