package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/memteam/memoryman/internal/model"
	"github.com/memteam/memoryman/internal/storage"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "test.db")
	}
	eng, report, err := New(opts)
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	if len(report.Skipped) > 0 {
		t.Fatalf("unexpected skipped records on fresh db: %v", report.Skipped)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

func mustAdd(t *testing.T, eng *Engine, p AddParams) model.Record {
	t.Helper()
	rec, err := eng.Add(context.Background(), p)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return rec
}

func TestAddAssignsOrderedIDs(t *testing.T) {
	eng := newTestEngine(t, Options{})

	a := mustAdd(t, eng, AddParams{Type: model.TypeBuffer, Content: "first"})
	b := mustAdd(t, eng, AddParams{Type: model.TypeBuffer, Content: "second"})

	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty ids")
	}
	if !(a.ID < b.ID) {
		t.Errorf("expected id order to follow creation order: %s >= %s", a.ID, b.ID)
	}
}

func TestAddInvalidType(t *testing.T) {
	eng := newTestEngine(t, Options{})

	_, err := eng.Add(context.Background(), AddParams{Type: "bogus", Content: "x"})
	if !errors.Is(err, ErrInvalidType) {
		t.Errorf("expected ErrInvalidType, got %v", err)
	}
}

func TestAddEntityRequiresKey(t *testing.T) {
	eng := newTestEngine(t, Options{})

	if _, err := eng.Add(context.Background(), AddParams{Type: model.TypeEntity, Content: "x"}); err == nil {
		t.Error("expected error for entity add without key")
	}
	if _, err := eng.Add(context.Background(), AddParams{Type: model.TypeBuffer, Key: "k", Content: "x"}); err == nil {
		t.Error("expected error for non-entity add with key")
	}
}

func TestReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	eng, _, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	buf := mustAdd(t, eng, AddParams{Type: model.TypeBuffer, Content: "buffered"})
	ent := mustAdd(t, eng, AddParams{Type: model.TypeEntity, Key: "user_name", Content: "Akash"})
	lt := mustAdd(t, eng, AddParams{Type: model.TypeLongTerm, Content: "permanent"})
	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	eng2, report, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer eng2.Close()
	if report.Loaded != 3 {
		t.Errorf("expected 3 loaded, got %d", report.Loaded)
	}

	for _, want := range []model.Record{buf, ent, lt} {
		got, err := eng2.Get(ctx, want.ID)
		if err != nil {
			t.Fatalf("get %s after reload: %v", want.ID, err)
		}
		if got.Content != want.Content {
			t.Errorf("expected content %q, got %q", want.Content, got.Content)
		}
	}

	got, err := eng2.GetEntity(ctx, "user_name")
	if err != nil {
		t.Fatalf("entity index not rebuilt: %v", err)
	}
	if got.Content != "Akash" {
		t.Errorf("expected 'Akash', got %q", got.Content)
	}
}

func TestDeleteNotFound(t *testing.T) {
	eng := newTestEngine(t, Options{})

	err := eng.Delete(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesEntityIndex(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, Options{})

	rec := mustAdd(t, eng, AddParams{Type: model.TypeEntity, Key: "city", Content: "Pune"})
	if err := eng.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := eng.GetEntity(ctx, "city"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestClearByType(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, Options{})

	mustAdd(t, eng, AddParams{Type: model.TypeBuffer, Content: "a"})
	mustAdd(t, eng, AddParams{Type: model.TypeBuffer, Content: "b"})
	kept := mustAdd(t, eng, AddParams{Type: model.TypeLongTerm, Content: "keep"})

	if err := eng.Clear(ctx, model.TypeBuffer); err != nil {
		t.Fatalf("clear: %v", err)
	}

	counts, _ := eng.Count("")
	if counts[model.TypeBuffer] != 0 {
		t.Errorf("expected 0 buffer records, got %d", counts[model.TypeBuffer])
	}
	if _, err := eng.Get(ctx, kept.ID); err != nil {
		t.Errorf("longterm record should survive a buffer clear: %v", err)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, Options{})

	mustAdd(t, eng, AddParams{Type: model.TypeBuffer, Content: "a"})
	mustAdd(t, eng, AddParams{Type: model.TypeEntity, Key: "k", Content: "b"})

	if err := eng.Clear(ctx, ""); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	counts, _ := eng.Count("")
	if len(counts) != 0 {
		t.Errorf("expected empty counts, got %v", counts)
	}
}

func TestGetRefreshesAccess(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, Options{})

	rec := mustAdd(t, eng, AddParams{Type: model.TypeLongTerm, Content: "x"})

	first, _ := eng.Get(ctx, rec.ID)
	second, _ := eng.Get(ctx, rec.ID)

	if second.AccessCount != first.AccessCount+1 {
		t.Errorf("expected access count to increment, got %d then %d",
			first.AccessCount, second.AccessCount)
	}
	if second.LastAccessedAt.Before(first.LastAccessedAt) {
		t.Error("expected last_accessed to move forward")
	}
}

func TestRecentOrder(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, Options{})

	mustAdd(t, eng, AddParams{Type: model.TypeLongTerm, Content: "one"})
	mustAdd(t, eng, AddParams{Type: model.TypeLongTerm, Content: "two"})
	mustAdd(t, eng, AddParams{Type: model.TypeLongTerm, Content: "three"})

	recs, err := eng.Recent(ctx, model.TypeLongTerm, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(recs))
	}
	if recs[0].Content != "three" || recs[1].Content != "two" {
		t.Errorf("expected newest first, got %q then %q", recs[0].Content, recs[1].Content)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, Options{})

	mustAdd(t, eng, AddParams{Type: model.TypeLongTerm, Content: "fact one"})
	mustAdd(t, eng, AddParams{Type: model.TypeEntity, Key: "user_name", Content: "Akash"})

	exported, err := eng.Export(ctx, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 2 {
		t.Fatalf("expected 2 exported, got %d", len(exported))
	}

	other := newTestEngine(t, Options{})
	n, err := other.Import(ctx, exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}

	got, err := other.GetEntity(ctx, "user_name")
	if err != nil {
		t.Fatalf("entity not indexed after import: %v", err)
	}
	if got.Content != "Akash" {
		t.Errorf("expected 'Akash', got %q", got.Content)
	}
}

func TestNewWithBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	backend, err := storage.Open(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}

	eng, _, err := NewWithBackend(backend, Options{})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer eng.Close()

	if _, err := eng.Add(context.Background(), AddParams{Type: model.TypeBuffer, Content: "x"}); err != nil {
		t.Fatalf("engine unusable after load: %v", err)
	}
}

func TestCloseReleasesHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	eng, _, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	mustAdd(t, eng, AddParams{Type: model.TypeBuffer, Content: "x"})

	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen proves the handle was released and state is durable.
	eng2, report, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer eng2.Close()
	if report.Loaded != 1 {
		t.Errorf("expected 1 record after reopen, got %d", report.Loaded)
	}
}
