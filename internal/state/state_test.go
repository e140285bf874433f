package state

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMergeAppendsOnlyUnseen(t *testing.T) {
	st := New()
	st.Merge([]string{"a", "b"}, 0)
	st.Merge([]string{"b", "c"}, 0)

	if !reflect.DeepEqual(st.Seen, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected baseline: %v", st.Seen)
	}
}

func TestMergeEvictsOldestBeyondCap(t *testing.T) {
	st := New()
	st.Merge([]string{"a", "b", "c"}, 0)
	st.Merge([]string{"d", "e"}, 3)

	if len(st.Seen) != 3 {
		t.Fatalf("expected baseline capped at 3, got %d", len(st.Seen))
	}
	if !reflect.DeepEqual(st.Seen, []string{"c", "d", "e"}) {
		t.Fatalf("expected most recently inserted entries retained, got %v", st.Seen)
	}
}

func TestMarkSentIgnoresEmptyKey(t *testing.T) {
	st := New()
	st.MarkSent("")
	st.MarkSent("2026-03-10/morning")

	if len(st.Sent) != 1 || !st.Sent["2026-03-10/morning"] {
		t.Fatalf("unexpected ledger: %v", st.Sent)
	}
}

func TestMarkSentDropsPreviousDays(t *testing.T) {
	st := New()
	st.MarkSent("2026-03-09/morning")
	st.MarkSent("2026-03-09/evening")
	st.MarkSent("2026-03-10/morning")

	if len(st.Sent) != 1 || !st.Sent["2026-03-10/morning"] {
		t.Fatalf("expected only today's keys retained, got %v", st.Sent)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileStore(path, discardLogger())
	ctx := context.Background()

	st := New()
	st.Merge([]string{"a", "b"}, 0)
	st.MarkSent("2026-03-10/morning")
	st.Initialized = true
	if err := fs.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := fs.Load(ctx)
	if !reflect.DeepEqual(got.Seen, []string{"a", "b"}) {
		t.Fatalf("baseline did not round-trip: %v", got.Seen)
	}
	if !got.Sent["2026-03-10/morning"] {
		t.Fatalf("ledger did not round-trip: %v", got.Sent)
	}
	if !got.Initialized {
		t.Fatal("initialized flag did not round-trip")
	}
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), discardLogger())

	st := fs.Load(context.Background())
	if st.Initialized || len(st.Seen) != 0 || len(st.Sent) != 0 {
		t.Fatalf("expected fresh empty state, got %+v", st)
	}
}

func TestFileStoreLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := NewFileStore(path, discardLogger())

	st := fs.Load(context.Background())
	if st.Initialized || len(st.Seen) != 0 {
		t.Fatalf("expected fresh empty state, got %+v", st)
	}
}

func TestFileStoreLoadCoercesWrongTypes(t *testing.T) {
	// seen has the wrong type; sent and init are fine. Only the broken
	// field is dropped.
	path := filepath.Join(t.TempDir(), "state.json")
	raw := `{"seen": 42, "sent": {"2026-03-10/morning": true}, "init": true}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := NewFileStore(path, discardLogger())

	st := fs.Load(context.Background())
	if len(st.Seen) != 0 {
		t.Fatalf("expected malformed 'seen' coerced to empty, got %v", st.Seen)
	}
	if !st.Sent["2026-03-10/morning"] {
		t.Fatalf("expected valid 'sent' preserved, got %v", st.Sent)
	}
	if !st.Initialized {
		t.Fatal("expected valid 'init' preserved")
	}
}

func TestFileStoreLoadUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	raw := `{"seen": ["a"], "extra": [1, 2, 3]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	fs := NewFileStore(path, discardLogger())

	st := fs.Load(context.Background())
	if !reflect.DeepEqual(st.Seen, []string{"a"}) {
		t.Fatalf("unknown fields must not disturb known ones: %v", st.Seen)
	}
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(filepath.Join(dir, "state.json"), discardLogger())

	st := New()
	st.Merge([]string{"a"}, 0)
	if err := fs.Save(context.Background(), st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".docwatch-state-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the state file, got %d entries", len(entries))
	}
}

func TestFileStoreSaveWritesStableShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileStore(path, discardLogger())

	st := New()
	st.Merge([]string{"a"}, 0)
	st.Initialized = true
	if err := fs.Save(context.Background(), st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		t.Fatalf("state file is not valid JSON: %v", err)
	}
	for _, field := range []string{"seen", "init"} {
		if _, ok := shape[field]; !ok {
			t.Fatalf("missing %q field in state file", field)
		}
	}
}
