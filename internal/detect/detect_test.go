package detect

import (
	"reflect"
	"testing"

	"docwatch/internal/scrape"
)

func TestDiffReturnsOnlyUnseenSorted(t *testing.T) {
	current := []scrape.Document{
		{URL: "https://example.org/docs/c", Title: "C"},
		{URL: "https://example.org/docs/a", Title: "A"},
		{URL: "https://example.org/docs/b", Title: "B"},
	}
	seen := map[string]struct{}{
		"https://example.org/docs/b": {},
	}

	fresh := Diff(current, seen)
	if len(fresh) != 2 {
		t.Fatalf("expected 2 fresh documents, got %d", len(fresh))
	}
	if fresh[0].URL != "https://example.org/docs/a" || fresh[1].URL != "https://example.org/docs/c" {
		t.Fatalf("expected ascending URL order, got %q, %q", fresh[0].URL, fresh[1].URL)
	}
}

func TestDiffEverythingSeen(t *testing.T) {
	current := []scrape.Document{{URL: "https://example.org/docs/a"}}
	seen := map[string]struct{}{"https://example.org/docs/a": {}}

	if fresh := Diff(current, seen); len(fresh) != 0 {
		t.Fatalf("expected no fresh documents, got %d", len(fresh))
	}
}

func TestDiffIdempotent(t *testing.T) {
	current := []scrape.Document{
		{URL: "https://example.org/docs/b"},
		{URL: "https://example.org/docs/a"},
	}
	seen := map[string]struct{}{}

	first := Diff(current, seen)
	second := Diff(current, seen)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output on repeated calls: %v vs %v", first, second)
	}
}

func TestDiffDoesNotMutateInput(t *testing.T) {
	current := []scrape.Document{
		{URL: "https://example.org/docs/b"},
		{URL: "https://example.org/docs/a"},
	}
	Diff(current, map[string]struct{}{})

	if current[0].URL != "https://example.org/docs/b" {
		t.Fatalf("input order changed: %v", current)
	}
}
