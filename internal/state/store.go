package state

import (
	"context"
	"strings"
)

// State is everything docwatch persists between runs: the baseline of seen
// document URLs in insertion order, the ledger of send-window keys already
// satisfied, and whether the baseline has been seeded yet.
type State struct {
	Seen        []string
	Sent        map[string]bool
	Initialized bool
}

func New() *State {
	return &State{Sent: make(map[string]bool)}
}

// SeenSet returns the baseline as a set for membership checks.
func (s *State) SeenSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Seen))
	for _, id := range s.Seen {
		set[id] = struct{}{}
	}
	return set
}

// Merge appends URLs not yet in the baseline, then evicts the oldest
// inserted entries beyond limit so the file cannot grow without bound.
// limit <= 0 means unbounded.
func (s *State) Merge(urls []string, limit int) {
	set := s.SeenSet()
	for _, u := range urls {
		if _, ok := set[u]; ok {
			continue
		}
		set[u] = struct{}{}
		s.Seen = append(s.Seen, u)
	}
	if limit > 0 && len(s.Seen) > limit {
		s.Seen = append([]string(nil), s.Seen[len(s.Seen)-limit:]...)
	}
}

// MarkSent records a satisfied window key. Empty keys (untimed variant) are
// ignored. Window keys are "<date>/<name>" and dedupe only matters within
// one calendar day, so recording a key drops every key from other days and
// the ledger stays a handful of entries.
func (s *State) MarkSent(key string) {
	if key == "" {
		return
	}
	if s.Sent == nil {
		s.Sent = make(map[string]bool)
	}
	if day, _, ok := strings.Cut(key, "/"); ok {
		for k := range s.Sent {
			if !strings.HasPrefix(k, day+"/") {
				delete(s.Sent, k)
			}
		}
	}
	s.Sent[key] = true
}

// Store defines the interface for persisting state between runs.
//
// Load fails soft: missing, unreachable, or malformed persisted data yields
// a fresh empty state, never an error. Losing the baseline only costs one
// seeding run; crashing on a damaged file would cost the whole monitor.
type Store interface {
	Load(ctx context.Context) *State
	Save(ctx context.Context, st *State) error
}
