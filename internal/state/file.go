package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// persisted is the on-disk shape. Field names are part of the format and
// must stay stable across versions.
type persisted struct {
	Seen []string        `json:"seen"`
	Sent map[string]bool `json:"sent,omitempty"`
	Init bool            `json:"init"`
}

// FileStore persists state as a single JSON document on disk. Saves write
// to a temp file in the same directory and rename it into place, so a crash
// mid-write never leaves a corrupt file behind.
type FileStore struct {
	path   string
	logger *slog.Logger
}

func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

func (f *FileStore) Load(ctx context.Context) *State {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.Warn("Failed to read state file, starting fresh", "path", f.path, "error", err)
		}
		return New()
	}
	return decode(data, f.logger)
}

// decode is deliberately forgiving: each field is parsed on its own and
// coerced to its zero value when malformed, so a damaged state file
// degrades to a seeding run instead of a crash.
func decode(data []byte, logger *slog.Logger) *State {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("State file is not valid JSON, starting fresh", "error", err)
		return New()
	}

	st := New()
	if v, ok := raw["seen"]; ok {
		var seen []string
		if err := json.Unmarshal(v, &seen); err != nil {
			logger.Warn("Ignoring malformed 'seen' field", "error", err)
		} else {
			st.Seen = seen
		}
	}
	if v, ok := raw["sent"]; ok {
		var sent map[string]bool
		if err := json.Unmarshal(v, &sent); err != nil {
			logger.Warn("Ignoring malformed 'sent' field", "error", err)
		} else if sent != nil {
			st.Sent = sent
		}
	}
	if v, ok := raw["init"]; ok {
		var init bool
		if err := json.Unmarshal(v, &init); err != nil {
			logger.Warn("Ignoring malformed 'init' field", "error", err)
		} else {
			st.Initialized = init
		}
	}
	return st
}

func encode(st *State) ([]byte, error) {
	data, err := json.MarshalIndent(persisted{
		Seen: st.Seen,
		Sent: st.Sent,
		Init: st.Initialized,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return data, nil
}

func (f *FileStore) Save(ctx context.Context, st *State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".docwatch-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
