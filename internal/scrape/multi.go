package scrape

import (
	"context"
	"fmt"
	"log/slog"
)

// Source pairs an extractor with the name it is logged under.
type Source struct {
	Name      string
	Extractor Extractor
}

// Multi runs one extractor per category in sequence and merges the results.
// A failing category is logged and skipped so one broken section does not
// hide news from the others; only when every category fails does the whole
// fetch count as failed.
type Multi struct {
	sources []Source
	logger  *slog.Logger
}

func NewMulti(sources []Source, logger *slog.Logger) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sources: sources, logger: logger}
}

func (m *Multi) Extract(ctx context.Context) ([]Document, error) {
	var merged []Document
	var firstErr error
	succeeded := 0

	for _, src := range m.sources {
		docs, err := src.Extractor.Extract(ctx)
		if err != nil {
			m.logger.Warn("Category fetch failed, skipping", "category", src.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		succeeded++
		merged = append(merged, docs...)
	}

	if succeeded == 0 && firstErr != nil {
		return nil, fmt.Errorf("all categories failed: %w", firstErr)
	}
	return dedupe(merged), nil
}
