// Package scrape extracts document listings from municipal web pages.
//
// Three extractors are provided: RenderExtractor drives headless Chrome for
// pages that build their listing with scripts, HTTPExtractor does a plain
// GET for static pages, and FeedExtractor reads sources that publish an
// RSS/Atom feed. All of them produce the same Document records.
package scrape

import "context"

// Document is one entry on a document listing page. Identity is the URL
// alone; Title and Category are descriptive.
type Document struct {
	URL      string
	Title    string
	Category string
}

// Extractor produces the current set of documents for a source.
type Extractor interface {
	Extract(ctx context.Context) ([]Document, error)
}
