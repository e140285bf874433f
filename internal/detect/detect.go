// Package detect compares a fetch result against the baseline of already
// seen document URLs.
package detect

import (
	"sort"

	"docwatch/internal/scrape"
)

// Diff returns the documents whose URL is not in seen, sorted ascending by
// URL so the result is stable across runs with identical inputs. It never
// mutates its arguments.
func Diff(current []scrape.Document, seen map[string]struct{}) []scrape.Document {
	var fresh []scrape.Document
	for _, d := range current {
		if _, ok := seen[d.URL]; !ok {
			fresh = append(fresh, d)
		}
	}
	sort.Slice(fresh, func(i, j int) bool {
		return fresh[i].URL < fresh[j].URL
	})
	return fresh
}
