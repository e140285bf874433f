package scrape

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rules controls how anchors are picked out of a listing page.
type Rules struct {
	// Container scopes the search to one element, e.g. "#documentList".
	Container string
	// Pattern is a substring the href must contain, e.g. "/shiryou/".
	Pattern string
	// Text matches anchors by partial link text, the last resort when the
	// page layout changed and neither container nor path pattern hit.
	Text string
	// Category tags every extracted document.
	Category string
}

// ExtractLinks pulls document links out of page HTML. Strategies are tried
// in order and the first one that yields anything wins:
//
//  1. anchors inside the configured container
//  2. anchors anywhere on the page whose href contains Pattern
//  3. anchors anywhere whose text contains Text
//
// Relative hrefs are resolved against pageURL and duplicates are dropped in
// encounter order.
func ExtractLinks(r io.Reader, pageURL string, rules Rules) ([]Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url: %w", err)
	}

	strategies := []func() []Document{
		func() []Document {
			if rules.Container == "" {
				return nil
			}
			return collect(doc.Find(rules.Container).First().Find("a[href]"), base, rules)
		},
		func() []Document {
			if rules.Pattern == "" {
				return nil
			}
			return collect(doc.Find("a[href]"), base, rules)
		},
		func() []Document {
			if rules.Text == "" {
				return nil
			}
			return collectByText(doc.Find("a[href]"), base, rules)
		},
	}

	for _, try := range strategies {
		if out := try(); len(out) > 0 {
			return dedupe(out), nil
		}
	}
	return nil, nil
}

func collect(sel *goquery.Selection, base *url.URL, rules Rules) []Document {
	var out []Document
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if rules.Pattern != "" && !strings.Contains(href, rules.Pattern) {
			return
		}
		out = append(out, makeDocument(a, href, base, rules.Category))
	})
	return out
}

func collectByText(sel *goquery.Selection, base *url.URL, rules Rules) []Document {
	var out []Document
	sel.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if !strings.Contains(a.Text(), rules.Text) {
			return
		}
		out = append(out, makeDocument(a, href, base, rules.Category))
	})
	return out
}

func makeDocument(a *goquery.Selection, href string, base *url.URL, category string) Document {
	abs := href
	if ref, err := url.Parse(href); err == nil {
		abs = base.ResolveReference(ref).String()
	}
	return Document{
		URL:      abs,
		Title:    strings.Join(strings.Fields(a.Text()), " "),
		Category: category,
	}
}

func dedupe(docs []Document) []Document {
	seen := make(map[string]struct{}, len(docs))
	out := docs[:0]
	for _, d := range docs {
		if _, ok := seen[d.URL]; ok {
			continue
		}
		seen[d.URL] = struct{}{}
		out = append(out, d)
	}
	return out
}
