// Package notify composes and delivers the verdict notification.
package notify

import (
	"fmt"
	"strings"

	"docwatch/internal/scrape"
)

// The first line of every notification is exactly one of these two values;
// downstream mail filters key on it.
const (
	VerdictUpdated    = "Updated"
	VerdictNotUpdated = "Not updated"
)

// Compose renders the plain-text notification body for a set of newly seen
// documents. Empty input yields the bare "Not updated" verdict; otherwise
// the verdict line is followed by a blank line and a bulleted title list,
// truncated at maxList with a "(+N more)" summary.
func Compose(fresh []scrape.Document, maxList int) string {
	if len(fresh) == 0 {
		return VerdictNotUpdated
	}

	var b strings.Builder
	b.WriteString(VerdictUpdated)
	b.WriteString("\n")

	n := len(fresh)
	if maxList > 0 && n > maxList {
		n = maxList
	}
	for _, d := range fresh[:n] {
		title := d.Title
		if title == "" {
			title = d.URL
		}
		if d.Category != "" {
			fmt.Fprintf(&b, "\n- %s [%s]", title, d.Category)
		} else {
			fmt.Fprintf(&b, "\n- %s", title)
		}
	}
	if rest := len(fresh) - n; rest > 0 {
		fmt.Fprintf(&b, "\n(+%d more)", rest)
	}
	return b.String()
}
