// Package gate decides whether the current invocation may send a
// notification. Sends are confined to fixed daily windows in a fixed time
// zone, with a tolerance wide enough to absorb scheduler jitter, and at
// most one send per window per calendar day.
package gate

import (
	"fmt"
	"time"
)

// Window is a daily send slot. Target is the minute of day in the gate's
// time zone, e.g. 07:00 = 420.
type Window struct {
	Name   string
	Target int
}

// Decision is the outcome of a gate check. WindowKey is non-empty when the
// send must be recorded in the ledger afterwards.
type Decision struct {
	Allowed   bool
	WindowKey string
}

type Gate struct {
	windows   []Window
	tolerance int
	loc       *time.Location
}

// New builds a Gate. A gate with no windows allows every run (the untimed
// variant) and never produces a window key.
func New(windows []Window, toleranceMinutes int, loc *time.Location) *Gate {
	if toleranceMinutes <= 0 {
		toleranceMinutes = 8
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Gate{windows: windows, tolerance: toleranceMinutes, loc: loc}
}

// ShouldSend checks now against the configured windows and the ledger of
// window keys already satisfied. A forced send bypasses the windows with a
// unique one-off key so it is never deduplicated.
//
// Windows are checked in declaration order and the first one whose target
// is within tolerance decides; an already recorded key denies the send even
// if a later window would also match.
func (g *Gate) ShouldSend(now time.Time, sent map[string]bool, forced bool) Decision {
	if forced {
		return Decision{Allowed: true, WindowKey: fmt.Sprintf("forced-%d", now.UnixNano())}
	}
	if len(g.windows) == 0 {
		return Decision{Allowed: true}
	}

	local := now.In(g.loc)
	minute := local.Hour()*60 + local.Minute()
	day := local.Format("2006-01-02")

	for _, w := range g.windows {
		d := minute - w.Target
		if d < 0 {
			d = -d
		}
		if d > g.tolerance {
			continue
		}
		key := day + "/" + w.Name
		if sent[key] {
			return Decision{}
		}
		return Decision{Allowed: true, WindowKey: key}
	}
	return Decision{}
}

// ParseClock converts "HH:MM" to a minute of day.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
