package gate

import (
	"strings"
	"testing"
	"time"
)

var testWindows = []Window{
	{Name: "morning", Target: 7 * 60},
	{Name: "evening", Target: 16*60 + 30},
}

func at(t *testing.T, clock string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", "2026-03-10 "+clock)
	if err != nil {
		t.Fatal(err)
	}
	return ts.UTC()
}

func TestShouldSendAtTarget(t *testing.T) {
	g := New(testWindows, 8, time.UTC)

	d := g.ShouldSend(at(t, "07:00"), nil, false)
	if !d.Allowed {
		t.Fatal("expected send allowed exactly at target")
	}
	if d.WindowKey != "2026-03-10/morning" {
		t.Fatalf("unexpected window key: %q", d.WindowKey)
	}
}

func TestShouldSendWithinTolerance(t *testing.T) {
	g := New(testWindows, 8, time.UTC)

	if d := g.ShouldSend(at(t, "16:38"), nil, false); !d.Allowed {
		t.Fatal("expected send allowed at target+tolerance")
	}
	if d := g.ShouldSend(at(t, "16:39"), nil, false); d.Allowed {
		t.Fatal("expected send denied at target+tolerance+1")
	}
}

func TestShouldSendOutsideAllWindows(t *testing.T) {
	g := New(testWindows, 8, time.UTC)

	if d := g.ShouldSend(at(t, "12:00"), nil, false); d.Allowed {
		t.Fatal("expected send denied outside all windows")
	}
}

func TestShouldSendDeniesRecordedWindow(t *testing.T) {
	g := New(testWindows, 8, time.UTC)
	sent := map[string]bool{"2026-03-10/morning": true}

	if d := g.ShouldSend(at(t, "07:03"), sent, false); d.Allowed {
		t.Fatal("expected second send in the same window to be denied")
	}

	// The evening window has its own key and is unaffected.
	if d := g.ShouldSend(at(t, "16:30"), sent, false); !d.Allowed {
		t.Fatal("expected evening window to remain open")
	}
}

func TestShouldSendNextDayReopensWindow(t *testing.T) {
	g := New(testWindows, 8, time.UTC)
	sent := map[string]bool{"2026-03-10/morning": true}

	next, err := time.Parse("2006-01-02 15:04", "2026-03-11 07:00")
	if err != nil {
		t.Fatal(err)
	}
	d := g.ShouldSend(next.UTC(), sent, false)
	if !d.Allowed || d.WindowKey != "2026-03-11/morning" {
		t.Fatalf("expected fresh key next day, got %+v", d)
	}
}

func TestShouldSendForcedBypassesEverything(t *testing.T) {
	g := New(testWindows, 8, time.UTC)
	sent := map[string]bool{"2026-03-10/morning": true}

	d := g.ShouldSend(at(t, "07:00"), sent, true)
	if !d.Allowed {
		t.Fatal("expected forced send to be allowed")
	}
	if !strings.HasPrefix(d.WindowKey, "forced-") {
		t.Fatalf("expected one-off forced key, got %q", d.WindowKey)
	}

	d2 := g.ShouldSend(at(t, "12:00"), map[string]bool{d.WindowKey: true}, true)
	if !d2.Allowed || d2.WindowKey == d.WindowKey {
		t.Fatalf("forced keys must be unique, got %q twice", d.WindowKey)
	}
}

func TestNoWindowsAlwaysAllows(t *testing.T) {
	g := New(nil, 0, time.UTC)

	d := g.ShouldSend(at(t, "03:17"), nil, false)
	if !d.Allowed {
		t.Fatal("expected untimed gate to allow")
	}
	if d.WindowKey != "" {
		t.Fatalf("untimed gate must not produce a key, got %q", d.WindowKey)
	}
}

func TestOverlappingWindowsFirstMatchWins(t *testing.T) {
	overlapping := []Window{
		{Name: "first", Target: 10 * 60},
		{Name: "second", Target: 10*60 + 5},
	}
	g := New(overlapping, 8, time.UTC)

	d := g.ShouldSend(at(t, "10:04"), nil, false)
	if !d.Allowed || !strings.HasSuffix(d.WindowKey, "/first") {
		t.Fatalf("expected first declared window to win, got %+v", d)
	}
}

func TestTimezoneConversion(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	g := New(testWindows, 8, tokyo)

	// 22:00 UTC = 07:00 JST next day.
	now, err := time.Parse("2006-01-02 15:04", "2026-03-09 22:00")
	if err != nil {
		t.Fatal(err)
	}
	d := g.ShouldSend(now.UTC(), nil, false)
	if !d.Allowed || d.WindowKey != "2026-03-10/morning" {
		t.Fatalf("expected JST morning window, got %+v", d)
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("16:30")
	if err != nil {
		t.Fatal(err)
	}
	if m != 16*60+30 {
		t.Fatalf("expected 990, got %d", m)
	}
	if _, err := ParseClock("25:61"); err == nil {
		t.Fatal("expected error for invalid clock time")
	}
}
