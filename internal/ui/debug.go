package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/codesim/internal/otel"
)

// debugChrome is the height DebugPanel adds: border plus vertical padding.
const debugChrome = 4

const recentEvents = 20

type counter struct {
	kind otel.EventKind
	name string
}

// debugCounters are the overlay's stat rows.
var debugCounters = []struct {
	label  string
	counts []counter
}{
	{"Pages", []counter{
		{otel.KindPageLoaded, "loaded"}, {otel.KindPageCacheHit, "cached"},
		{otel.KindPageStale, "stale"}, {otel.KindPageError, "errors"},
	}},
	{"Compares", []counter{
		{otel.KindCompareStart, "started"}, {otel.KindCompareComplete, "complete"},
		{otel.KindCompareError, "errors"}, {otel.KindCompareRejected, "rejected"},
	}},
	{"Uploads", []counter{
		{otel.KindUploadComplete, "complete"}, {otel.KindUploadError, "errors"},
	}},
}

// debugOverlay renders event counters and the latest events from ring.
// It returns "" when there is no ring.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}
	stats := ring.Stats()

	lines := []string{DebugHeaderStyle.Render("Client Stats")}
	for _, c := range debugCounters {
		vals := make([]string, len(c.counts))
		for i, n := range c.counts {
			vals[i] = fmt.Sprintf("%d %s", stats[n.kind], n.name)
		}
		lines = append(lines, fmt.Sprintf("  %-10s %s", c.label+":", strings.Join(vals, ", ")))
	}
	lines = append(lines,
		fmt.Sprintf("  %-10s %d / %d events (%d total)", "Buffer:", ring.Len(), ring.Cap(), ring.Total()),
		"",
		DebugHeaderStyle.Render("Recent Events"),
	)

	now := time.Now()
	for _, e := range ring.Last(recentEvents) {
		lines = append(lines, "  "+eventLine(e, now))
	}

	if room := height - debugChrome; len(lines) > room {
		lines = lines[:clamp(room, 1, len(lines))]
	}

	w := clamp(width-4, 20, 76)
	return DebugPanel.Width(w).Render(strings.Join(lines, "\n"))
}

func eventLine(e otel.Event, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6s  %-18s", formatAge(now.Sub(e.Time)), e.Kind)
	if e.Mode != "" {
		b.WriteString("  " + e.Mode)
	}
	if e.Page > 0 {
		fmt.Fprintf(&b, "  p%d", e.Page+1)
	}
	if e.Msg != "" {
		b.WriteString("  " + truncateRunes(e.Msg, 40))
	}
	if e.Err != "" {
		b.WriteString("  ERR:" + truncateRunes(e.Err, 30))
	}
	if e.RunID != "" {
		b.WriteString("  run:" + shortID(e.RunID))
	}
	return b.String()
}

// formatAge renders how long ago an event happened. Clock skew can make
// d negative; that shows as 0ms.
func formatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm", d.Minutes())
	default:
		return fmt.Sprintf("%.0fh", d.Hours())
	}
}

func debugStatusBar(width int) string {
	return StatusBar.Width(width).Render("  [DEBUG]  " + StatusBarKey.Render("D") + StatusBarText.Render(":close"))
}
