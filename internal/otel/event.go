// Package otel records what the client does as structured events.
//
// Every event is one JSONL line in the day's event log. A Logger writes
// them from a background goroutine so the UI loop never waits on disk,
// and an optional RingBuffer keeps the latest events in memory for the
// debug overlay.
package otel

import (
	"encoding/json"
	"time"
)

// Level is event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind names an event as "<subsystem>.<action>".
type EventKind string

const (
	// Library paging
	KindPageRequest  EventKind = "page.request"
	KindPageLoaded   EventKind = "page.loaded"
	KindPageStale    EventKind = "page.stale"
	KindPageError    EventKind = "page.error"
	KindPageCacheHit EventKind = "page.cache_hit"

	// Comparisons
	KindCompareStart    EventKind = "compare.start"
	KindComparePage     EventKind = "compare.page"
	KindCompareComplete EventKind = "compare.complete"
	KindCompareError    EventKind = "compare.error"
	KindCompareRejected EventKind = "compare.rejected"

	// Uploads
	KindUploadStart    EventKind = "upload.start"
	KindUploadComplete EventKind = "upload.complete"
	KindUploadError    EventKind = "upload.error"

	KindStoreError EventKind = "store.error"
	KindKeyPress   EventKind = "ui.key"

	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is one record. Only Kind is required; Emit fills Time and
// SessionID.
type Event struct {
	Time      time.Time     `json:"t"`
	Level     Level         `json:"level,omitempty"`
	Kind      EventKind     `json:"kind"`
	Comp      string        `json:"comp,omitempty"` // "compare", "library", "upload", "ui", "main"
	SessionID string        `json:"session_id,omitempty"`
	RunID     string        `json:"run_id,omitempty"`
	Dur       time.Duration `json:"-"`
	Count     int           `json:"count,omitempty"`
	Mode      string        `json:"mode,omitempty"`
	Page      int           `json:"page,omitempty"`
	FileID    int64         `json:"file_id,omitempty"`
	Err       string        `json:"err,omitempty"`
	Msg       string        `json:"msg,omitempty"`
}

// MarshalJSON writes Dur as fractional milliseconds under "dur_ms".
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	out := struct {
		plain
		DurMs float64 `json:"dur_ms,omitempty"`
	}{plain: plain(e)}
	if e.Dur > 0 {
		out.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(out)
}
