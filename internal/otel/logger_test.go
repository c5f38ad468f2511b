package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestEmitWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Level: LevelInfo, Kind: KindCompareStart, Comp: "compare", RunID: "r-1", Mode: "pairwise"})
	l.Emit(Event{Level: LevelInfo, Kind: KindCompareComplete, Comp: "compare", RunID: "r-1", Dur: 1500 * time.Microsecond, Count: 3})
	l.Close()

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["kind"] != "compare.start" || lines[0]["mode"] != "pairwise" {
		t.Errorf("unexpected first event %v", lines[0])
	}
	if lines[1]["dur_ms"] != 1.5 {
		t.Errorf("dur_ms = %v, want 1.5", lines[1]["dur_ms"])
	}
	if lines[1]["count"] != float64(3) {
		t.Errorf("count = %v, want 3", lines[1]["count"])
	}
	if _, ok := lines[0]["dur_ms"]; ok {
		t.Error("zero duration should be omitted")
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Info(KindStartup, "main", "started")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.Emit(Event{Kind: KindShutdown, Time: fixed})
	l.Close()

	dec := json.NewDecoder(&buf)
	var first, second Event
	if err := dec.Decode(&first); err != nil {
		t.Fatal(err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatal(err)
	}

	if first.Time.Before(before) {
		t.Errorf("time not stamped: %v", first.Time)
	}
	if !second.Time.Equal(fixed) {
		t.Errorf("explicit time overwritten: %v", second.Time)
	}
	if first.SessionID == "" || first.SessionID != l.Session() || second.SessionID != l.Session() {
		t.Errorf("session ids %q %q, want %q", first.SessionID, second.SessionID, l.Session())
	}
}

func TestSessionsDiffer(t *testing.T) {
	a, b := NewNullLogger(), NewNullLogger()
	defer a.Close()
	defer b.Close()
	if a.Session() == b.Session() {
		t.Error("two loggers share a session id")
	}
}

func TestHelpersSetLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Info(KindUploadStart, "upload", "3 files")
	l.Warn(KindCompareRejected, "ui", "needs 2 files")
	l.Error(KindUploadError, "upload", errors.New("413"))
	l.Error(KindStoreError, "main", nil)
	l.Close()

	lines := decodeLines(t, &buf)
	want := []string{"info", "warn", "error", "error"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines", len(lines))
	}
	for i, lvl := range want {
		if lines[i]["level"] != lvl {
			t.Errorf("line %d level = %v, want %s", i, lines[i]["level"], lvl)
		}
	}
	if lines[2]["err"] != "413" {
		t.Errorf("err = %v", lines[2]["err"])
	}
	if _, ok := lines[3]["err"]; ok {
		t.Error("nil error should leave err empty")
	}
}

func TestRingBufferMirrorsEvents(t *testing.T) {
	ring := NewRingBuffer(8)
	l := NewNullLogger()
	l.SetRingBuffer(ring)

	l.Emit(Event{Kind: KindPageRequest, Page: 2})
	l.Emit(Event{Kind: KindPageLoaded, Page: 2, Dur: time.Second})
	l.Close()

	got := ring.Snapshot()
	if len(got) != 2 {
		t.Fatalf("ring has %d events", len(got))
	}
	if got[1].Dur != time.Second {
		t.Error("ring copy should keep Dur")
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Close()
	l.Emit(Event{Kind: KindStartup})
	l.Close()

	if buf.Len() != 0 {
		t.Error("nothing should be written after Close")
	}
	if l.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", l.Dropped())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteFailuresCountAsDropped(t *testing.T) {
	l := NewLogger(failingWriter{})
	l.Emit(Event{Kind: KindStartup})
	l.Emit(Event{Kind: KindShutdown})
	l.Close()
	if l.Dropped() != 2 {
		t.Errorf("dropped = %d, want 2", l.Dropped())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "x")
	l.Error(KindStoreError, "main", errors.New("x"))
	l.SetRingBuffer(NewRingBuffer(1))
	l.Close()
	if l.Dropped() != 0 || l.Session() != "" {
		t.Error("nil logger should report zero values")
	}
}

func TestConcurrentEmitAndClose(t *testing.T) {
	ring := NewRingBuffer(10000)
	l := NewNullLogger()
	l.SetRingBuffer(ring)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				l.Emit(Event{Kind: KindPageCacheHit, Page: i})
			}
		}()
	}
	go l.Close()
	wg.Wait()
	l.Close()

	if got := uint64(ring.Len()) + l.Dropped(); got != 1600 {
		t.Errorf("written + dropped = %d, want 1600", got)
	}
}
