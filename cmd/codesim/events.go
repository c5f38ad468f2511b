package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// eventRecord is the decoded form of one JSONL event line. It is kept
// separate from otel.Event so old logs still decode after schema changes.
type eventRecord struct {
	Time   time.Time `json:"t"`
	Level  string    `json:"level"`
	Kind   string    `json:"kind"`
	Comp   string    `json:"comp"`
	RunID  string    `json:"run_id"`
	DurMs  float64   `json:"dur_ms"`
	Count  int       `json:"count"`
	Mode   string    `json:"mode"`
	Page   int       `json:"page"`
	FileID int64     `json:"file_id"`
	Err    string    `json:"err"`
	Msg    string    `json:"msg"`
}

type eventFilter struct {
	kind  string
	level string
	comp  string
	run   string
}

// levelRank orders levels for --level (higher is more severe).
func levelRank(level string) int {
	switch level {
	case "info":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.run != "" && !strings.HasPrefix(ev.RunID, f.run) {
		return false
	}
	return true
}

func (c *cli) eventsCmd() *cobra.Command {
	var (
		tail    int
		follow  bool
		rawJSON bool
		date    string
		filter  eventFilter
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the JSONL event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now()
			if date != "" {
				d, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				day = d
			}
			logPath := c.cfg.EventLogPath(day)

			f, err := os.Open(logPath)
			if err != nil {
				return fmt.Errorf("event log not found at %s (run codesim first): %w", logPath, err)
			}
			defer f.Close()

			w := cmd.OutOrStdout()
			emit := func(ev eventRecord, raw []byte) {
				if rawJSON {
					fmt.Fprintln(w, string(raw))
					return
				}
				fmt.Fprintln(w, formatEvent(ev))
			}

			for _, l := range readTailLines(f, tail, filter.match) {
				emit(l.ev, l.raw)
			}
			if !follow {
				return nil
			}

			reader := bufio.NewReader(f)
			for {
				line, err := reader.ReadBytes('\n')
				if err == io.EOF {
					select {
					case <-cmd.Context().Done():
						return nil
					case <-time.After(100 * time.Millisecond):
					}
					continue
				}
				if err != nil {
					return err
				}
				line = trimLine(line)
				var ev eventRecord
				if len(line) == 0 || json.Unmarshal(line, &ev) != nil {
					continue
				}
				if filter.match(ev) {
					emit(ev, line)
				}
			}
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&tail, "tail", "n", 50, "number of recent lines to show")
	fs.BoolVarP(&follow, "follow", "f", false, "keep printing new events")
	fs.BoolVar(&rawJSON, "json", false, "print raw JSON lines")
	fs.StringVar(&date, "date", "", "log day as YYYY-MM-DD (default today)")
	fs.StringVar(&filter.kind, "kind", "", "event kind prefix, e.g. compare")
	fs.StringVar(&filter.level, "level", "", "minimum level: debug, info, warn, error")
	fs.StringVar(&filter.comp, "comp", "", "component name")
	fs.StringVar(&filter.run, "run", "", "comparison run id or prefix")
	return cmd
}

func formatEvent(ev eventRecord) string {
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-7s] %-18s", ev.Time.Local().Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.Mode != "" {
		parts = append(parts, "mode="+ev.Mode)
	}
	if ev.RunID != "" {
		parts = append(parts, "run="+shortRunID(ev.RunID))
	}
	if ev.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", ev.Page))
	}
	if ev.FileID > 0 {
		parts = append(parts, fmt.Sprintf("file=%d", ev.FileID))
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines returns the last n lines of r that match.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	if n <= 0 {
		return nil
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	ring := make([]parsedLine, 0, n)
	for scanner.Scan() {
		raw := scanner.Bytes()
		var ev eventRecord
		if len(raw) == 0 || json.Unmarshal(raw, &ev) != nil || !match(ev) {
			continue
		}
		line := parsedLine{ev: ev, raw: append([]byte(nil), raw...)}
		if len(ring) < n {
			ring = append(ring, line)
		} else {
			copy(ring, ring[1:])
			ring[n-1] = line
		}
	}
	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
