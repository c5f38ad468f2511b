package otel

import (
	"os"
	"sync/atomic"
)

// TraceEnv enables per-key UI events when set to any non-empty value.
const TraceEnv = "CODESIM_TRACE"

var tracing atomic.Bool

func init() {
	tracing.Store(os.Getenv(TraceEnv) != "")
}

// TraceEnabled reports whether key-level UI events should be emitted.
func TraceEnabled() bool {
	return tracing.Load()
}
