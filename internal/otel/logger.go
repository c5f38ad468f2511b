package otel

import (
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/codesim/internal/logging"
)

// queueSize bounds events waiting for the writer. Emit drops rather than
// blocks when it is full.
const queueSize = 4096

// Logger writes events as JSONL from a background goroutine. A nil
// *Logger is valid and discards everything, so components can take an
// optional logger without guarding each call.
type Logger struct {
	session string
	w       io.Writer
	queue   chan Event
	ring    atomic.Pointer[RingBuffer]
	dropped atomic.Uint64
	done    chan struct{}

	mu     sync.RWMutex // held for writing only to close queue
	closed bool
}

// NewLogger starts a Logger writing to w. Close flushes and stops it.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		session: uuid.NewString(),
		w:       w,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger returns a Logger that only feeds its ring buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// run is the only writer to l.w.
func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		line, err := json.Marshal(e)
		if err == nil {
			_, err = l.w.Write(append(line, '\n'))
		}
		if err != nil {
			l.dropped.Add(1)
		}
		if rb := l.ring.Load(); rb != nil {
			rb.Push(e)
		}
	}
}

// Emit queues e. It never blocks: when the queue is full or the logger is
// closed the event is counted in Dropped instead.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.queue <- e:
	default:
		l.dropped.Add(1)
	}
}

func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error records err; a nil err is recorded with an empty message.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// SetRingBuffer mirrors every written event into rb.
func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	if l != nil {
		l.ring.Store(rb)
	}
}

// Session is the id stamped on every event from this logger.
func (l *Logger) Session() string {
	if l == nil {
		return ""
	}
	return l.session
}

// Dropped counts events lost to a full queue, a closed logger, or a
// failed write.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close drains queued events and stops the writer. Later Emits are
// dropped. Close is idempotent.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	<-l.done
	if d := l.dropped.Load(); d > 0 {
		logging.Warn("events dropped", "count", d, "session", l.session)
	}
}
