/*
Recorder turns a stream of key down/up transitions into an append-only set of
hold records timed relative to the first event of the session.

The first observed event anchors the session clock at zero; every offset after
that is computed against the anchor. Offsets rely on Go's monotonic clock
reading, so a wall clock adjustment mid session does not corrupt them.
*/
package recorder

import (
	"log"
	"sync"
	"time"

	"github.com/keytrace/keytrace/internal/cfg"
)

type EventKind string

const (
	KeyDown EventKind = "KeyDown"
	KeyUp   EventKind = "KeyUp"
)

// RawEvent is the audit log entry kept for every well-formed transition,
// whether or not it produced a record.
type RawEvent struct {
	Kind            EventKind
	KeyID           string
	Label           string
	SessionOffsetMs int64
	AbsoluteTimeMs  int64
}

// Record is one completed hold: key pressed at StartOffsetMs, released at
// EndOffsetMs. Records are immutable once appended. Seq is the insertion
// sequence number and identifies the record downstream.
type Record struct {
	Seq           int
	KeyID         string
	Label         string
	StartOffsetMs int64
	EndOffsetMs   int64
}

// Warning reports a recoverable oddity in the input stream, currently only
// stray releases (key up with no open hold, e.g. after focus loss).
type Warning struct {
	KeyID    string
	Label    string
	OffsetMs int64
	Reason   string
}

type Recorder struct {
	lock sync.Mutex

	now func() time.Time

	// session clock anchor. Set by the first event, cleared by Reset
	zero     time.Time
	anchored bool

	// keyID -> start offset of the one open hold for that key
	open map[string]int64

	records []Record
	rawLog  []RawEvent

	paused   bool
	warnings chan Warning
}

// New creates a recorder. nowFunc may be nil to use time.Now; tests inject a
// fake clock here.
func New(nowFunc func() time.Time) *Recorder {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Recorder{
		now:      nowFunc,
		open:     make(map[string]int64),
		warnings: make(chan Warning, cfg.RECORDER_WARNING_BUFFER),
	}
}

// OnKeyDown opens a hold for keyID. A down while the key is already held is a
// no-op so key repeat does not spawn extra holds. Events with an empty keyID
// are malformed and dropped before any logging.
func (r *Recorder) OnKeyDown(keyID, label string) {
	if keyID == "" {
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.paused {
		return
	}

	offset, abs := r.clock()
	r.rawLog = append(r.rawLog, RawEvent{KeyDown, keyID, label, offset, abs})

	if _, ok := r.open[keyID]; ok {
		return
	}
	r.open[keyID] = offset
}

// OnKeyUp closes the open hold for keyID and appends a record. A release with
// no open hold is recoverable: it is reported on the warning channel and
// changes nothing else.
func (r *Recorder) OnKeyUp(keyID, label string) {
	if keyID == "" {
		return
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	if r.paused {
		return
	}

	offset, abs := r.clock()
	r.rawLog = append(r.rawLog, RawEvent{KeyUp, keyID, label, offset, abs})

	start, ok := r.open[keyID]
	if !ok {
		r.warn(Warning{KeyID: keyID, Label: label, OffsetMs: offset, Reason: "release without a matching press"})
		return
	}

	r.records = append(r.records, Record{
		Seq:           len(r.records),
		KeyID:         keyID,
		Label:         label,
		StartOffsetMs: start,
		EndOffsetMs:   offset,
	})
	delete(r.open, keyID)
}

// clock anchors the session on first use and returns the current session
// offset plus the absolute epoch milliseconds. Callers hold the lock.
func (r *Recorder) clock() (int64, int64) {
	t := r.now()
	if !r.anchored {
		r.zero = t
		r.anchored = true
	}
	return t.Sub(r.zero).Milliseconds(), t.UnixMilli()
}

func (r *Recorder) warn(w Warning) {
	log.Printf("Recorder warning: %s %s at %dms", w.KeyID, w.Reason, w.OffsetMs)
	select {
	case r.warnings <- w:
	default:
		// a slow consumer loses warnings, never blocks recording
	}
}

// Warnings exposes the stray-release reports. The channel is buffered and
// never closed for the life of the recorder.
func (r *Recorder) Warnings() <-chan Warning {
	return r.warnings
}

// Records returns a snapshot copy of the completed holds in completion order.
func (r *Recorder) Records() []Record {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// RawEvents returns a snapshot copy of the audit log.
func (r *Recorder) RawEvents() []RawEvent {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]RawEvent, len(r.rawLog))
	copy(out, r.rawLog)
	return out
}

// OpenIntervals returns a copy of the currently held keys and their start
// offsets. Mainly for diagnostics and tests.
func (r *Recorder) OpenIntervals() map[string]int64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make(map[string]int64, len(r.open))
	for k, v := range r.open {
		out[k] = v
	}
	return out
}

// Reset starts a fresh session: clears the clock anchor, open holds, records
// and the raw log. The next event re-anchors zero.
func (r *Recorder) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.anchored = false
	r.zero = time.Time{}
	r.open = make(map[string]int64)
	r.records = nil
	r.rawLog = nil
}

// Pause makes all incoming events no-ops without touching existing state.
func (r *Recorder) Pause() {
	r.lock.Lock()
	r.paused = true
	r.lock.Unlock()
}

func (r *Recorder) Resume() {
	r.lock.Lock()
	r.paused = false
	r.lock.Unlock()
}

func (r *Recorder) Paused() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.paused
}
