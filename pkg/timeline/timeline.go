/*
Timeline places hold records onto per-key lanes as alternating gap and chunk
segments. Rendering is incremental: every record is drawn exactly once and
lanes are only ever appended to, so the renderer can run on a tight cadence
without rebuilding the surface.
*/
package timeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/pkg/recorder"
)

type SegmentKind string

const (
	// Idle time before a hold
	Gap SegmentKind = "gap"
	// The hold itself
	Chunk SegmentKind = "chunk"
)

// Surface is the drawable substrate the renderer places segments on. Lanes
// are keyed by the key identity; CreateLane must be idempotent per keyID.
type Surface interface {
	CreateLane(keyID, label string)
	AppendSegment(keyID string, kind SegmentKind, widthPx int)
	ScrollToEnd()
	Clear()
}

// lane tracks where drawing stopped on one key's row.
type lane struct {
	label     string
	lastEndMs int64
}

type Renderer struct {
	lock sync.Mutex

	surface Surface
	msPerPx int64

	lanes     map[string]*lane
	laneOrder []string

	// record Seq -> drawn. Membership here is what makes Render idempotent
	drawn map[int]bool

	// high-water mark into the recorder's append-only sequence
	consumed int
}

// New creates a renderer drawing on surface at msPerPx milliseconds per cell.
// A nil surface is a setup error; callers that want a fallback pass
// NewMemorySurface() explicitly.
func New(surface Surface, msPerPx int64) (*Renderer, error) {
	if surface == nil {
		return nil, fmt.Errorf("timeline: no surface to draw on")
	}
	if msPerPx <= 0 {
		msPerPx = cfg.DEFAULT_MS_PER_CELL
	}
	return &Renderer{
		surface: surface,
		msPerPx: msPerPx,
		lanes:   make(map[string]*lane),
		drawn:   make(map[int]bool),
	}, nil
}

// Render draws every record of the snapshot that has not been drawn yet. The
// snapshot must be the recorder's append-only sequence (same or extended
// between calls), so only the suffix past the high-water mark is examined.
//
// New records are ordered by start offset before drawing. Records complete in
// release order, which differs from press order when holds overlap, and lane
// creation should follow chronological first use. Within one lane completion
// order already is chronological since a key has at most one open hold.
func (r *Renderer) Render(snapshot []recorder.Record) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if len(snapshot) <= r.consumed {
		return
	}
	fresh := make([]recorder.Record, len(snapshot)-r.consumed)
	copy(fresh, snapshot[r.consumed:])
	r.consumed = len(snapshot)

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].StartOffsetMs < fresh[j].StartOffsetMs
	})

	// distinct keys in first-encounter order of the sorted batch
	var order []string
	byKey := make(map[string][]recorder.Record)
	for _, rec := range fresh {
		if r.drawn[rec.Seq] {
			continue
		}
		if _, ok := byKey[rec.KeyID]; !ok {
			order = append(order, rec.KeyID)
		}
		byKey[rec.KeyID] = append(byKey[rec.KeyID], rec)
	}

	appended := false
	for _, keyID := range order {
		ln, ok := r.lanes[keyID]
		if !ok {
			ln = &lane{label: byKey[keyID][0].Label}
			r.lanes[keyID] = ln
			r.laneOrder = append(r.laneOrder, keyID)
			r.surface.CreateLane(keyID, ln.label)
		}

		for _, rec := range byKey[keyID] {
			gap := (rec.StartOffsetMs - ln.lastEndMs) / r.msPerPx
			if gap < 0 {
				gap = 0
			}
			chunk := (rec.EndOffsetMs - rec.StartOffsetMs) / r.msPerPx
			r.surface.AppendSegment(keyID, Gap, int(gap))
			r.surface.AppendSegment(keyID, Chunk, int(chunk))
			ln.lastEndMs = rec.EndOffsetMs
			r.drawn[rec.Seq] = true
			appended = true
		}
	}

	if appended {
		r.surface.ScrollToEnd()
	}
}

// Reset forgets all lanes and drawn records and clears the surface. Used when
// the paired recorder starts a fresh session.
func (r *Renderer) Reset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lanes = make(map[string]*lane)
	r.laneOrder = nil
	r.drawn = make(map[int]bool)
	r.consumed = 0
	r.surface.Clear()
}

// LaneEnd reports the last drawn end offset of a lane.
func (r *Renderer) LaneEnd(keyID string) (int64, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	ln, ok := r.lanes[keyID]
	if !ok {
		return 0, false
	}
	return ln.lastEndMs, true
}

// Lanes returns the key identities in lane creation order.
func (r *Renderer) Lanes() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]string, len(r.laneOrder))
	copy(out, r.laneOrder)
	return out
}

// DrawnCount reports how many records have been materialized.
func (r *Renderer) DrawnCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.drawn)
}
