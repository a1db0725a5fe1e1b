package recorder

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestPairProducesRecord(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyDown("KeyA", "a")
	clk.advance(100 * time.Millisecond)
	rec.OnKeyUp("KeyA", "a")

	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.KeyID != "KeyA" || r.Label != "a" {
		t.Fatalf("unexpected record identity: %+v", r)
	}
	if r.StartOffsetMs != 0 || r.EndOffsetMs != 100 {
		t.Fatalf("expected offsets 0..100, got %d..%d", r.StartOffsetMs, r.EndOffsetMs)
	}
	if len(rec.OpenIntervals()) != 0 {
		t.Fatalf("expected no open interval after release")
	}
	if raw := rec.RawEvents(); len(raw) != 2 {
		t.Fatalf("expected 2 raw events, got %d", len(raw))
	}
}

func TestWorkedExample(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyDown("KeyA", "a")
	clk.advance(100 * time.Millisecond)
	rec.OnKeyUp("KeyA", "a")
	clk.advance(50 * time.Millisecond)
	rec.OnKeyDown("KeyA", "a")
	clk.advance(50 * time.Millisecond)
	rec.OnKeyUp("KeyA", "a")

	records := rec.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	want := [][2]int64{{0, 100}, {150, 200}}
	for i, w := range want {
		if records[i].StartOffsetMs != w[0] || records[i].EndOffsetMs != w[1] {
			t.Fatalf("record %d: expected %d..%d, got %d..%d",
				i, w[0], w[1], records[i].StartOffsetMs, records[i].EndOffsetMs)
		}
	}
}

func TestStrayReleaseWarnsWithoutRecord(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyUp("KeyX", "x")

	if len(rec.Records()) != 0 {
		t.Fatalf("stray release must not produce a record")
	}
	select {
	case w := <-rec.Warnings():
		if w.KeyID != "KeyX" {
			t.Fatalf("warning for wrong key: %+v", w)
		}
	default:
		t.Fatalf("expected a warning for the stray release")
	}
	// the stray release still anchors the clock and is logged
	if raw := rec.RawEvents(); len(raw) != 1 || raw[0].SessionOffsetMs != 0 {
		t.Fatalf("expected one raw event at offset 0, got %+v", raw)
	}
}

func TestDuplicatePressKeepsOneInterval(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyDown("KeyA", "a")
	clk.advance(20 * time.Millisecond)
	rec.OnKeyDown("KeyA", "a") // key repeat
	clk.advance(20 * time.Millisecond)

	open := rec.OpenIntervals()
	if len(open) != 1 {
		t.Fatalf("expected exactly one open interval, got %d", len(open))
	}
	if open["KeyA"] != 0 {
		t.Fatalf("repeat must not move the hold start, got %d", open["KeyA"])
	}

	rec.OnKeyUp("KeyA", "a")
	records := rec.Records()
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	if records[0].StartOffsetMs != 0 || records[0].EndOffsetMs != 40 {
		t.Fatalf("expected 0..40, got %d..%d", records[0].StartOffsetMs, records[0].EndOffsetMs)
	}
	select {
	case w := <-rec.Warnings():
		t.Fatalf("duplicate press must not warn, got %+v", w)
	default:
	}
}

func TestOverlappingHolds(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyDown("KeyA", "a")
	clk.advance(10 * time.Millisecond)
	rec.OnKeyDown("KeyB", "b")
	clk.advance(10 * time.Millisecond)
	rec.OnKeyUp("KeyB", "b")
	clk.advance(10 * time.Millisecond)
	rec.OnKeyUp("KeyA", "a")

	records := rec.Records()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// completion order: B first
	if records[0].KeyID != "KeyB" || records[1].KeyID != "KeyA" {
		t.Fatalf("expected completion order B, A; got %s, %s", records[0].KeyID, records[1].KeyID)
	}
	for _, r := range records {
		if r.StartOffsetMs >= r.EndOffsetMs {
			t.Fatalf("expected start < end, got %d..%d for %s", r.StartOffsetMs, r.EndOffsetMs, r.KeyID)
		}
	}
}

func TestMalformedEventDroppedSilently(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyDown("", "ghost")
	rec.OnKeyUp("", "ghost")

	if len(rec.RawEvents()) != 0 {
		t.Fatalf("malformed events must not reach the raw log")
	}
	if len(rec.Records()) != 0 || len(rec.OpenIntervals()) != 0 {
		t.Fatalf("malformed events must not touch recorder state")
	}
	select {
	case w := <-rec.Warnings():
		t.Fatalf("malformed events are dropped silently, got %+v", w)
	default:
	}
}

func TestResetReanchorsClock(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyDown("KeyA", "a")
	clk.advance(100 * time.Millisecond)
	rec.OnKeyUp("KeyA", "a")

	rec.Reset()
	if len(rec.Records()) != 0 || len(rec.RawEvents()) != 0 || len(rec.OpenIntervals()) != 0 {
		t.Fatalf("reset must clear all state")
	}

	// long after the first session, zero must re-anchor
	clk.advance(10 * time.Second)
	rec.OnKeyDown("KeyB", "b")
	open := rec.OpenIntervals()
	if open["KeyB"] != 0 {
		t.Fatalf("expected fresh session to start at offset 0, got %d", open["KeyB"])
	}
}

func TestPauseDropsEventsWithoutClearing(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	rec.OnKeyDown("KeyA", "a")
	rec.Pause()
	clk.advance(50 * time.Millisecond)
	rec.OnKeyUp("KeyA", "a") // dropped
	rec.OnKeyDown("KeyB", "b")

	if len(rec.OpenIntervals()) != 1 {
		t.Fatalf("pause must not clear existing holds")
	}
	if len(rec.RawEvents()) != 1 {
		t.Fatalf("paused events must not be logged")
	}

	rec.Resume()
	clk.advance(50 * time.Millisecond)
	rec.OnKeyUp("KeyA", "a")
	records := rec.Records()
	if len(records) != 1 || records[0].EndOffsetMs != 100 {
		t.Fatalf("expected the hold to close at 100ms after resume, got %+v", records)
	}
}

func TestMonotonicOffsets(t *testing.T) {
	clk := newFakeClock()
	rec := New(clk.Now)

	for i := 0; i < 5; i++ {
		rec.OnKeyDown("KeyA", "a")
		clk.advance(7 * time.Millisecond)
		rec.OnKeyUp("KeyA", "a")
		clk.advance(3 * time.Millisecond)
	}

	var last int64 = -1
	for _, r := range rec.Records() {
		if r.StartOffsetMs > r.EndOffsetMs {
			t.Fatalf("start must not exceed end: %+v", r)
		}
		if r.StartOffsetMs < last {
			t.Fatalf("offsets must follow call order: %+v", rec.Records())
		}
		last = r.EndOffsetMs
	}
}
