/*
A session wires one recorder to one renderer and drives the periodic draw
loop. Stopping a session tears the loop down cleanly; nothing keeps ticking
against a dead recorder.
*/
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/pkg/recorder"
	"github.com/keytrace/keytrace/pkg/timeline"
)

type Session struct {
	lock sync.Mutex

	// serializes render passes against Reset, so a snapshot taken before a
	// reset can never be drawn after it
	renderLock sync.Mutex

	rec      *recorder.Recorder
	ren      *timeline.Renderer
	interval time.Duration

	done    chan struct{}
	running bool
}

// Handle exposes the live recorder and renderer of a started session for
// interactive inspection, plus the stop function for teardown.
type Handle struct {
	Recorder *recorder.Recorder
	Renderer *timeline.Renderer
	Stop     func()
}

// New binds a recorder and renderer. refreshMs is the render cadence;
// non-positive values fall back to the default.
func New(rec *recorder.Recorder, ren *timeline.Renderer, refreshMs int) *Session {
	if refreshMs <= 0 {
		refreshMs = cfg.DEFAULT_REFRESH_INTERVAL
	}
	return &Session{
		rec:      rec,
		ren:      ren,
		interval: time.Duration(refreshMs) * time.Millisecond,
	}
}

// Start launches the render loop and returns the diagnostics handle.
func (s *Session) Start() (*Handle, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.running {
		return nil, fmt.Errorf("session already started")
	}
	s.done = make(chan struct{})
	s.running = true

	go s.loop(s.done)

	return &Handle{
		Recorder: s.rec,
		Renderer: s.ren,
		Stop:     s.Stop,
	}, nil
}

func (s *Session) loop(done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.renderPass()
		}
	}
}

// renderPass snapshots the recorder and draws, as one atomic step with respect
// to Reset.
func (s *Session) renderPass() {
	s.renderLock.Lock()
	defer s.renderLock.Unlock()
	s.ren.Render(s.rec.Records())
}

// Stop halts the render loop. Safe to call more than once.
func (s *Session) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.running {
		return
	}
	close(s.done)
	s.running = false
}

// RenderOnce draws on demand, outside the periodic cadence.
func (s *Session) RenderOnce() {
	s.renderPass()
}

// Reset starts a fresh capture: the recorder drops all state and re-anchors
// its clock on the next event, the renderer starts over on a cleared surface.
// Holding the render lock keeps a snapshot taken before the reset from being
// drawn after it.
func (s *Session) Reset() {
	s.renderLock.Lock()
	defer s.renderLock.Unlock()
	s.rec.Reset()
	s.ren.Reset()
}

func (s *Session) Recorder() *recorder.Recorder {
	return s.rec
}

func (s *Session) Renderer() *timeline.Renderer {
	return s.ren
}

func (s *Session) Running() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.running
}
