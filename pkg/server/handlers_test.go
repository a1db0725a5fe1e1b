package server

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/keytrace/keytrace/pkg/message"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New("localhost:0", filepath.Join(t.TempDir(), "test"))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { s.db.Close() })
	return s
}

func addSessions(t *testing.T, s *Server) {
	t.Helper()
	now := time.Now()
	for _, info := range []message.SessionInfo{
		{Name: "alpha", Status: message.SCapturing, StartedTime: now},
		{Name: "beta", Status: message.SStopped, StartedTime: now},
		{Name: "gamma", Status: message.SCapturing, StartedTime: now},
	} {
		if _, err := s.db.AddSession(info); err != nil {
			t.Fatalf("add session: %v", err)
		}
	}
}

func TestListSessions(t *testing.T) {
	s := newTestServer(t)
	addSessions(t, s)

	r := httptest.NewRequest("GET", "/api/sessions", nil)
	w := httptest.NewRecorder()
	s.handleListSessions(w, r)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sessions []message.SessionInfo
	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(sessions))
	}
	// latest first
	if sessions[0].Name != "gamma" {
		t.Fatalf("expected newest session first, got %s", sessions[0].Name)
	}
}

func TestListSessionsFilterAndPaging(t *testing.T) {
	s := newTestServer(t)
	addSessions(t, s)

	r := httptest.NewRequest("GET", "/api/sessions?status=Capturing&n=1", nil)
	w := httptest.NewRecorder()
	s.handleListSessions(w, r)

	var sessions []message.SessionInfo
	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Status != message.SCapturing {
		t.Fatalf("expected one capturing session, got %+v", sessions)
	}
}

func TestListSessionsRejectsBadStatus(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest("GET", "/api/sessions?status=Nonsense", nil)
	w := httptest.NewRecorder()
	s.handleListSessions(w, r)

	if w.Code != 400 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCapturePageEmbedsSessionName(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest("GET", "/s/demo", nil)
	r = mux.SetURLVars(r, map[string]string{"sessionName": "demo"})
	w := httptest.NewRecorder()
	s.handleCapturePage(w, r)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "keytrace session: demo") {
		t.Fatalf("capture page must name the session")
	}
	if !strings.Contains(body, "/s/demo/ws") {
		t.Fatalf("capture page must dial the session websocket")
	}
}

func TestNewSessionRegisters(t *testing.T) {
	s := newTestServer(t)

	h, err := s.NewSession("demo", "Demo", GenSecret("demo"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if h.Id() == 0 {
		t.Fatalf("expected the session to get a registry id")
	}
	if _, err := s.NewSession("demo", "Demo", "other"); err == nil {
		t.Fatalf("expected duplicate session name to fail")
	}

	sessions, err := s.db.GetSessions([]message.SessionStatus{message.SCapturing}, 0, 0)
	if err != nil {
		t.Fatalf("get sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Name != "demo" {
		t.Fatalf("expected the registry to hold the session, got %+v", sessions)
	}
}

func TestGenSecretIsStable(t *testing.T) {
	if GenSecret("demo") != GenSecret("demo") {
		t.Fatalf("secret derivation must be deterministic")
	}
	if GenSecret("demo") == GenSecret("other") {
		t.Fatalf("different keys must not collide")
	}
}
