package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/pkg/message"
)

// upgrade an http request to websocket
var httpUpgrader = websocket.Upgrader{
	ReadBufferSize:  cfg.SERVER_READ_BUFFER_SIZE,
	WriteBufferSize: cfg.SERVER_WRITE_BUFFER_SIZE,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var decoder = schema.NewDecoder()

const (
	// Time to wait for the first client info message
	CLIENT_INFO_DEADLINE = 5 * time.Second
)

/*** Health check API ***/
func handleHealth(w http.ResponseWriter, r *http.Request) {
	log.Printf("health check")
	fmt.Fprintf(w, "I'm fine: %s\n", time.Now().String())
}

/*** List sessions API ***/
// Queries:
// - status - string : Status of sessions to query. Leave blank to get any
// - n - int         : Number of sessions to get. Set to 0 to get all
// - skip - int      : Number of sessions to skip. Used for paging
type ListSessionQuery struct {
	Status string `schema:"status"`
	N      int    `schema:"n"`
	Skip   int    `schema:"skip"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var q ListSessionQuery
	err := decoder.Decode(&q, r.URL.Query())
	if err != nil {
		log.Printf("Failed to decode query: %s", err)
		http.Error(w, fmt.Sprintf("%s", err), 400)
		return
	}

	var sessions []message.SessionInfo
	switch q.Status {
	case string(message.SStopped):
		sessions, err = s.db.GetSessions([]message.SessionStatus{message.SStopped}, q.Skip, q.N)
	case string(message.SCapturing):
		sessions, err = s.db.GetSessions([]message.SessionStatus{message.SCapturing}, q.Skip, q.N)
	case "":
		sessions, err = s.db.GetSessions([]message.SessionStatus{message.SCapturing, message.SStopped}, q.Skip, q.N)
	default:
		http.Error(w, "Invalid status", 400)
		return
	}
	if err != nil {
		log.Printf("Failed to list sessions: %s", err)
		http.Error(w, "Failed to list sessions", 500)
		return
	}
	json.NewEncoder(w).Encode(sessions)
}

/*** Capture page ***/
var pageTemplate = template.Must(template.New("capture").Parse(capturePage))

func (s *Server) handleCapturePage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionName := vars["sessionName"]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, struct {
		SessionName string
		Version     string
	}{sessionName, cfg.SERVER_VERSION})
	if err != nil {
		log.Printf("Failed to render capture page: %s", err)
	}
}

/*** Websocket connection for
- capture sources
- viewers

Every connection must send a ClientInfo message first. A source is verified
against the session secret; the first source for an unknown session name
creates the session.
***/
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionName := vars["sessionName"]
	log.Printf("new connection at session: %s", sessionName)

	conn, err := httpUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade to websocket: %s", err)
		return
	}
	defer conn.Close()

	// Wait for client info
	msg := message.Wrapper{}
	conn.SetReadDeadline(time.Now().Add(CLIENT_INFO_DEADLINE))
	err = conn.ReadJSON(&msg)
	conn.SetReadDeadline(time.Time{}) // no timeout for future requests

	if err != nil || msg.Type != message.TClientInfo {
		log.Printf("Required client info message, got: %s", msg.Type)
		return
	}

	clientInfo := message.ClientInfo{}
	if err := message.ToStruct(msg.Data, &clientInfo); err != nil {
		log.Printf("Failed to decode client info: %s", err)
		return
	}

	switch clientInfo.Role {

	case message.RSource:
		h, ok := s.GetSession(sessionName)
		if !ok {
			if clientInfo.Secret == "" {
				conn.WriteJSON(message.Wrapper{Type: message.TUnauthorized})
				return
			}
			h, err = s.NewSession(sessionName, clientInfo.Name, clientInfo.Secret)
			if err != nil {
				log.Printf("Failed to create session: %s", err)
				return
			}
		} else if h.Secret() != clientInfo.Secret {
			conn.WriteJSON(message.Wrapper{Type: message.TUnauthorized})
			log.Printf("Unauthorized source for session: %s", sessionName)
			return
		}
		conn.WriteJSON(message.Wrapper{Type: message.TAuthorized})

		h.AddSource(conn)
		h.Start() // blocking until the source leaves

		if err := s.db.UpdateSessions(map[uint64]message.SessionInfo{h.Id(): h.Summary()}); err != nil {
			log.Printf("Failed to update session registry: %s", err)
		}
		return

	case message.RViewer:
		h, ok := s.GetSession(sessionName)
		if !ok {
			conn.WriteJSON(message.Wrapper{Type: message.TError, Data: []byte(`"Session not existed"`)})
			return
		}
		clientID := h.NewClientID()
		h.AddClient(clientID, message.RViewer, conn) // blocking
		return

	default:
		log.Printf("Invalid client role: %s", clientInfo.Role)
	}
}
