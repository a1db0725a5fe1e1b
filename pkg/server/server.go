/*
Roles of server:
- Serve the browser capture page for a session
- Receive key transitions from capture sources and fan them out to viewers
- Keep the session registry
*/
package server

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/pkg/hub"
	"github.com/keytrace/keytrace/pkg/message"
)

type Server struct {
	lock   sync.RWMutex
	hubs   map[string]*hub.Hub
	addr   string
	db     *DB
	server *http.Server
}

func New(addr, dbPath string) (*Server, error) {
	db, err := SetupDB(dbPath)
	if err != nil {
		return nil, err
	}
	return &Server{
		addr: addr,
		hubs: make(map[string]*hub.Hub),
		db:   db,
	}, nil
}

func (s *Server) NewSession(name, title, secret string) (*hub.Hub, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.hubs[name]; ok {
		return nil, fmt.Errorf("Session %s existed", name)
	}

	h := hub.New(name, title, secret)
	id, err := s.db.AddSession(h.Summary())
	if err != nil {
		log.Printf("Failed to register session %s: %s", name, err)
	} else {
		h.SetId(id)
	}

	s.hubs[name] = h
	log.Printf("Created new session: %s", name)
	return h, nil
}

func (s *Server) GetSession(name string) (*hub.Hub, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	h, ok := s.hubs[name]
	return h, ok
}

func (s *Server) Start() {
	router := mux.NewRouter()

	router.HandleFunc("/health", handleHealth)
	router.HandleFunc("/api/sessions", s.handleListSessions).Methods("GET")
	router.HandleFunc("/s/{sessionName}", s.handleCapturePage).Methods("GET")
	router.HandleFunc("/s/{sessionName}/ws", s.handleWS)

	handler := cors.Default().Handler(router)
	s.server = &http.Server{Addr: s.addr, Handler: handler}
	log.Printf("Serving at: %s", s.addr)

	go s.cleanSessions(cfg.SERVER_CLEAN_INTERVAL, cfg.SERVER_CLEAN_THRESHOLD)

	if err := s.server.ListenAndServe(); err != nil { // blocking call
		log.Printf("Server stopped: %s", err)
	}
}

func (s *Server) Stop() {
	s.server.Close()
	s.db.Close()
}

// Scan for sessions that are idle beyond the threshold and remove them.
// All units are in seconds.
func (s *Server) cleanSessions(interval, idleThreshold int) {
	tick := time.NewTicker(time.Duration(interval) * time.Second)
	for range tick.C {
		c := s.scanAndCleanSessions(idleThreshold)
		if c > 0 {
			log.Printf("Cleaned %d sessions", c)
		}
	}
}

func (s *Server) scanAndCleanSessions(idleThreshold int) int {
	threshold := time.Duration(idleThreshold) * time.Second
	count := 0

	s.lock.Lock()
	var idle []*hub.Hub
	for name, h := range s.hubs {
		if time.Since(h.LastActiveTime()) > threshold {
			idle = append(idle, h)
			delete(s.hubs, name)
			count += 1
			log.Printf("Removed session: %s because of idle", name)
		}
	}
	s.lock.Unlock()

	updates := make(map[uint64]message.SessionInfo)
	for _, h := range idle {
		h.Stop(message.SStopped)
		updates[h.Id()] = h.Summary()
	}
	if len(updates) > 0 {
		if err := s.db.UpdateSessions(updates); err != nil {
			log.Printf("Failed to update session registry: %s", err)
		}
	}
	return count
}

// GenSecret derives a capture source secret from a key.
func GenSecret(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}
