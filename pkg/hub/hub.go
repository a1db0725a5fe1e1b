/*
A hub is a virtual object that wraps one capture source and multiple timeline
viewers together. It buffers every key event of the session so a viewer that
joins late can rebuild the whole timeline before going live.
*/
package hub

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/keytrace/keytrace/pkg/message"
)

type Hub struct {
	lock sync.Mutex

	name   string
	id     uint64 // Id in DB
	title  string
	secret string // used to verify the capture source

	source  *websocket.Conn
	clients map[string]*Client

	// every key event since session start, in arrival order
	buffer []message.Wrapper

	accViewers     int
	startedTime    time.Time
	lastActiveTime time.Time
	status         message.SessionStatus
}

func New(name, title, secret string) *Hub {
	return &Hub{
		name:           name,
		title:          title,
		secret:         secret,
		clients:        make(map[string]*Client),
		startedTime:    time.Now(),
		lastActiveTime: time.Now(),
		status:         message.SCapturing,
	}
}

func (h *Hub) Name() string {
	return h.name
}

func (h *Hub) Secret() string {
	return h.secret
}

func (h *Hub) Id() uint64 {
	return h.id
}

func (h *Hub) SetId(id uint64) {
	h.id = id
}

func (h *Hub) SetTitle(title string) {
	h.title = title
}

func (h *Hub) Status() message.SessionStatus {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.status
}

func (h *Hub) LastActiveTime() time.Time {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.lastActiveTime
}

func (h *Hub) NViewers() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	count := 0
	for _, c := range h.clients {
		if c.Role() == message.RViewer && c.Alive() {
			count += 1
		}
	}
	return count
}

func (h *Hub) NewClientID() string {
	return uuid.New().String()
}

func (h *Hub) Summary() message.SessionInfo {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.summaryLocked()
}

func (h *Hub) AddSource(conn *websocket.Conn) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.source != nil {
		h.source.Close()
	}

	log.Printf("New capture source for session: %s", h.name)
	h.source = conn
	h.status = message.SCapturing

	conn.SetCloseHandler(func(code int, text string) error {
		log.Printf("Capture source left. Stopping session: %s", h.name)
		h.Stop(message.SStopped)
		return nil
	})

	return nil
}

func (h *Hub) sourceConn() *websocket.Conn {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.source
}

// Start reads from the capture source and fans key events out to viewers.
// Blocks until the source disconnects. The connection is pinned at entry: a
// reconnecting source replaces h.source, and the old read loop must only ever
// close the connection it was reading from.
func (h *Hub) Start() {
	conn := h.sourceConn()
	if conn == nil {
		return
	}
	for {
		msg := message.Wrapper{}
		err := conn.ReadJSON(&msg)
		if err != nil {
			log.Printf("Failed to receive from source of %s: %s. Closing", h.name, err)
			conn.Close()
			return
		}
		h.Ingest(msg)
	}
}

// Ingest validates, buffers and broadcasts one message from the source.
// Malformed key events (missing key identity) are dropped at this boundary.
func (h *Hub) Ingest(msg message.Wrapper) {
	switch msg.Type {
	case message.TKeyDown, message.TKeyUp:
		ev := message.KeyEvent{}
		if err := message.ToStruct(msg.Data, &ev); err != nil {
			log.Printf("Unable to decode key event: %s", err)
			return
		}
		if ev.KeyID == "" {
			return
		}

		h.lock.Lock()
		h.buffer = append(h.buffer, msg)
		h.lastActiveTime = time.Now()
		h.lock.Unlock()

		h.Broadcast(msg)
	case message.TClose:
		h.Stop(message.SStopped)
	default:
		log.Printf("Unknown message type from source: %s", msg.Type)
	}
}

// Broadcast queues a message to every attached viewer.
func (h *Hub) Broadcast(msg message.Wrapper) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for id, client := range h.clients {
		if !client.Alive() {
			continue
		}
		select {
		case client.Out <- msg:
		default:
			log.Printf("Viewer %s is not keeping up. Dropping message", id)
		}
	}
}

// AddClient attaches a viewer, replays the buffered session to it and starts
// its pumps. Blocks until the viewer disconnects.
func (h *Hub) AddClient(ID string, role message.CRole, conn *websocket.Conn) error {
	h.lock.Lock()
	if _, ok := h.clients[ID]; ok {
		h.lock.Unlock()
		return fmt.Errorf("Client %s existed", ID)
	}
	if role != message.RViewer {
		h.lock.Unlock()
		return fmt.Errorf("Invalid client role: %s", role)
	}

	c := NewClient(role, conn)

	// Replay the whole session directly on the connection before the client
	// joins the broadcast set. Broadcast takes the same lock, so no live
	// event can interleave with the replay.
	info, _ := message.Wrap(message.TSessionInfo, h.summaryLocked())
	if err := conn.WriteJSON(info); err != nil {
		h.lock.Unlock()
		return fmt.Errorf("Failed to send session info: %s", err)
	}
	for _, msg := range h.buffer {
		if err := conn.WriteJSON(msg); err != nil {
			h.lock.Unlock()
			return fmt.Errorf("Failed to replay session: %s", err)
		}
	}

	h.clients[ID] = c
	h.accViewers += 1
	h.lock.Unlock()

	c.Start() // blocking
	h.RemoveClient(ID)
	return nil
}

func (h *Hub) summaryLocked() message.SessionInfo {
	return message.SessionInfo{
		Id:             h.id,
		Name:           h.name,
		Title:          h.title,
		Status:         h.status,
		StartedTime:    h.startedTime,
		LastActiveTime: h.lastActiveTime,
		NViewers:       len(h.clients),
		AccNViewers:    h.accViewers,
		NKeyEvents:     len(h.buffer),
	}
}

func (h *Hub) RemoveClient(ID string) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	c, ok := h.clients[ID]
	if !ok {
		return fmt.Errorf("Client %s not found", ID)
	}
	c.Close()
	delete(h.clients, ID)
	return nil
}

// NKeyEvents reports how many key events this session has buffered.
func (h *Hub) NKeyEvents() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.buffer)
}

// Stop closes the source and all viewers and marks the session stopped.
func (h *Hub) Stop(status message.SessionStatus) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.status == message.SStopped {
		return
	}
	h.status = status

	msg, err := message.Wrap(message.TClose, nil)
	if err == nil {
		for _, c := range h.clients {
			if c.Alive() {
				select {
				case c.Out <- msg:
				default:
				}
			}
		}
	}
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
	if h.source != nil {
		h.source.Close()
	}
	log.Printf("Session stopped: %s", h.name)
}
