/*
Wrapper around a gorilla websocket connection that serializes writes.
Gorilla conns allow only one concurrent writer.
*/
package exwebsocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

func New(conn *websocket.Conn) *Conn {
	return &Conn{Conn: conn}
}

func (ws *Conn) SafeWriteMessage(msgType int, data []byte) error {
	ws.mu.Lock()
	err := ws.WriteMessage(msgType, data)
	ws.mu.Unlock()
	return err
}

func (ws *Conn) SafeWriteJSON(v interface{}) error {
	ws.mu.Lock()
	err := ws.WriteJSON(v)
	ws.mu.Unlock()
	return err
}
