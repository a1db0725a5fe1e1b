/*
Generic struct for a viewer websocket connection attached to a hub
*/
package hub

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/pkg/message"
)

var emptyByteArray []byte

type Client struct {
	conn *websocket.Conn
	role message.CRole

	// data going into Out will be sent to the client via websocket
	Out chan message.Wrapper

	// data sent by the client is queued in In
	In chan message.Wrapper

	// guards alive; Close is called from both pump goroutines and the hub
	lock  sync.Mutex
	alive bool
}

func NewClient(role message.CRole, conn *websocket.Conn) *Client {
	out := make(chan message.Wrapper, cfg.HUB_CLIENT_BUFFER_SIZE)
	in := make(chan message.Wrapper, cfg.HUB_CLIENT_BUFFER_SIZE)
	return &Client{
		conn:  conn,
		Out:   out,
		In:    in,
		role:  role,
		alive: true,
	}
}

func (c *Client) Role() message.CRole {
	return c.role
}

func (c *Client) Alive() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.alive
}

func (c *Client) Start() {
	// Send coroutine
	go func() {
		for {
			msg, ok := <-c.Out
			if !ok {
				c.Close()
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("Failed to send to client. Closing connection: %s", err)
				c.Close()
				return
			}
		}
	}()

	// Receive loop
	for {
		msg := message.Wrapper{}
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			log.Printf("Failed to read client message. Closing connection: %s", err)
			c.Close()
			break
		}
		c.In <- msg // handled by the hub
	}
}

func (c *Client) Close() {
	c.lock.Lock()
	if !c.alive {
		c.lock.Unlock()
		return
	}
	c.alive = false
	c.lock.Unlock()

	c.conn.WriteControl(websocket.CloseMessage, emptyByteArray, time.Now().Add(time.Second))
	c.conn.Close()
}
