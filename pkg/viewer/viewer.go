/*
Terminal viewer: subscribes to a capture session and renders its key timeline.

The viewer owns the recording pipeline. Key transitions arrive over the
websocket, go through the recorder, and the session's render loop draws the
completed holds onto a tview surface.
*/
package viewer

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/pkg/exwebsocket"
	"github.com/keytrace/keytrace/pkg/message"
	"github.com/keytrace/keytrace/pkg/recorder"
	"github.com/keytrace/keytrace/pkg/session"
	"github.com/keytrace/keytrace/pkg/surface"
	"github.com/keytrace/keytrace/pkg/timeline"
)

type Viewer struct {
	serverAddr  string
	sessionName string
	msPerCell   int64
	refreshMs   int

	conn   *exwebsocket.Conn
	app    *tview.Application
	sess   *session.Session
	handle *session.Handle
	status *tview.TextView
}

func New(serverAddr, sessionName string, msPerCell int64, refreshMs int) *Viewer {
	if msPerCell <= 0 {
		msPerCell = cfg.DEFAULT_MS_PER_CELL
	}
	return &Viewer{
		serverAddr:  serverAddr,
		sessionName: sessionName,
		msPerCell:   msPerCell,
		refreshMs:   refreshMs,
		app:         tview.NewApplication(),
	}
}

func (v *Viewer) Start() error {
	scheme := "wss"
	if strings.HasPrefix(v.serverAddr, "http://") {
		scheme = "ws"
	}
	host := strings.Replace(strings.Replace(v.serverAddr, "http://", "", 1), "https://", "", 1)
	u := url.URL{Scheme: scheme, Host: host, Path: fmt.Sprintf("/s/%s/ws", v.sessionName)}
	log.Printf("Opening socket at %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("Failed to open websocket: %s", err)
	}
	v.conn = exwebsocket.New(conn)

	msg, err := message.Wrap(message.TClientInfo, message.ClientInfo{
		Name: v.sessionName,
		Role: message.RViewer,
	})
	if err != nil {
		return err
	}
	if err := v.conn.SafeWriteJSON(msg); err != nil {
		return fmt.Errorf("Failed to send client info: %s", err)
	}

	header := tview.NewTextView().
		SetDynamicColors(true).
		SetText(fmt.Sprintf("[yellow]keytrace[-] session [aqua]%s[-]  (q quit, p pause, r reset)", v.sessionName))

	lanes := tview.NewFlex()
	v.status = tview.NewTextView().SetDynamicColors(true)

	surf, err := surface.New(v.app, lanes, false)
	if err != nil {
		return err
	}

	rec := recorder.New(nil)
	ren, err := timeline.New(surf, v.msPerCell)
	if err != nil {
		return err
	}
	v.sess = session.New(rec, ren, v.refreshMs)
	v.handle, err = v.sess.Start()
	if err != nil {
		return err
	}

	go v.consume(rec)
	go v.drainWarnings(rec)

	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q':
			v.Stop()
			return nil
		case 'p':
			// already on the event loop goroutine, set directly
			if rec.Paused() {
				rec.Resume()
				v.status.SetText("")
			} else {
				rec.Pause()
				v.status.SetText("[yellow]paused[-]")
			}
			return nil
		case 'r':
			// surface updates go through the update queue, keep off the
			// event goroutine
			go v.sess.Reset()
			v.status.SetText("")
			return nil
		}
		return event
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(lanes, 0, 1, false).
		AddItem(v.status, 1, 0, false)

	// Blocking until Stop
	return v.app.SetRoot(layout, true).Run()
}

// consume feeds incoming key transitions into the recorder
func (v *Viewer) consume(rec *recorder.Recorder) {
	for {
		msg := message.Wrapper{}
		if err := v.conn.ReadJSON(&msg); err != nil {
			log.Printf("Connection lost: %s", err)
			v.setStatus("[red]connection lost[-]")
			return
		}

		switch msg.Type {
		case message.TKeyDown, message.TKeyUp:
			ev := message.KeyEvent{}
			if err := message.ToStruct(msg.Data, &ev); err != nil {
				log.Printf("Unable to decode key event: %s", err)
				continue
			}
			if msg.Type == message.TKeyDown {
				rec.OnKeyDown(ev.KeyID, ev.Label)
			} else {
				rec.OnKeyUp(ev.KeyID, ev.Label)
			}
		case message.TSessionInfo:
			info := message.SessionInfo{}
			if err := message.ToStruct(msg.Data, &info); err == nil {
				log.Printf("Joined session %s (%d events so far)", info.Name, info.NKeyEvents)
			}
		case message.TError:
			var reason string
			message.ToStruct(msg.Data, &reason)
			v.setStatus(fmt.Sprintf("[red]server error:[-] %s", reason))
			return
		case message.TClose:
			v.setStatus("[red]session closed by source[-]")
			return
		default:
			log.Printf("Unknown message type: %s", msg.Type)
		}
	}
}

func (v *Viewer) drainWarnings(rec *recorder.Recorder) {
	for w := range rec.Warnings() {
		v.setStatus(fmt.Sprintf("[yellow]warning:[-] %s %s at %s",
			w.KeyID, w.Reason, (time.Duration(w.OffsetMs) * time.Millisecond).String()))
	}
}

func (v *Viewer) setStatus(text string) {
	v.app.QueueUpdateDraw(func() {
		v.status.SetText(text)
	})
}

func (v *Viewer) Stop() {
	if v.sess != nil {
		v.sess.Stop()
	}
	if v.conn != nil {
		v.conn.Close()
	}
	v.app.Stop()
}

// Handle exposes the running recorder and renderer for inspection.
func (v *Viewer) Handle() *session.Handle {
	return v.handle
}
