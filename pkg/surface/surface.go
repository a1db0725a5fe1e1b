/*
Terminal drawable surface: one row per physical key, a fixed label column and
a growing strip of gap/chunk segments rendered as colored block runes.
*/
package surface

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rivo/tview"

	"github.com/keytrace/keytrace/pkg/timeline"
)

const labelWidth = 12

// lane colors are cycled in lane creation order
var laneColors = []string{"green", "yellow", "aqua", "fuchsia", "red", "blue"}

type termLane struct {
	body  *tview.TextView
	color string
	width int // total cells written so far
}

type Term struct {
	lock sync.Mutex

	app       *tview.Application
	container *tview.Flex
	lanes     map[string]*termLane
	order     []string
}

// New mounts the surface onto container. A nil container is a setup error
// unless fallback is set, in which case a detached container is created and
// can be fetched with Root.
func New(app *tview.Application, container *tview.Flex, fallback bool) (*Term, error) {
	if container == nil {
		if !fallback {
			return nil, fmt.Errorf("surface: container not found")
		}
		container = tview.NewFlex()
	}
	container.SetDirection(tview.FlexRow)
	return &Term{
		app:       app,
		container: container,
		lanes:     make(map[string]*termLane),
	}, nil
}

// Root returns the mounted container.
func (t *Term) Root() *tview.Flex {
	return t.container
}

// queueUpdate applies a mutation on the tview event loop. With no application
// attached (headless use) the mutation runs inline.
func (t *Term) queueUpdate(f func()) {
	if t.app == nil {
		f()
		return
	}
	t.app.QueueUpdateDraw(f)
}

func (t *Term) CreateLane(keyID, label string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if _, ok := t.lanes[keyID]; ok {
		return
	}

	body := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)

	ln := &termLane{
		body:  body,
		color: laneColors[len(t.order)%len(laneColors)],
	}
	t.lanes[keyID] = ln
	t.order = append(t.order, keyID)

	labelView := tview.NewTextView().
		SetDynamicColors(true).
		SetText(fmt.Sprintf("[white]%s", tview.Escape(label)))

	row := tview.NewFlex().
		AddItem(labelView, labelWidth, 0, false).
		AddItem(body, 0, 1, false)

	t.queueUpdate(func() {
		t.container.AddItem(row, 1, 0, false)
	})
}

func (t *Term) AppendSegment(keyID string, kind timeline.SegmentKind, widthPx int) {
	t.lock.Lock()
	ln, ok := t.lanes[keyID]
	if ok {
		ln.width += widthPx
	}
	t.lock.Unlock()
	if !ok || widthPx <= 0 {
		return
	}

	var text string
	switch kind {
	case timeline.Chunk:
		text = fmt.Sprintf("[%s]%s[-]", ln.color, strings.Repeat("█", widthPx))
	default:
		text = strings.Repeat(" ", widthPx)
	}

	t.queueUpdate(func() {
		fmt.Fprint(ln.body, text)
	})
}

// ScrollToEnd moves every lane so its rightmost segments stay visible.
func (t *Term) ScrollToEnd() {
	type target struct {
		body  *tview.TextView
		width int
	}
	t.lock.Lock()
	targets := make([]target, 0, len(t.order))
	for _, id := range t.order {
		ln := t.lanes[id]
		targets = append(targets, target{body: ln.body, width: ln.width})
	}
	t.lock.Unlock()

	t.queueUpdate(func() {
		for _, tg := range targets {
			_, _, w, _ := tg.body.GetInnerRect()
			if w > 0 && tg.width > w {
				tg.body.ScrollTo(0, tg.width-w)
			}
		}
	})
}

func (t *Term) Clear() {
	t.lock.Lock()
	t.lanes = make(map[string]*termLane)
	t.order = nil
	t.lock.Unlock()

	t.queueUpdate(func() {
		t.container.Clear()
	})
}
