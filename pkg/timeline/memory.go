package timeline

import "sync"

// MemorySegment is one appended segment kept by a MemorySurface.
type MemorySegment struct {
	KeyID   string
	Kind    SegmentKind
	WidthPx int
}

// MemorySurface is a headless Surface. It backs tests and serves as the
// explicit fallback when no terminal surface is available.
type MemorySurface struct {
	lock     sync.Mutex
	laneIDs  []string
	labels   map[string]string
	segments []MemorySegment
	scrolls  int
}

func NewMemorySurface() *MemorySurface {
	return &MemorySurface{labels: make(map[string]string)}
}

func (m *MemorySurface) CreateLane(keyID, label string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.labels[keyID]; ok {
		return
	}
	m.labels[keyID] = label
	m.laneIDs = append(m.laneIDs, keyID)
}

func (m *MemorySurface) AppendSegment(keyID string, kind SegmentKind, widthPx int) {
	m.lock.Lock()
	m.segments = append(m.segments, MemorySegment{KeyID: keyID, Kind: kind, WidthPx: widthPx})
	m.lock.Unlock()
}

func (m *MemorySurface) ScrollToEnd() {
	m.lock.Lock()
	m.scrolls++
	m.lock.Unlock()
}

func (m *MemorySurface) Clear() {
	m.lock.Lock()
	m.laneIDs = nil
	m.labels = make(map[string]string)
	m.segments = nil
	m.lock.Unlock()
}

func (m *MemorySurface) Lanes() []string {
	m.lock.Lock()
	defer m.lock.Unlock()
	out := make([]string, len(m.laneIDs))
	copy(out, m.laneIDs)
	return out
}

func (m *MemorySurface) Label(keyID string) string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.labels[keyID]
}

func (m *MemorySurface) Segments() []MemorySegment {
	m.lock.Lock()
	defer m.lock.Unlock()
	out := make([]MemorySegment, len(m.segments))
	copy(out, m.segments)
	return out
}

func (m *MemorySurface) Scrolls() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.scrolls
}
