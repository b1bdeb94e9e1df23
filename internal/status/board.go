// Package status holds the state shown by the status surface and fans it out
// to the tray menu and the web API.
package status

import (
	"strings"
	"sync"
	"time"
)

// State is the phase the surface is in
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

const (
	LoadingListText  = "Loading Icon List.."
	LoadingCountText = "Loading Icon Count.."
	FailedListText   = "Could not read the desktop icons"
	FailedCountText  = "-"
)

// Snapshot is a copy of the board at one point in time
type Snapshot struct {
	State     State     `json:"state"`
	ListText  string    `json:"list_text"`
	CountText string    `json:"count_text"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Names splits the list text back into icon names
func (s Snapshot) Names() []string {
	if s.State != StateReady || s.ListText == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s.ListText, "\r\n"), "\r\n")
}

// Listener is called with a fresh snapshot after every change
type Listener func(Snapshot)

// Board is the in-memory status surface. It is safe for concurrent use.
type Board struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []Listener
	now       func() time.Time
}

// NewBoard creates an idle board
func NewBoard() *Board {
	b := &Board{now: time.Now}
	b.snap = Snapshot{State: StateIdle, UpdatedAt: b.now()}
	return b
}

// Subscribe registers a listener
func (b *Board) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Snapshot returns the current state
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}

func (b *Board) SetLoadingState() {
	b.update(func(s *Snapshot) {
		s.State = StateLoading
		s.ListText = LoadingListText
		s.CountText = LoadingCountText
		s.Error = ""
	})
}

func (b *Board) SetIconListText(text string) {
	b.update(func(s *Snapshot) {
		s.State = StateReady
		s.ListText = text
		s.Error = ""
	})
}

func (b *Board) SetIconCountText(text string) {
	b.update(func(s *Snapshot) {
		s.State = StateReady
		s.CountText = text
		s.Error = ""
	})
}

// SetResult replaces the list and the count in one update, so listeners and
// readers never see the list of one result next to the count of another
func (b *Board) SetResult(listText, countText string) {
	b.update(func(s *Snapshot) {
		s.State = StateReady
		s.ListText = listText
		s.CountText = countText
		s.Error = ""
	})
}

func (b *Board) SetFailureState(err error) {
	b.update(func(s *Snapshot) {
		s.State = StateFailed
		s.ListText = FailedListText
		s.CountText = FailedCountText
		if err != nil {
			s.Error = err.Error()
		}
	})
}

func (b *Board) update(fn func(*Snapshot)) {
	b.mu.Lock()
	fn(&b.snap)
	b.snap.UpdatedAt = b.now()
	snap := b.snap
	listeners := b.listeners
	b.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}
