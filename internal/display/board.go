package display

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Update types sent to Board subscribers.
const (
	UpdateClock = "clock"
	UpdateBest  = "best"
	UpdateLap   = "lap"
	UpdateClear = "clear"
)

// boardSubscriberBuffer is how far a subscriber may fall behind before
// updates are dropped for it.
const boardSubscriberBuffer = 64

// Update is one change to the board.
type Update struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// BoardState is what the board currently shows.
type BoardState struct {
	Clock string   `json:"clock"`
	Best  string   `json:"best"`
	Laps  []string `json:"laps"`
}

// Board holds the latest display text for web clients and streams every
// change to its subscribers.
type Board struct {
	mu    sync.RWMutex
	state  BoardState
	subs   *xsync.MapOf[string, chan Update]
	closed bool
}

func NewBoard() *Board {
	return &Board{
		state: BoardState{Laps: []string{}},
		subs:  xsync.NewMapOf[string, chan Update](),
	}
}

func (b *Board) SetClock(text string) {
	b.mu.Lock()
	b.state.Clock = text
	b.broadcast(Update{Type: UpdateClock, Text: text})
	b.mu.Unlock()
}

func (b *Board) SetBestLap(text string) {
	b.mu.Lock()
	b.state.Best = text
	b.broadcast(Update{Type: UpdateBest, Text: text})
	b.mu.Unlock()
}

func (b *Board) AppendLap(text string) {
	b.mu.Lock()
	b.state.Laps = append(b.state.Laps, text)
	b.broadcast(Update{Type: UpdateLap, Text: text})
	b.mu.Unlock()
}

func (b *Board) ClearLaps() {
	b.mu.Lock()
	b.state.Laps = []string{}
	b.broadcast(Update{Type: UpdateClear})
	b.mu.Unlock()
}

// State returns a copy of the current board.
func (b *Board) State() BoardState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.state
	s.Laps = slices.Clone(b.state.Laps)
	return s
}

// Subscribe returns an ID and a channel receiving every later update. After
// Close the channel is returned already closed.
func (b *Board) Subscribe() (string, <-chan Update) {
	id := uuid.NewString()
	ch := make(chan Update, boardSubscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs.Store(id, ch)
	return id, ch
}

// Unsubscribe closes and forgets the subscriber. Unknown IDs are ignored.
func (b *Board) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsubscribe(id)
}

func (b *Board) unsubscribe(id string) {
	if ch, ok := b.subs.LoadAndDelete(id); ok {
		close(ch)
	}
}

// Subscribers returns the number of active subscribers.
func (b *Board) Subscribers() int {
	return b.subs.Size()
}

// Close drops every subscriber, closing their channels. Later subscribers
// receive a closed channel.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs.Range(func(id string, _ chan Update) bool {
		b.unsubscribe(id)
		return true
	})
}

// broadcast must be called with mu held so that no channel is closed while
// it is being sent on.
func (b *Board) broadcast(u Update) {
	b.subs.Range(func(_ string, ch chan Update) bool {
		select {
		case ch <- u:
		default:
			// slow subscriber; it can resync from State
		}
		return true
	})
}
