package eligibility

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind says what caused an event.
type EventKind string

const (
	EventTransition  EventKind = "transition"
	EventFailed      EventKind = "failed"
	EventReset       EventKind = "reset"
	EventFormChanged EventKind = "form_changed"
)

// Event is published on every state change. Snapshot is a private copy the
// receiver may keep.
type Event struct {
	Kind     EventKind `json:"kind"`
	RunID    uuid.UUID `json:"runId"`
	Stage    Stage     `json:"stage"`
	Message  string    `json:"message"`
	Snapshot Snapshot  `json:"snapshot"`
	At       time.Time `json:"at"`
}

const defaultSubscriberBuffer = 32

// hub fans events out to subscribers. publish never blocks: a subscriber
// whose buffer is full misses the event.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	onDrop func()
}

func newHub(onDrop func()) *hub {
	return &hub{subs: make(map[int]chan Event), onDrop: onDrop}
}

func (h *hub) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	subID := h.nextID
	h.nextID++
	h.subs[subID] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[subID]; ok {
				delete(h.subs, subID)
				close(ch)
			}
		})
	}
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for subID, ch := range h.subs {
		delete(h.subs, subID)
		close(ch)
	}
}
