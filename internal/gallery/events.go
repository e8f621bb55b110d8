package gallery

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// subscriberBuffer is how many events a subscriber may fall behind before
// further events to it are dropped.
const subscriberBuffer = 16

// EventKind says which state transition happened.
type EventKind int

const (
	EventLoading EventKind = iota
	EventRefreshed
	EventRefreshFailed
	EventDeleted
	EventSelectionChanged
	EventFilterChanged
)

func (k EventKind) String() string {
	switch k {
	case EventLoading:
		return "loading"
	case EventRefreshed:
		return "refreshed"
	case EventRefreshFailed:
		return "refresh_failed"
	case EventDeleted:
		return "deleted"
	case EventSelectionChanged:
		return "selection_changed"
	case EventFilterChanged:
		return "filter_changed"
	}
	return "unknown"
}

// Event notifies subscribers that the store changed. It carries no state;
// subscribers read Snapshot or View for the current state. IDs lists the
// photos removed by a refresh or delete.
type Event struct {
	Kind EventKind
	IDs  []string
}

// hub fans events out to subscribers without ever blocking the publisher.
type hub struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *hub) publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			log.Trace().Int("subscriber", id).Stringer("event", e.Kind).Msg("Subscriber behind, event dropped")
		}
	}
}
