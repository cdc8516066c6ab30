package broadcast

import (
	"sync"

	"triviaroom/internal/events"

	"github.com/rs/zerolog/log"
)

// Broadcaster fans room events out to member connections. Sends never block:
// a subscriber whose channel is full misses the event.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]chan<- events.Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan<- events.Event),
	}
}

// Subscribe registers ch under id, replacing any previous channel for id.
// The caller keeps ownership of ch and must Unsubscribe before closing it.
func (b *Broadcaster) Subscribe(id string, ch chan<- events.Event) {
	b.mu.Lock()
	b.clients[id] = ch
	b.mu.Unlock()
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.clients, id)
	b.mu.Unlock()
}

func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Broadcast delivers ev to every subscriber and reports how many received it.
func (b *Broadcaster) Broadcast(ev events.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	delivered := 0
	for id, ch := range b.clients {
		select {
		case ch <- ev:
			delivered++
		default:
			log.Warn().Str("conn", id).Str("type", string(ev.Type)).Msg("send buffer full, dropping event")
		}
	}
	return delivered
}
