package notify

import (
	"context"
	"sync"
	"time"

	"github.com/kirinyoku/staygo/internal/domain"
)

// Change is one inventory change as delivered to stream subscribers. From and
// To are empty when every day of the resource changed.
type Change struct {
	ResourceID string    `json:"resource_id"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

// Broker fans changes out to in-process subscribers of a resource. Slow
// subscribers miss changes rather than block publishers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Change]struct{}
	buffer int
}

var _ Notifier = (*Broker)(nil)

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{subs: make(map[string]map[chan Change]struct{}), buffer: buffer}
}

// Subscribe returns a channel of changes to resourceID and a cancel func that
// must be called once the subscriber is done.
func (b *Broker) Subscribe(resourceID string) (<-chan Change, func()) {
	ch := make(chan Change, b.buffer)

	b.mu.Lock()
	if b.subs[resourceID] == nil {
		b.subs[resourceID] = make(map[chan Change]struct{})
	}
	b.subs[resourceID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[resourceID], ch)
			if len(b.subs[resourceID]) == 0 {
				delete(b.subs, resourceID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[c.ResourceID] {
		select {
		case ch <- c:
		default:
		}
	}
}

// InventoryChanged publishes locally. It serves single-instance deployments
// without Redis.
func (b *Broker) InventoryChanged(_ context.Context, resourceID string, r domain.DateRange, reason Reason) {
	c := Change{ResourceID: resourceID, Reason: string(reason), At: time.Now().UTC()}
	if !r.From.IsZero() {
		c.From = domain.DayKey(r.From)
		c.To = domain.DayKey(r.To)
	}
	b.Publish(c)
}

func (b *Broker) Subscribers(resourceID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[resourceID])
}
