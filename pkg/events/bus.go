// Package events is the in-process event bus of the fixture backend. The
// simulator and route handlers publish; the websocket hub and process
// watchers subscribe.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/datakin/workbench/pkg/domain"
)

// Event names the UI reacts to.
const (
	ProcessCompleted = "PROCESS_COMPLETED"
	ProcessFailed    = "PROCESS_FAILED"
	ProcessCancelled = "PROCESS_CANCELLED"
)

// UpdateList is the "refresh your listing" broadcast for one asset kind.
func UpdateList(kind domain.Kind) string {
	return fmt.Sprintf("UPDATE_%s_LIST", kind)
}

type Event struct {
	Name    string    `json:"name"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// Bus fans published events out to every subscriber.
//
// Delivery is fire-and-forget: a subscriber whose channel is full misses the
// event. Nothing in the mock may ever block on an observer.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
	now  func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: map[int]chan Event{}, now: time.Now}
}

func (b *Bus) Publish(name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev := Event{Name: name, Payload: payload, At: b.now()}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default: // full subscriber, drop
		}
	}
}

// Subscribe returns a channel of future events and a cancel function.
// The channel is closed on cancel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next += 1
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
}
