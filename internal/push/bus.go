// Package push implements the A4 push bus: an in-process topic
// fan-out plus optional Redis pub/sub for multi-instance delivery, and
// a websocket hub for browser clients.
package push

import (
	"encoding/json"
	"sync"
	"time"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// subscriberBuffer bounds each subscriber channel; a slow subscriber
// has events dropped rather than blocking the emitter.
const subscriberBuffer = 64

// Event is one push notification: a topic name (transaction,
// new_findings, new_finding, contract_update,
// backfill_analysis_progress, backfill_analysis_complete,
// monitoring_failure) and its JSON-serializable payload.
type Event struct {
	Topic     string `json:"topic"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// Bus is the in-process fan-out hub every ingester and the Supervisor
// emit to. It implements ingester.EventSink without importing that
// package (Emit(topic string, payload any)).
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}

	fanout Fanout // optional cross-instance relay; nil disables it

	emitted uint64
	dropped uint64
}

// Fanout relays locally-emitted events to other process instances and
// delivers remotely-emitted events back into this Bus.
type Fanout interface {
	Publish(ev Event)
	Close() error
}

func New() *Bus {
	return &Bus{subscribers: make(map[chan Event]struct{})}
}

// WithFanout attaches a cross-instance relay (Redis-backed or nil).
func (b *Bus) WithFanout(f Fanout) *Bus {
	b.mu.Lock()
	b.fanout = f
	b.mu.Unlock()
	return b
}

// Emit delivers an event to every local subscriber and, if a fanout is
// attached, relays it for other instances.
func (b *Bus) Emit(topic string, payload any) {
	ev := Event{Topic: topic, Payload: payload, Timestamp: time.Now().Unix()}
	b.deliver(ev)

	b.mu.RLock()
	fanout := b.fanout
	b.mu.RUnlock()
	if fanout != nil {
		fanout.Publish(ev)
	}
}

// deliver fans an event out to local subscribers only, used both for
// locally-emitted events and ones relayed back in from Redis.
func (b *Bus) deliver(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	b.emitted++
	for ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped++
			gethlog.Warn("push: subscriber buffer full, dropping event", "component", "push", "topic", ev.Topic)
		}
	}
}

// Subscribe registers a new listener; callers must call the returned
// unsubscribe function when done.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}

// Stats reports counters for the /metrics surface.
func (b *Bus) Stats() (clients int, emitted, dropped uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers), b.emitted, b.dropped
}

func encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func decode(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}
