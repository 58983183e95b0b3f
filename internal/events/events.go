package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Change describes a row that was inserted or updated. Observers use it to
// refresh read views only.
type Change struct {
	Topic    string    `json:"topic"`
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	Action   string    `json:"action"`
	Status   string    `json:"status,omitempty"`
	At       time.Time `json:"at"`
}

const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

func TaskTopic(taskID string) string { return "task:" + taskID }

func UserTopic(userID string) string { return "user:" + userID }

// Publisher receives changes after they are committed.
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

type subscriber chan []byte

// Hub fans changes out to in-process observers registered per topic.
// Slow observers miss events instead of blocking publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[subscriber]struct{}{}}
}

func (h *Hub) Subscribe(topic string) (<-chan []byte, func()) {
	ch := make(subscriber, 16)

	h.mu.Lock()
	set := h.subs[topic]
	if set == nil {
		set = map[subscriber]struct{}{}
		h.subs[topic] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[topic]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, topic)
				}
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, unsubscribe
}

func (h *Hub) Publish(_ context.Context, change Change) {
	b, err := json.Marshal(change)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[change.Topic] {
		select {
		case ch <- b:
		default:
		}
	}
}

// Subscribers reports how many observers listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Fanout publishes every change to each of its publishers.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, change Change) {
	for _, p := range f {
		p.Publish(ctx, change)
	}
}
