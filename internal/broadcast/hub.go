// Package broadcast fans listener-count events out to connected SSE streams.
// It provides a topic-scoped pub/sub hub and the adapter that packages
// presence transitions into wire events.
package broadcast

import "sync"

// TopicListeners carries global listener-count change events.
const TopicListeners = "listeners"

// Hub is a topic-scoped pub/sub hub. Subscriber channels are buffered to 1
// and written without blocking; when a subscriber is slow, a newer payload
// replaces the unread one, so each subscriber always wakes to the most recent
// event for its topic.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

// NewHub creates a ready-to-use Hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a buffered(1) channel that receives payloads published to
// the given topic.
func (h *Hub) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 1)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[chan []byte]struct{})
	}
	h.subs[topic][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a channel from the topic's subscriber set.
// If the topic has no remaining subscribers, the entry is cleaned up.
func (h *Hub) Unsubscribe(topic string, ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[topic]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Publish delivers payload to every subscriber of the topic without blocking.
// A pending unread payload is discarded in favor of the new one.
func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[topic] {
		select {
		case ch <- payload:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- payload:
			default:
			}
		}
	}
}
