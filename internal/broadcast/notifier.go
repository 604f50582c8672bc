package broadcast

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/radiocast/backend/internal/presence"
)

// PublishFunc delivers an encoded event to all subscribers of a topic.
type PublishFunc func(topic string, payload []byte)

// ListenerEvent is the wire form of a global listener-count change.
type ListenerEvent struct {
	ID        string    `json:"id"`
	Count     int       `json:"count"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// CountNotifier turns presence transitions into published ListenerEvents.
// It does no buffering, retrying, or reordering of its own: the presence
// tracker already serializes transitions, and the hub delivers best-effort.
type CountNotifier struct {
	publish PublishFunc
	topic   string
	now     func() time.Time
}

// NewCountNotifier creates a CountNotifier publishing to TopicListeners.
func NewCountNotifier(publish PublishFunc) *CountNotifier {
	return &CountNotifier{
		publish: publish,
		topic:   TopicListeners,
		now:     time.Now,
	}
}

// OnChange packages a presence transition and hands it to the publish func.
// It is intended to be passed to presence.NewTracker.
func (n *CountNotifier) OnChange(c presence.Change) {
	ev := ListenerEvent{
		ID:        uuid.NewString(),
		Count:     c.Count,
		Delta:     c.Delta,
		Reason:    string(c.Reason),
		Timestamp: n.now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encode listener event", slog.Any("error", err))
		return
	}
	n.publish(n.topic, payload)
}
