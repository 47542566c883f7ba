package ws

import (
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/pkg/metrics"
)

// Broadcaster delivers events to registered users. Delivery is best effort:
// offline users, closed channels and full queues drop the event.
type Broadcaster struct {
	registry *Registry
	logger   *zap.Logger
}

// NewBroadcaster creates a broadcaster over registry
func NewBroadcaster(registry *Registry, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, logger: logger.Named("broadcaster")}
}

// SendToUser delivers ev to userID and reports whether it was queued
func (b *Broadcaster) SendToUser(userID string, ev Event) bool {
	data, err := ev.Encode()
	if err != nil {
		b.logger.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return false
	}
	return b.deliver(userID, ev.Type, data)
}

// SendToAll delivers ev to every registered user and returns how many
// channels accepted it
func (b *Broadcaster) SendToAll(ev Event) int {
	data, err := ev.Encode()
	if err != nil {
		b.logger.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return 0
	}
	delivered := 0
	for _, userID := range b.registry.ActiveUserIDs() {
		if b.deliver(userID, ev.Type, data) {
			delivered++
		}
	}
	return delivered
}

func (b *Broadcaster) deliver(userID, eventType string, data []byte) bool {
	ch, ok := b.registry.Lookup(userID)
	if !ok {
		metrics.EventsSent.WithLabelValues(eventType, "offline").Inc()
		return false
	}
	if !ch.Send(data) {
		metrics.EventsSent.WithLabelValues(eventType, "dropped").Inc()
		b.logger.Debug("event dropped", zap.String("user_id", userID), zap.String("type", eventType))
		return false
	}
	metrics.EventsSent.WithLabelValues(eventType, "delivered").Inc()
	return true
}
