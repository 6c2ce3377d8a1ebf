package game

import (
	"context"
	"time"

	"github.com/annel0/minisrooft/internal/eventbus"
)

const publishTimeout = 2 * time.Second

// publish ставит доменное событие в очередь публикации, не блокируя цикл.
func (h *Hub) publish(eventType string, priority int, payload interface{}) {
	if h.bus == nil {
		return
	}

	ev, err := eventbus.NewEnvelope(eventSource, eventType, priority, payload)
	if err != nil {
		h.logger.Error("event %s: %v", eventType, err)
		return
	}

	select {
	case h.outbox <- ev:
	default:
		h.metrics.eventsDropped.Inc()
	}
}

// publishLoop отправляет события в шину вне игрового цикла.
// Завершается, когда Run закрывает outbox.
func (h *Hub) publishLoop(done chan<- struct{}) {
	defer close(done)

	for ev := range h.outbox {
		if h.bus == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := h.bus.Publish(ctx, ev); err != nil {
			h.metrics.eventsDropped.Inc()
			h.logger.Warn("publish %s: %v", ev.EventType, err)
		}
		cancel()
	}
}
