package game

import (
	"github.com/annel0/minisrooft/internal/player"
	"github.com/annel0/minisrooft/internal/protocol"
	"github.com/annel0/minisrooft/internal/vec"
)

// encode сериализует сообщение один раз для всех получателей.
func (h *Hub) encode(msg protocol.Message) ([]byte, bool) {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("encode %s: %v", msg.Type(), err)
		return nil, false
	}
	return data, true
}

// deliver отправляет кадр в открытое соединение.
// Переполненное соединение транспорт закрывает сам и присылает Disconnect.
func (h *Hub) deliver(connID string, msgType protocol.MessageType, data []byte) {
	c, ok := h.conns[connID]
	if !ok || !c.Open() {
		return
	}
	if c.Send(data) {
		h.metrics.messagesSent.WithLabelValues(string(msgType)).Inc()
	}
}

// sendTo отправляет сообщение одному соединению.
func (h *Hub) sendTo(connID string, msg protocol.Message) {
	if connID == "" {
		return
	}
	if data, ok := h.encode(msg); ok {
		h.deliver(connID, msg.Type(), data)
	}
}

// broadcastNearby рассылает msg всем игрокам в радиусе от origin, кроме exclude.
// Полный перебор игроков: O(n) на событие.
func (h *Hub) broadcastNearby(origin vec.Vec2Float, radius float64, msg protocol.Message, exclude string) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.registry.Each(func(connID string, p *player.Player) {
		if connID == exclude || !within(p.Position.DistanceTo(origin), radius) {
			return
		}
		h.deliver(connID, msg.Type(), data)
	})
}

// broadcastAll рассылает msg всем вошедшим игрокам, кроме exclude.
func (h *Hub) broadcastAll(msg protocol.Message, exclude string) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.registry.Each(func(connID string, _ *player.Player) {
		if connID != exclude {
			h.deliver(connID, msg.Type(), data)
		}
	})
}
