package presence

import (
	"context"

	"github.com/annel0/minisrooft/internal/eventbus"
	"github.com/annel0/minisrooft/internal/logging"
)

// Sink переносит события игроков из шины в Store.
type Sink struct {
	store  Store
	sub    eventbus.Subscription
	logger *logging.Logger
}

var sinkEvents = []string{
	eventbus.EventPlayerJoined,
	eventbus.EventPlayerMoved,
	eventbus.EventPlayerRespawned,
	eventbus.EventPlayerDied,
	eventbus.EventPlayerLeft,
}

// StartSink подписывает store на события игроков.
func StartSink(ctx context.Context, bus eventbus.EventBus, store Store) (*Sink, error) {
	s := &Sink{store: store, logger: logging.GetComponentLogger("presence")}
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: sinkEvents}, s.handle)
	if err != nil {
		return nil, err
	}
	s.sub = sub
	return s, nil
}

// Stop отписывается от шины. Store закрывает владелец.
func (s *Sink) Stop() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}

func (s *Sink) handle(ctx context.Context, ev *eventbus.Envelope) {
	var p eventbus.PlayerEvent
	if err := ev.Decode(&p); err != nil {
		s.logger.Warn("bad %s payload: %v", ev.EventType, err)
		return
	}

	var err error
	if ev.EventType == eventbus.EventPlayerLeft {
		err = s.store.Remove(ctx, p.PlayerID)
	} else {
		err = s.store.Upsert(ctx, Entry{PlayerID: p.PlayerID, Username: p.Username, X: p.X, Y: p.Y, Health: p.Health})
	}
	if err != nil {
		s.logger.Warn("presence %s %s: %v", ev.EventType, p.PlayerID, err)
	}
}
