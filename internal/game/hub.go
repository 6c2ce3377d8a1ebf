// Package game содержит авторитетную симуляцию: единственный игровой цикл,
// который владеет миром и игроками, разбирает сообщения клиентов и рассылает
// обновления ближайшим игрокам.
package game

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/minisrooft/internal/eventbus"
	"github.com/annel0/minisrooft/internal/logging"
	"github.com/annel0/minisrooft/internal/player"
	"github.com/annel0/minisrooft/internal/world"
)

// ErrStopped возвращается, если игровой цикл уже завершён.
var ErrStopped = errors.New("game: hub stopped")

const (
	defaultQueueSize  = 4096
	defaultOutboxSize = 1024
	eventSource       = "game"
)

// HubConfig задаёт зависимости Hub. Нулевые поля заменяются значениями по умолчанию.
type HubConfig struct {
	Rules     Rules
	Clock     Clock
	Bus       eventbus.EventBus // nil: события не публикуются
	Metrics   *Metrics          // nil: метрики в приватном реестре
	Logger    *logging.Logger
	QueueSize int
}

// Hub: единственный владелец мира и игроков.
// Все изменения выполняются в горутине Run; транспорты и REST только ставят
// события в очередь.
type Hub struct {
	world    *world.World
	registry *player.Registry
	conns    map[string]Conn

	rules   Rules
	now     Clock
	bus     eventbus.EventBus
	metrics *Metrics
	logger  *logging.Logger

	events chan func()
	outbox chan *eventbus.Envelope
	done   chan struct{}
}

// NewHub создаёт Hub над готовым миром.
func NewHub(w *world.World, cfg HubConfig) *Hub {
	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetGameLogger()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	return &Hub{
		world:    w,
		registry: player.NewRegistry(),
		conns:    make(map[string]Conn),
		rules:    cfg.Rules,
		now:      cfg.Clock,
		bus:      cfg.Bus,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		events:   make(chan func(), cfg.QueueSize),
		outbox:   make(chan *eventbus.Envelope, defaultOutboxSize),
		done:     make(chan struct{}),
	}
}

// Run обрабатывает очередь событий и тики регенерации до отмены ctx.
// При выходе закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	publisherDone := make(chan struct{})
	go h.publishLoop(publisherDone)

	ticker := time.NewTicker(h.rules.TickInterval)
	defer ticker.Stop()

	h.logger.Info("Игровой цикл запущен: мир %dx%d, тик %v", h.world.Width(), h.world.Height(), h.rules.TickInterval)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			close(h.outbox)
			<-publisherDone
			h.logger.Info("Игровой цикл остановлен")
			return
		case fn := <-h.events:
			start := time.Now()
			fn()
			h.metrics.loopDuration.Observe(time.Since(start).Seconds())
		case <-ticker.C:
			h.tick()
		}
	}
}

// Done закрывается после выхода из Run.
func (h *Hub) Done() <-chan struct{} { return h.done }

// enqueue ставит fn в очередь игрового цикла. После остановки возвращает false.
func (h *Hub) enqueue(fn func()) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.events <- fn:
		return true
	case <-h.done:
		return false
	}
}

// Connect регистрирует новое соединение.
func (h *Hub) Connect(c Conn) bool {
	return h.enqueue(func() { h.connect(c) })
}

// Receive передаёт кадр клиента в игровой цикл. Порядок кадров одного
// соединения сохраняется, если Receive вызывается из одной горутины.
func (h *Hub) Receive(connID string, data []byte) bool {
	return h.enqueue(func() { h.receive(connID, data) })
}

// Disconnect снимает соединение и игрока. Повторный вызов безопасен.
func (h *Hub) Disconnect(connID string) bool {
	return h.enqueue(func() { h.disconnect(connID) })
}

// Query выполняет fn в игровом цикле и ждёт завершения.
// fn может читать состояние Hub, но не должна блокироваться.
func (h *Hub) Query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !h.enqueue(func() { fn(); close(finished) }) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrStopped
	}
}

func (h *Hub) connect(c Conn) {
	h.conns[c.ID()] = c
	h.metrics.connections.Set(float64(len(h.conns)))
	h.logger.Debug("Соединение %s открыто", c.ID())
}

func (h *Hub) disconnect(connID string) {
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	h.metrics.connections.Set(float64(len(h.conns)))

	if p, bound := h.registry.Unbind(connID); bound {
		h.metrics.playersOnline.Set(float64(h.registry.Len()))
		h.logger.Info("Игрок %s (%s) отключился", p.Username, p.ID)
		h.broadcastAll(playerLeft(p), "")
		h.publish(eventbus.EventPlayerLeft, eventbus.PriorityNormal, playerEvent(p))
	}

	c.Close()
}

// shutdown закрывает все соединения при остановке цикла.
func (h *Hub) shutdown() {
	for id, c := range h.conns {
		c.Close()
		delete(h.conns, id)
	}
	h.metrics.connections.Set(0)
	h.metrics.playersOnline.Set(0)
}

// tick выполняет пассивную регенерацию живых игроков.
func (h *Hub) tick() {
	now := h.now()
	h.registry.Each(func(connID string, p *player.Player) {
		if !p.NeedsHeal(now, h.rules.HealInterval) {
			return
		}
		p.Heal(h.rules.HealAmount)
		p.LastHealTime = now
		h.sendTo(connID, heal(p))
	})
}
