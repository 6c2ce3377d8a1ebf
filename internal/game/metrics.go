package game

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics: Prometheus метрики игрового цикла.
type Metrics struct {
	playersOnline    prometheus.Gauge
	connections      prometheus.Gauge
	messagesReceived *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	actionsRejected  *prometheus.CounterVec
	protocolErrors   prometheus.Counter
	eventsDropped    prometheus.Counter
	loopDuration     prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		playersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "game",
			Name:      "players_online",
			Help:      "Количество вошедших в игру игроков.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "game",
			Name:      "connections",
			Help:      "Открытые соединения, включая ещё не вошедшие.",
		}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "messages_received_total",
			Help:      "Входящие сообщения по типам.",
		}, []string{"type"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "messages_sent_total",
			Help:      "Исходящие кадры по типам (с учётом всех получателей).",
		}, []string{"type"}),
		actionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "actions_rejected_total",
			Help:      "Отклонённые действия игроков.",
		}, []string{"action", "reason"}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "protocol_errors_total",
			Help:      "Нечитаемые сообщения и неизвестные типы.",
		}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "game",
			Name:      "events_dropped_total",
			Help:      "Доменные события, не поместившиеся в очередь публикации.",
		}),
		loopDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "game",
			Name:      "loop_event_duration_seconds",
			Help:      "Время обработки одного события игрового цикла.",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		}),
	}

	reg.MustRegister(
		m.playersOnline,
		m.connections,
		m.messagesReceived,
		m.messagesSent,
		m.actionsRejected,
		m.protocolErrors,
		m.eventsDropped,
		m.loopDuration,
	)
	return m
}
