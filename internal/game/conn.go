package game

// Conn: транспортное соединение одного клиента.
// Реализации: WebSocket и KCP в пакете network.
type Conn interface {
	// ID уникален среди живых соединений
	ID() string
	// Send ставит кадр в очередь отправки без блокировки.
	// false означает, что соединение закрыто или переполнено.
	Send(data []byte) bool
	// Close закрывает соединение после отправки уже поставленных кадров.
	// Повторный вызов безопасен.
	Close()
	Open() bool
}
