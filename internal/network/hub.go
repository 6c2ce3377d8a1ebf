// Package network содержит транспорты клиентов: WebSocket и KCP.
// Транспорт только переносит кадры; вся игровая логика выполняется в game.Hub.
package network

import "github.com/annel0/minisrooft/internal/game"

// Hub: часть игрового цикла, нужная транспортам.
// Методы не блокируются на логике и возвращают false после остановки цикла.
type Hub interface {
	Connect(c game.Conn) bool
	Receive(connID string, data []byte) bool
	Disconnect(connID string) bool
}

// Размер очереди отправки одного соединения.
const sendQueueSize = 256

var _ Hub = (*game.Hub)(nil)
