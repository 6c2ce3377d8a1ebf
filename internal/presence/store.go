// Package presence хранит живое зеркало онлайн-игроков: кто в игре и где стоит.
// Это не персистентность: записи живут TTL и пропадают после выхода игрока.
package presence

import (
	"context"
	"time"
)

// Entry описывает одного онлайн-игрока.
type Entry struct {
	PlayerID  string    `json:"player_id"`
	Username  string    `json:"username"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Health    int       `json:"health"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store определяет хранилище присутствия.
type Store interface {
	// Upsert создаёт или обновляет запись и продлевает её TTL.
	Upsert(ctx context.Context, e Entry) error
	// Remove удаляет запись; отсутствие записи не ошибка.
	Remove(ctx context.Context, playerID string) error
	// List возвращает живые записи, отсортированные по PlayerID.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}
