package player

import (
	"time"

	"github.com/annel0/minisrooft/internal/vec"
	"github.com/annel0/minisrooft/internal/world/block"
)

// MaxHealth: максимальное здоровье игрока
const MaxHealth = 20

// Player представляет игрока, привязанного к одному соединению.
// Методы только меняют состояние и не выполняют сетевых операций.
type Player struct {
	ID           string
	Username     string
	Position     vec.Vec2Float
	Health       int
	MaxHealth    int
	Alive        bool
	LastHealTime time.Time
	RespawnTime  time.Time // Нулевое значение, пока игрок жив

	inventory map[block.ID]int
}

// New создаёт игрока с полным здоровьем и пустым инвентарём в точке spawn
func New(id, username string, spawn vec.Vec2Float, now time.Time) *Player {
	inventory := make(map[block.ID]int)
	for _, id := range block.Collectable() {
		inventory[id] = 0
	}

	return &Player{
		ID:           id,
		Username:     username,
		Position:     spawn,
		Health:       MaxHealth,
		MaxHealth:    MaxHealth,
		Alive:        true,
		LastHealTime: now,
		inventory:    inventory,
	}
}

// TakeDamage уменьшает здоровье, не опуская его ниже нуля, и возвращает остаток
func (p *Player) TakeDamage(amount int) int {
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
	return p.Health
}

// Heal восстанавливает здоровье не выше максимума и возвращает новое значение
func (p *Player) Heal(amount int) int {
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
	return p.Health
}

// AddToInventory добавляет один блок в инвентарь
func (p *Player) AddToInventory(id block.ID) {
	p.inventory[id]++
}

// RemoveFromInventory забирает один блок; при нулевом количестве ничего не меняет
func (p *Player) RemoveFromInventory(id block.ID) bool {
	if p.inventory[id] <= 0 {
		return false
	}
	p.inventory[id]--
	return true
}

// Count возвращает количество блоков данного типа
func (p *Player) Count(id block.ID) int {
	return p.inventory[id]
}

// InventorySnapshot возвращает копию инвентаря
func (p *Player) InventorySnapshot() map[block.ID]int {
	snapshot := make(map[block.ID]int, len(p.inventory))
	for id, count := range p.inventory {
		snapshot[id] = count
	}
	return snapshot
}

// Die переводит игрока в состояние смерти; возродиться можно через cooldown
func (p *Player) Die(now time.Time, cooldown time.Duration) {
	p.Alive = false
	p.RespawnTime = now.Add(cooldown)
}

// CanRespawn сообщает, истёк ли таймер возрождения мёртвого игрока
func (p *Player) CanRespawn(now time.Time) bool {
	return !p.Alive && !now.Before(p.RespawnTime)
}

// Respawn восстанавливает здоровье и возвращает игрока в точку spawn
func (p *Player) Respawn(spawn vec.Vec2Float) {
	p.Health = p.MaxHealth
	p.Alive = true
	p.RespawnTime = time.Time{}
	p.Position = spawn
}

// NeedsHeal сообщает, пора ли пассивно восстановить здоровье
func (p *Player) NeedsHeal(now time.Time, interval time.Duration) bool {
	return p.Alive && p.Health < p.MaxHealth && now.Sub(p.LastHealTime) >= interval
}
