package game

import "time"

// Rules: игровые константы. Все расстояния в клетках мира.
type Rules struct {
	MoveSpeed    float64 // шаг по каждой оси за MOVE
	Reach        float64 // дальность ломания и установки блоков
	MeleeRange   float64
	AttackDamage int

	ViewRadius   float64 // вход, движение, блоки, возрождение
	AttackRadius float64 // PLAYER_ATTACKED вокруг нападающего
	ChatRadius   float64
	ChunkRadius  int // радиус мира в INIT

	RespawnCooldown time.Duration
	HealInterval    time.Duration
	HealAmount      int
	TickInterval    time.Duration
}

// DefaultRules возвращает стандартные правила игры
func DefaultRules() Rules {
	return Rules{
		MoveSpeed:       5,
		Reach:           5,
		MeleeRange:      2,
		AttackDamage:    1,
		ViewRadius:      100,
		AttackRadius:    50,
		ChatRadius:      200,
		ChunkRadius:     25,
		RespawnCooldown: 5 * time.Second,
		HealInterval:    5 * time.Second,
		HealAmount:      1,
		TickInterval:    time.Second,
	}
}

// Clock возвращает текущее время; в тестах подменяется ручными часами.
type Clock func() time.Time
