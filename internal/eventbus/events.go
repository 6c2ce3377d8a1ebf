package eventbus

// Типы игровых событий. Для JetStream становятся subject events.<type>.
const (
	EventPlayerJoined    = "player.joined"
	EventPlayerLeft      = "player.left"
	EventPlayerMoved     = "player.moved"
	EventPlayerDied      = "player.died"
	EventPlayerRespawned = "player.respawned"
	EventBlockBroken     = "block.broken"
	EventBlockPlaced     = "block.placed"
	EventChatMessage     = "chat.message"
)

// Приоритеты: частые перемещения можно терять при переполнении, остальное нет.
const (
	PriorityLow    = 1
	PriorityNormal = 5
)

// PlayerEvent: полезная нагрузка событий player.*
type PlayerEvent struct {
	PlayerID string  `json:"player_id"`
	Username string  `json:"username,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   int     `json:"health"`
}

// BlockEvent: полезная нагрузка событий block.*
type BlockEvent struct {
	PlayerID  string `json:"player_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	BlockType int    `json:"block_type"`
}

// ChatEvent: полезная нагрузка chat.message
type ChatEvent struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}
