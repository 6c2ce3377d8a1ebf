package protocol

import (
	"github.com/annel0/minisrooft/internal/world"
	"github.com/annel0/minisrooft/internal/world/block"
)

// WorldSize: размеры мира в клетках
type WorldSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PlayerInfo: краткие данные о другом игроке в INIT
type PlayerInfo struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   int     `json:"health"`
}

// Init: полный снимок состояния для только что вошедшего игрока
type Init struct {
	PlayerID  string           `json:"playerId"`
	Username  string           `json:"username"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	Health    int              `json:"health"`
	MaxHealth int              `json:"maxHealth"`
	Inventory map[block.ID]int `json:"inventory"`
	WorldData []world.Cell     `json:"worldData"`
	Players   []PlayerInfo     `json:"players"`
	WorldSize WorldSize        `json:"worldSize"`
}

// JoinError: отказ во входе; после него соединение закрывается
type JoinError struct {
	Message string `json:"message"`
}

type PlayerJoined struct {
	PlayerID string  `json:"playerId"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   int     `json:"health"`
}

type PlayerMoved struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

type BlockBroken struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	PlayerID string `json:"playerId"`
}

type BlockPlaced struct {
	X         int      `json:"x"`
	Y         int      `json:"y"`
	BlockType block.ID `json:"blockType"`
}

// InventoryUpdate отправляется только владельцу инвентаря
type InventoryUpdate struct {
	Inventory map[block.ID]int `json:"inventory"`
}

type PlayerAttacked struct {
	AttackerID string `json:"attackerId"`
	TargetID   string `json:"targetId"`
	Damage     int    `json:"damage"`
}

// TakeDamage отправляется только жертве; Attacker: ник нападавшего
type TakeDamage struct {
	Damage   int    `json:"damage"`
	Attacker string `json:"attacker"`
	Health   int    `json:"health"`
}

// PlayerDied: смерть игрока. RespawnTime (мс epoch) заполняется только в
// сообщении самой жертве.
type PlayerDied struct {
	PlayerID    string `json:"playerId"`
	RespawnTime int64  `json:"respawnTime,omitempty"`
}

// Respawned отправляется возродившемуся игроку
type Respawned struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health int     `json:"health"`
}

type PlayerRespawned struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   int     `json:"health"`
}

// Heal: пассивное восстановление здоровья
type Heal struct {
	Health int `json:"health"`
}

type ChatMessage struct {
	PlayerID  string `json:"playerId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (Init) Type() MessageType            { return TypeInit }
func (JoinError) Type() MessageType       { return TypeJoinError }
func (PlayerJoined) Type() MessageType    { return TypePlayerJoined }
func (PlayerMoved) Type() MessageType     { return TypePlayerMoved }
func (PlayerLeft) Type() MessageType      { return TypePlayerLeft }
func (BlockBroken) Type() MessageType     { return TypeBlockBroken }
func (BlockPlaced) Type() MessageType     { return TypeBlockPlaced }
func (InventoryUpdate) Type() MessageType { return TypeInventoryUpdate }
func (PlayerAttacked) Type() MessageType  { return TypePlayerAttacked }
func (TakeDamage) Type() MessageType      { return TypeTakeDamage }
func (PlayerDied) Type() MessageType      { return TypePlayerDied }
func (Respawned) Type() MessageType       { return TypeRespawned }
func (PlayerRespawned) Type() MessageType { return TypePlayerRespawned }
func (Heal) Type() MessageType            { return TypeHeal }
func (ChatMessage) Type() MessageType     { return TypeChatMessage }
