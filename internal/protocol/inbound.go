package protocol

import "github.com/annel0/minisrooft/internal/world/block"

// Inbound: закрытое множество входящих сообщений.
// Реализации есть только в этом пакете.
type Inbound interface {
	Message
	inbound()
}

// Join: запрос на вход в игру
type Join struct {
	Username string `json:"username"`
}

// Move: направления движения за один шаг; можно комбинировать
type Move struct {
	Up    bool `json:"up,omitempty"`
	Down  bool `json:"down,omitempty"`
	Left  bool `json:"left,omitempty"`
	Right bool `json:"right,omitempty"`
}

// BreakBlock: запрос на разрушение блока в клетке (x,y)
type BreakBlock struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlaceBlock: запрос на установку блока из инвентаря
type PlaceBlock struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	BlockType block.ID `json:"blockType"`
}

// Attack: удар по другому игроку
type Attack struct {
	TargetID string `json:"targetId"`
}

// Respawn: запрос на возрождение
type Respawn struct{}

// Chat: сообщение в локальный чат
type Chat struct {
	Text string `json:"text"`
}

func (Join) Type() MessageType       { return TypeJoin }
func (Move) Type() MessageType       { return TypeMove }
func (BreakBlock) Type() MessageType { return TypeBreakBlock }
func (PlaceBlock) Type() MessageType { return TypePlaceBlock }
func (Attack) Type() MessageType     { return TypeAttack }
func (Respawn) Type() MessageType    { return TypeRespawn }
func (Chat) Type() MessageType       { return TypeChat }

func (Join) inbound()       {}
func (Move) inbound()       {}
func (BreakBlock) inbound() {}
func (PlaceBlock) inbound() {}
func (Attack) inbound()     {}
func (Respawn) inbound()    {}
func (Chat) inbound()       {}
