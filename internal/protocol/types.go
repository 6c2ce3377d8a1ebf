package protocol

// MessageType: значение поля "type" в JSON-конверте
type MessageType string

// Входящие сообщения (клиент → сервер)
const (
	TypeJoin       MessageType = "JOIN"
	TypeMove       MessageType = "MOVE"
	TypeBreakBlock MessageType = "BREAK_BLOCK"
	TypePlaceBlock MessageType = "PLACE_BLOCK"
	TypeAttack     MessageType = "ATTACK"
	TypeRespawn    MessageType = "RESPAWN"
	TypeChat       MessageType = "CHAT"
)

// Исходящие сообщения (сервер → клиент)
const (
	TypeInit            MessageType = "INIT"
	TypeJoinError       MessageType = "JOIN_ERROR"
	TypePlayerJoined    MessageType = "PLAYER_JOINED"
	TypePlayerMoved     MessageType = "PLAYER_MOVED"
	TypePlayerLeft      MessageType = "PLAYER_LEFT"
	TypeBlockBroken     MessageType = "BLOCK_BROKEN"
	TypeBlockPlaced     MessageType = "BLOCK_PLACED"
	TypeInventoryUpdate MessageType = "INVENTORY_UPDATE"
	TypePlayerAttacked  MessageType = "PLAYER_ATTACKED"
	TypeTakeDamage      MessageType = "TAKE_DAMAGE"
	TypePlayerDied      MessageType = "PLAYER_DIED"
	TypeRespawned       MessageType = "RESPAWNED"
	TypePlayerRespawned MessageType = "PLAYER_RESPAWNED"
	TypeHeal            MessageType = "HEAL"
	TypeChatMessage     MessageType = "CHAT_MESSAGE"
)

// Message: любое сообщение протокола
type Message interface {
	Type() MessageType
}
