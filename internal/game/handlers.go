package game

import (
	"fmt"

	"github.com/annel0/minisrooft/internal/eventbus"
	"github.com/annel0/minisrooft/internal/player"
	"github.com/annel0/minisrooft/internal/protocol"
	"github.com/annel0/minisrooft/internal/vec"
	"github.com/annel0/minisrooft/internal/world"
)

// usernameTakenMessage отправляется в JOIN_ERROR при занятом нике.
const usernameTakenMessage = "Этот ник уже занят"

// receive разбирает кадр и передаёт сообщение обработчику.
func (h *Hub) receive(connID string, data []byte) {
	c, ok := h.conns[connID]
	if !ok || !c.Open() {
		// закрытое соединение ждёт Disconnect; кадры из его очереди отбрасываются
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		h.metrics.protocolErrors.Inc()
		h.logger.LogProtocolError(connID, err, data)
		return
	}
	h.metrics.messagesReceived.WithLabelValues(string(msg.Type())).Inc()

	switch m := msg.(type) {
	case protocol.Join:
		h.handleJoin(connID, m)
	case protocol.Move:
		h.handleMove(connID, m)
	case protocol.BreakBlock:
		h.handleBreakBlock(connID, m)
	case protocol.PlaceBlock:
		h.handlePlaceBlock(connID, m)
	case protocol.Attack:
		h.handleAttack(connID, m)
	case protocol.Respawn:
		h.handleRespawn(connID)
	case protocol.Chat:
		h.handleChat(connID, m)
	default:
		// Decode возвращает только перечисленные типы
		h.logger.Error("unhandled inbound %T from %s", msg, connID)
	}
}

// reject учитывает отклонённое действие; клиенту ничего не отправляется.
func (h *Hub) reject(action protocol.MessageType, reason, connID string) {
	h.metrics.actionsRejected.WithLabelValues(string(action), reason).Inc()
	h.logger.Debug("%s от %s отклонён: %s", action, connID, reason)
}

// alivePlayer возвращает живого игрока соединения или отклоняет действие.
func (h *Hub) alivePlayer(action protocol.MessageType, connID string) (*player.Player, bool) {
	p, ok := h.registry.ByConn(connID)
	if !ok {
		h.reject(action, "not_joined", connID)
		return nil, false
	}
	if !p.Alive {
		h.reject(action, "dead", connID)
		return nil, false
	}
	return p, true
}

// within сравнивает расстояние с радиусом включительно. NaN никогда не проходит.
func within(distance, radius float64) bool {
	return distance <= radius
}

func (h *Hub) handleJoin(connID string, m protocol.Join) {
	if _, joined := h.registry.ByConn(connID); joined {
		h.reject(protocol.TypeJoin, "already_joined", connID)
		return
	}

	playerID, n := h.registry.NextID()
	username := m.Username
	if username == "" {
		username = fmt.Sprintf("Игрок%d", n)
	}

	if h.registry.UsernameTaken(username) {
		h.reject(protocol.TypeJoin, "username_taken", connID)
		h.sendTo(connID, protocol.JoinError{Message: usernameTakenMessage})
		if c, ok := h.conns[connID]; ok {
			c.Close()
		}
		return
	}

	spawn := h.world.Center()
	p := player.New(playerID, username, spawn, h.now())
	if err := h.registry.Bind(connID, p); err != nil {
		// проверки выше исключают обе ошибки Bind
		h.logger.Error("bind %s: %v", connID, err)
		return
	}
	h.metrics.playersOnline.Set(float64(h.registry.Len()))

	nearby := make([]protocol.PlayerInfo, 0)
	h.registry.Each(func(otherConn string, other *player.Player) {
		if otherConn != connID && within(other.Position.DistanceTo(spawn), h.rules.ViewRadius) {
			nearby = append(nearby, protocol.PlayerInfo{
				ID:       other.ID,
				Username: other.Username,
				X:        other.Position.X,
				Y:        other.Position.Y,
				Health:   other.Health,
			})
		}
	})

	h.sendTo(connID, protocol.Init{
		PlayerID:  p.ID,
		Username:  p.Username,
		X:         p.Position.X,
		Y:         p.Position.Y,
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Inventory: p.InventorySnapshot(),
		WorldData: h.world.GetChunk(spawn.X, spawn.Y, h.rules.ChunkRadius),
		Players:   nearby,
		WorldSize: protocol.WorldSize{Width: h.world.Width(), Height: h.world.Height()},
	})

	h.broadcastNearby(p.Position, h.rules.ViewRadius, protocol.PlayerJoined{
		PlayerID: p.ID,
		Username: p.Username,
		X:        p.Position.X,
		Y:        p.Position.Y,
		Health:   p.Health,
	}, connID)

	h.publish(eventbus.EventPlayerJoined, eventbus.PriorityNormal, playerEvent(p))
	h.logger.Info("Игрок %s (%s) присоединился", p.Username, p.ID)
}

func (h *Hub) handleMove(connID string, m protocol.Move) {
	p, ok := h.alivePlayer(protocol.TypeMove, connID)
	if !ok {
		return
	}

	var delta vec.Vec2Float
	if m.Up {
		delta.Y -= h.rules.MoveSpeed
	}
	if m.Down {
		delta.Y += h.rules.MoveSpeed
	}
	if m.Left {
		delta.X -= h.rules.MoveSpeed
	}
	if m.Right {
		delta.X += h.rules.MoveSpeed
	}

	candidate := p.Position.Add(delta).Clamp(0, 0, float64(h.world.Width()-1), float64(h.world.Height()-1))
	if candidate == p.Position {
		return
	}

	pixels := world.ToPixels(candidate)
	if !h.world.CanMoveTo(pixels.X, pixels.Y) {
		h.reject(protocol.TypeMove, "blocked", connID)
		return
	}

	p.Position = candidate
	h.broadcastNearby(p.Position, h.rules.ViewRadius, protocol.PlayerMoved{
		PlayerID: p.ID,
		X:        p.Position.X,
		Y:        p.Position.Y,
	}, connID)
	h.publish(eventbus.EventPlayerMoved, eventbus.PriorityLow, playerEvent(p))
}

func (h *Hub) handleBreakBlock(connID string, m protocol.BreakBlock) {
	p, ok := h.alivePlayer(protocol.TypeBreakBlock, connID)
	if !ok {
		return
	}

	target := vec.Vec2Float{X: m.X, Y: m.Y}
	if !within(p.Position.DistanceTo(target), h.rules.Reach) {
		h.reject(protocol.TypeBreakBlock, "out_of_reach", connID)
		return
	}

	broken, ok := h.world.BreakBlock(m.X, m.Y)
	if !ok {
		h.reject(protocol.TypeBreakBlock, "nothing_to_break", connID)
		return
	}
	p.AddToInventory(broken)

	cell := target.Floor()
	h.broadcastNearby(p.Position, h.rules.ViewRadius, protocol.BlockBroken{
		X:        cell.X,
		Y:        cell.Y,
		PlayerID: p.ID,
	}, "")
	h.sendTo(connID, protocol.InventoryUpdate{Inventory: p.InventorySnapshot()})
	h.publish(eventbus.EventBlockBroken, eventbus.PriorityNormal, eventbus.BlockEvent{
		PlayerID: p.ID, X: cell.X, Y: cell.Y, BlockType: int(broken),
	})
}

func (h *Hub) handlePlaceBlock(connID string, m protocol.PlaceBlock) {
	p, ok := h.alivePlayer(protocol.TypePlaceBlock, connID)
	if !ok {
		return
	}

	target := vec.Vec2Float{X: m.X, Y: m.Y}
	if !within(p.Position.DistanceTo(target), h.rules.Reach) {
		h.reject(protocol.TypePlaceBlock, "out_of_reach", connID)
		return
	}
	if p.Count(m.BlockType) < 1 {
		h.reject(protocol.TypePlaceBlock, "empty_inventory", connID)
		return
	}
	if !h.world.CanPlace(m.X, m.Y, m.BlockType) {
		h.reject(protocol.TypePlaceBlock, "cell_occupied", connID)
		return
	}

	// Проверено выше: обе операции успешны, инвентарь и мир меняются вместе.
	h.world.PlaceBlock(m.X, m.Y, m.BlockType)
	p.RemoveFromInventory(m.BlockType)

	cell := target.Floor()
	h.broadcastNearby(p.Position, h.rules.ViewRadius, protocol.BlockPlaced{
		X:         cell.X,
		Y:         cell.Y,
		BlockType: m.BlockType,
	}, "")
	h.sendTo(connID, protocol.InventoryUpdate{Inventory: p.InventorySnapshot()})
	h.publish(eventbus.EventBlockPlaced, eventbus.PriorityNormal, eventbus.BlockEvent{
		PlayerID: p.ID, X: cell.X, Y: cell.Y, BlockType: int(m.BlockType),
	})
}

func (h *Hub) handleAttack(connID string, m protocol.Attack) {
	attacker, ok := h.alivePlayer(protocol.TypeAttack, connID)
	if !ok {
		return
	}

	target, found := h.registry.ByID(m.TargetID)
	switch {
	case !found:
		h.reject(protocol.TypeAttack, "unknown_target", connID)
		return
	case target == attacker:
		h.reject(protocol.TypeAttack, "self", connID)
		return
	case !target.Alive:
		h.reject(protocol.TypeAttack, "target_dead", connID)
		return
	case !within(attacker.Position.DistanceTo(target.Position), h.rules.MeleeRange):
		h.reject(protocol.TypeAttack, "out_of_range", connID)
		return
	}

	health := target.TakeDamage(h.rules.AttackDamage)
	if targetConn, ok := h.registry.ConnOf(target.ID); ok {
		h.sendTo(targetConn, protocol.TakeDamage{
			Damage:   h.rules.AttackDamage,
			Attacker: attacker.Username,
			Health:   health,
		})
	}
	h.broadcastNearby(attacker.Position, h.rules.AttackRadius, protocol.PlayerAttacked{
		AttackerID: attacker.ID,
		TargetID:   target.ID,
		Damage:     h.rules.AttackDamage,
	}, "")

	if health <= 0 {
		h.kill(target)
	}
}

// kill переводит игрока в состояние смерти.
func (h *Hub) kill(p *player.Player) {
	p.Die(h.now(), h.rules.RespawnCooldown)

	victimConn, _ := h.registry.ConnOf(p.ID)
	h.sendTo(victimConn, protocol.PlayerDied{
		PlayerID:    p.ID,
		RespawnTime: p.RespawnTime.UnixMilli(),
	})
	h.broadcastAll(protocol.PlayerDied{PlayerID: p.ID}, victimConn)

	h.publish(eventbus.EventPlayerDied, eventbus.PriorityNormal, playerEvent(p))
	h.logger.Info("Игрок %s умер", p.Username)
}

func (h *Hub) handleRespawn(connID string) {
	p, ok := h.registry.ByConn(connID)
	if !ok {
		h.reject(protocol.TypeRespawn, "not_joined", connID)
		return
	}
	if p.Alive {
		h.reject(protocol.TypeRespawn, "alive", connID)
		return
	}
	now := h.now()
	if !p.CanRespawn(now) {
		h.reject(protocol.TypeRespawn, "cooldown", connID)
		return
	}

	p.Respawn(h.world.Center())
	p.LastHealTime = now

	h.sendTo(connID, protocol.Respawned{X: p.Position.X, Y: p.Position.Y, Health: p.Health})
	h.broadcastNearby(p.Position, h.rules.ViewRadius, protocol.PlayerRespawned{
		PlayerID: p.ID,
		X:        p.Position.X,
		Y:        p.Position.Y,
		Health:   p.Health,
	}, "")
	h.publish(eventbus.EventPlayerRespawned, eventbus.PriorityNormal, playerEvent(p))
}

func (h *Hub) handleChat(connID string, m protocol.Chat) {
	p, ok := h.registry.ByConn(connID)
	if !ok {
		h.reject(protocol.TypeChat, "not_joined", connID)
		return
	}

	now := h.now().UnixMilli()
	h.broadcastNearby(p.Position, h.rules.ChatRadius, protocol.ChatMessage{
		PlayerID:  p.ID,
		Username:  p.Username,
		Message:   m.Text,
		Timestamp: now,
	}, "")
	h.publish(eventbus.EventChatMessage, eventbus.PriorityNormal, eventbus.ChatEvent{
		PlayerID: p.ID, Username: p.Username, Text: m.Text, Timestamp: now,
	})
}

func playerLeft(p *player.Player) protocol.PlayerLeft {
	return protocol.PlayerLeft{PlayerID: p.ID}
}

func heal(p *player.Player) protocol.Heal {
	return protocol.Heal{Health: p.Health}
}

func playerEvent(p *player.Player) eventbus.PlayerEvent {
	return eventbus.PlayerEvent{
		PlayerID: p.ID,
		Username: p.Username,
		X:        p.Position.X,
		Y:        p.Position.Y,
		Health:   p.Health,
	}
}
