package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/minisrooft/internal/vec"
	"github.com/annel0/minisrooft/internal/world/block"
)

func TestBreakBlock_GrassNextToSpawn(t *testing.T) {
	h := newTestHub(t)
	breaker := h.join(t, "breaker")
	watcher := h.join(t, "watcher")
	resetAll(breaker, watcher)

	h.send(breaker, `{"type":"BREAK_BLOCK","x":250,"y":251}`)

	assert.Equal(t, block.Air, h.world.GetBlock(250, 251))
	assert.Equal(t, 1, h.player(t, breaker).Count(block.Grass))

	want := map[string]interface{}{"type": "BLOCK_BROKEN", "x": 250.0, "y": 251.0, "playerId": "player_1"}
	assert.Equal(t, want, breaker.only(t, "BLOCK_BROKEN"))
	assert.Equal(t, want, watcher.only(t, "BLOCK_BROKEN"))

	update := breaker.only(t, "INVENTORY_UPDATE")
	assert.Equal(t, map[string]interface{}{"1": 1.0, "2": 0.0, "3": 0.0}, update["inventory"])
	assert.Empty(t, watcher.ofType(t, "INVENTORY_UPDATE"))
}

func TestBreakBlock_FractionalCoordinatesAreFloored(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	c.reset()

	h.send(c, `{"type":"BREAK_BLOCK","x":250.7,"y":252.2}`)

	assert.Equal(t, block.Air, h.world.GetBlock(250, 252))
	broken := c.only(t, "BLOCK_BROKEN")
	assert.Equal(t, 250.0, broken["x"])
	assert.Equal(t, 252.0, broken["y"])
	assert.Equal(t, 1, h.player(t, c).Count(block.Dirt))
}

func TestBreakBlock_Rejections(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	c.reset()

	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":256}`) // дистанция 6
	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":247}`) // воздух
	h.send(c, `{"type":"BREAK_BLOCK","x":-1,"y":250}`)  // вне мира и вне досягаемости

	assert.Equal(t, block.Stone, h.world.GetBlock(250, 256))
	assert.Empty(t, c.messages(t))
	assert.Equal(t, map[block.ID]int{block.Grass: 0, block.Dirt: 0, block.Stone: 0}, h.player(t, c).InventorySnapshot())
}

func TestBreakBlock_OutsideWorldWithinReach(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.place(t, c, 0, 250)
	c.reset()

	h.send(c, `{"type":"BREAK_BLOCK","x":-1,"y":251}`)
	assert.Empty(t, c.messages(t))
}

func TestBreakBlock_ExactReachAllowed(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")

	h.send(c, `{"type":"BREAK_BLOCK","x":253,"y":254}`) // 3-4-5
	assert.Equal(t, block.Air, h.world.GetBlock(253, 254))
}

func TestPlaceBlock(t *testing.T) {
	h := newTestHub(t)
	placer := h.join(t, "placer")
	watcher := h.join(t, "watcher")
	h.send(placer, `{"type":"BREAK_BLOCK","x":250,"y":251}`)
	resetAll(placer, watcher)

	h.send(placer, `{"type":"PLACE_BLOCK","x":251,"y":249,"blockType":1}`)

	assert.Equal(t, block.Grass, h.world.GetBlock(251, 249))
	assert.Equal(t, 0, h.player(t, placer).Count(block.Grass))

	want := map[string]interface{}{"type": "BLOCK_PLACED", "x": 251.0, "y": 249.0, "blockType": 1.0}
	assert.Equal(t, want, placer.only(t, "BLOCK_PLACED"))
	assert.Equal(t, want, watcher.only(t, "BLOCK_PLACED"))
	assert.Equal(t, map[string]interface{}{"1": 0.0, "2": 0.0, "3": 0.0}, placer.only(t, "INVENTORY_UPDATE")["inventory"])
}

func TestPlaceBlock_NoInventoryLeak(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":251}`)
	c.reset()

	// клетка занята: ни мир, ни инвентарь не меняются
	h.send(c, `{"type":"PLACE_BLOCK","x":250,"y":252,"blockType":1}`)
	assert.Equal(t, block.Dirt, h.world.GetBlock(250, 252))
	assert.Equal(t, 1, h.player(t, c).Count(block.Grass))

	// вне мира
	h.place(t, c, 0, 250)
	h.send(c, `{"type":"PLACE_BLOCK","x":-1,"y":250,"blockType":1}`)
	assert.Equal(t, 1, h.player(t, c).Count(block.Grass))

	assert.Empty(t, c.messages(t))
}

func TestPlaceBlock_Rejections(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":251}`)
	c.reset()

	h.send(c, `{"type":"PLACE_BLOCK","x":250,"y":248,"blockType":2}`) // нет земли в инвентаре
	h.send(c, `{"type":"PLACE_BLOCK","x":250,"y":244,"blockType":1}`) // дистанция 6
	h.send(c, `{"type":"PLACE_BLOCK","x":250,"y":248,"blockType":0}`) // воздух ставить нельзя
	h.send(c, `{"type":"PLACE_BLOCK","x":250,"y":248,"blockType":9}`) // неизвестный тип

	assert.Empty(t, c.messages(t))
	assert.Equal(t, block.Air, h.world.GetBlock(250, 248))
	assert.Equal(t, block.Air, h.world.GetBlock(250, 244))
	assert.Equal(t, 1, h.player(t, c).Count(block.Grass))
}

func TestPlaceBlock_DeadPlayerIgnored(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":251}`)
	h.player(t, c).Die(h.clock.Now(), 5*time.Second)
	watcher := h.join(t, "watcher")
	resetAll(c, watcher)

	h.send(c, `{"type":"PLACE_BLOCK","x":250,"y":251,"blockType":1}`)
	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":252}`)

	assert.Equal(t, block.Air, h.world.GetBlock(250, 251))
	assert.Equal(t, block.Dirt, h.world.GetBlock(250, 252))
	assert.Equal(t, 1, h.player(t, c).Count(block.Grass))
	assert.Empty(t, c.messages(t))
	assert.Empty(t, watcher.messages(t))
}

// Блоки в мире плюс блоки в инвентарях не меняются при ломании и установке.
func TestBlocksAreConserved(t *testing.T) {
	h := newTestHub(t)
	a := h.join(t, "a")
	b := h.join(t, "b")

	total := func() int {
		n := 0
		for y := 0; y < h.world.Height(); y++ {
			for x := 0; x < h.world.Width(); x++ {
				if h.world.GetBlock(x, y) != block.Air {
					n++
				}
			}
		}
		for _, c := range []*fakeConn{a, b} {
			for _, count := range h.player(t, c).InventorySnapshot() {
				n += count
			}
		}
		return n
	}

	before := total()
	script := []struct {
		c   *fakeConn
		msg string
	}{
		{a, `{"type":"BREAK_BLOCK","x":250,"y":251}`},
		{a, `{"type":"BREAK_BLOCK","x":250,"y":252}`},
		{b, `{"type":"BREAK_BLOCK","x":251,"y":251}`},
		{a, `{"type":"PLACE_BLOCK","x":250,"y":252,"blockType":2}`},
		{a, `{"type":"PLACE_BLOCK","x":250,"y":253,"blockType":1}`},
		{b, `{"type":"PLACE_BLOCK","x":250,"y":251,"blockType":1}`},
		{b, `{"type":"PLACE_BLOCK","x":249,"y":249,"blockType":1}`},
		{a, `{"type":"BREAK_BLOCK","x":249,"y":249}`},
		{a, `{"type":"PLACE_BLOCK","x":252,"y":248,"blockType":3}`},
	}
	for _, step := range script {
		h.send(step.c, step.msg)
		require.Equal(t, before, total(), "после %s", step.msg)
	}

	for _, c := range []*fakeConn{a, b} {
		for id, count := range h.player(t, c).InventorySnapshot() {
			assert.GreaterOrEqual(t, count, 0, "block %v", id)
		}
	}
}

func TestAttack_KillsAtMeleeRange(t *testing.T) {
	h := newTestHub(t)
	attacker := h.join(t, "alice")
	victim := h.join(t, "bob")
	observer := h.join(t, "observer")
	h.place(t, victim, 252, 250)
	h.place(t, observer, 450, 450)
	h.player(t, victim).Health = 1
	resetAll(attacker, victim, observer)

	h.send(attacker, `{"type":"ATTACK","targetId":"player_2"}`)

	v := h.player(t, victim)
	assert.Equal(t, 0, v.Health)
	assert.False(t, v.Alive)

	assert.Equal(t, map[string]interface{}{"type": "TAKE_DAMAGE", "damage": 1.0, "attacker": "alice", "health": 0.0},
		victim.only(t, "TAKE_DAMAGE"))

	attacked := map[string]interface{}{"type": "PLAYER_ATTACKED", "attackerId": "player_1", "targetId": "player_2", "damage": 1.0}
	assert.Equal(t, attacked, attacker.only(t, "PLAYER_ATTACKED"))
	assert.Equal(t, attacked, victim.only(t, "PLAYER_ATTACKED"))
	assert.Empty(t, observer.ofType(t, "PLAYER_ATTACKED"))

	died := victim.only(t, "PLAYER_DIED")
	assert.Equal(t, "player_2", died["playerId"])
	assert.Equal(t, float64(startTime.UnixMilli()+5000), died["respawnTime"])

	for _, c := range []*fakeConn{attacker, observer} {
		broadcast := c.only(t, "PLAYER_DIED")
		assert.Equal(t, map[string]interface{}{"type": "PLAYER_DIED", "playerId": "player_2"}, broadcast)
	}
}

func TestAttack_NonLethal(t *testing.T) {
	h := newTestHub(t)
	attacker := h.join(t, "alice")
	victim := h.join(t, "bob")
	resetAll(attacker, victim)

	h.send(attacker, `{"type":"ATTACK","targetId":"player_2"}`)

	assert.Equal(t, 19, h.player(t, victim).Health)
	assert.True(t, h.player(t, victim).Alive)
	assert.Equal(t, 19.0, victim.only(t, "TAKE_DAMAGE")["health"])
	assert.Empty(t, victim.ofType(t, "PLAYER_DIED"))
	assert.Empty(t, attacker.ofType(t, "TAKE_DAMAGE"))
}

func TestAttack_Rejections(t *testing.T) {
	h := newTestHub(t)
	attacker := h.join(t, "alice")
	victim := h.join(t, "bob")
	corpse := h.join(t, "corpse")
	h.place(t, victim, 252.1, 250)
	h.player(t, corpse).Die(h.clock.Now(), 5*time.Second)
	resetAll(attacker, victim, corpse)

	h.send(attacker, `{"type":"ATTACK","targetId":"player_2"}`)   // 2.1 > 2
	h.send(attacker, `{"type":"ATTACK","targetId":"player_1"}`)   // себя
	h.send(attacker, `{"type":"ATTACK","targetId":"player_3"}`)   // мёртв
	h.send(attacker, `{"type":"ATTACK","targetId":"player_404"}`) // нет такого
	h.send(corpse, `{"type":"ATTACK","targetId":"player_1"}`)     // мёртвый не бьёт

	assert.Equal(t, 20, h.player(t, victim).Health)
	assert.Equal(t, 20, h.player(t, attacker).Health)
	for _, c := range []*fakeConn{attacker, victim, corpse} {
		assert.Empty(t, c.messages(t))
	}
}

func TestRespawn(t *testing.T) {
	h := newTestHub(t)
	attacker := h.join(t, "alice")
	victim := h.join(t, "bob")
	watcher := h.join(t, "watcher")
	h.place(t, victim, 251, 249)
	h.player(t, victim).Health = 1
	h.send(attacker, `{"type":"ATTACK","targetId":"player_2"}`)
	require.False(t, h.player(t, victim).Alive)
	resetAll(attacker, victim, watcher)

	h.clock.Advance(4999 * time.Millisecond)
	h.send(victim, `{"type":"RESPAWN"}`)
	assert.False(t, h.player(t, victim).Alive, "до истечения respawnTime")
	assert.Empty(t, victim.messages(t))

	h.clock.Advance(time.Millisecond)
	h.send(victim, `{"type":"RESPAWN"}`)

	v := h.player(t, victim)
	assert.True(t, v.Alive)
	assert.Equal(t, 20, v.Health)
	assert.Equal(t, vec.Vec2Float{X: 250, Y: 250}, v.Position)
	assert.True(t, v.RespawnTime.IsZero())

	assert.Equal(t, map[string]interface{}{"type": "RESPAWNED", "x": 250.0, "y": 250.0, "health": 20.0},
		victim.only(t, "RESPAWNED"))
	respawned := map[string]interface{}{"type": "PLAYER_RESPAWNED", "playerId": "player_2", "x": 250.0, "y": 250.0, "health": 20.0}
	assert.Equal(t, respawned, watcher.only(t, "PLAYER_RESPAWNED"))
	// сам возродившийся тоже получает PLAYER_RESPAWNED
	assert.Equal(t, respawned, victim.only(t, "PLAYER_RESPAWNED"))

	// живой игрок не возрождается повторно
	victim.reset()
	h.send(victim, `{"type":"RESPAWN"}`)
	assert.Empty(t, victim.messages(t))
}

func TestHealTick(t *testing.T) {
	h := newTestHub(t)
	hurt := h.join(t, "hurt")
	full := h.join(t, "full")
	dead := h.join(t, "dead")
	h.player(t, hurt).Health = 18
	h.player(t, dead).Health = 0
	h.player(t, dead).Die(h.clock.Now(), time.Hour)
	resetAll(hurt, full, dead)

	h.clock.Advance(4 * time.Second)
	h.tick()
	assert.Empty(t, hurt.messages(t))

	h.clock.Advance(time.Second)
	h.tick()
	assert.Equal(t, 19, h.player(t, hurt).Health)
	assert.Equal(t, map[string]interface{}{"type": "HEAL", "health": 19.0}, hurt.only(t, "HEAL"))

	// следующий раз только через интервал
	h.tick()
	assert.Len(t, hurt.ofType(t, "HEAL"), 1)
	h.clock.Advance(5 * time.Second)
	h.tick()
	assert.Equal(t, 20, h.player(t, hurt).Health)

	h.clock.Advance(5 * time.Second)
	h.tick()
	assert.Len(t, hurt.ofType(t, "HEAL"), 2, "при полном здоровье лечения нет")

	assert.Empty(t, full.messages(t))
	assert.Empty(t, dead.messages(t))
	assert.Equal(t, 0, h.player(t, dead).Health)
}

func TestChat(t *testing.T) {
	h := newTestHub(t)
	speaker := h.join(t, "speaker")
	near := h.join(t, "near")
	far := h.join(t, "far")
	h.place(t, near, 250, 450) // ровно 200
	h.place(t, far, 250, 450.5)
	resetAll(speaker, near, far)

	h.send(speaker, `{"type":"CHAT","text":"привет"}`)

	want := map[string]interface{}{
		"type":      "CHAT_MESSAGE",
		"playerId":  "player_1",
		"username":  "speaker",
		"message":   "привет",
		"timestamp": float64(startTime.UnixMilli()),
	}
	assert.Equal(t, want, speaker.only(t, "CHAT_MESSAGE"))
	assert.Equal(t, want, near.only(t, "CHAT_MESSAGE"))
	assert.Empty(t, far.messages(t))
}

func TestChat_DeadPlayerCanSpeak(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "ghost")
	h.player(t, c).Die(h.clock.Now(), 5*time.Second)
	c.reset()

	h.send(c, `{"type":"CHAT","text":"…"}`)
	assert.Len(t, c.ofType(t, "CHAT_MESSAGE"), 1)
}
