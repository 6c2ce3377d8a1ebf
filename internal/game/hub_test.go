package game

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/minisrooft/internal/eventbus"
	"github.com/annel0/minisrooft/internal/logging"
	"github.com/annel0/minisrooft/internal/player"
	"github.com/annel0/minisrooft/internal/vec"
	"github.com/annel0/minisrooft/internal/world"
	"github.com/annel0/minisrooft/internal/world/block"
)

// fakeConn запоминает отправленные кадры.
type fakeConn struct {
	mu     sync.Mutex
	id     string
	frames [][]byte
	closed bool
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.frames = append(c.frames, data)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) isClosed() bool { return !c.Open() }

// messages декодирует все кадры в map.
func (c *fakeConn) messages(t *testing.T) []map[string]interface{} {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

// ofType возвращает сообщения данного типа.
func (c *fakeConn) ofType(t *testing.T, typ string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, m := range c.messages(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// only проверяет, что сообщение типа typ ровно одно, и возвращает его.
func (c *fakeConn) only(t *testing.T, typ string) map[string]interface{} {
	t.Helper()
	msgs := c.ofType(t, typ)
	require.Len(t, msgs, 1, "%s: ожидалось одно сообщение %s", c.id, typ)
	return msgs[0]
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var startTime = time.UnixMilli(1_700_000_000_000)

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.NewLogger("game-test", logging.Options{Console: io.Discard, ConsoleLevel: logging.ERROR})
	require.NoError(t, err)
	return l
}

type testHub struct {
	*Hub
	clock *manualClock
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	w, err := world.New(500, 500)
	require.NoError(t, err)

	clock := &manualClock{t: startTime}
	h := NewHub(w, HubConfig{
		Clock:  clock.Now,
		Bus:    eventbus.NewMemoryBus(8),
		Logger: quietLogger(t),
	})
	t.Cleanup(func() { _ = h.bus.Close() })
	return &testHub{Hub: h, clock: clock}
}

func (h *testHub) open(id string) *fakeConn {
	c := &fakeConn{id: id}
	h.connect(c)
	return c
}

func (h *testHub) send(c *fakeConn, format string, args ...interface{}) {
	h.receive(c.id, []byte(fmt.Sprintf(format, args...)))
}

// join открывает соединение и входит под ником name.
func (h *testHub) join(t *testing.T, name string) *fakeConn {
	t.Helper()
	c := h.open("conn-" + name)
	h.send(c, `{"type":"JOIN","username":%q}`, name)
	_, ok := h.registry.ByConn(c.id)
	require.True(t, ok, "игрок %s не вошёл", name)
	return c
}

func (h *testHub) player(t *testing.T, c *fakeConn) *player.Player {
	t.Helper()
	p, ok := h.registry.ByConn(c.id)
	require.True(t, ok)
	return p
}

func (h *testHub) place(t *testing.T, c *fakeConn, x, y float64) {
	h.player(t, c).Position = vec.Vec2Float{X: x, Y: y}
}

func resetAll(conns ...*fakeConn) {
	for _, c := range conns {
		c.reset()
	}
}

func TestJoin_SendsInitSnapshot(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")

	init := c.only(t, "INIT")
	assert.Equal(t, "player_1", init["playerId"])
	assert.Equal(t, "steve", init["username"])
	assert.Equal(t, 250.0, init["x"])
	assert.Equal(t, 250.0, init["y"])
	assert.Equal(t, 20.0, init["health"])
	assert.Equal(t, 20.0, init["maxHealth"])
	assert.Equal(t, map[string]interface{}{"1": 0.0, "2": 0.0, "3": 0.0}, init["inventory"])
	assert.Equal(t, map[string]interface{}{"width": 500.0, "height": 500.0}, init["worldSize"])
	assert.Empty(t, init["players"])

	cells := init["worldData"].([]interface{})
	assert.Len(t, cells, 51*51)
	first := cells[0].(map[string]interface{})
	assert.Equal(t, 225.0, first["x"])
	assert.Equal(t, 225.0, first["y"])
}

func TestJoin_NotifiesNearbyAndListsThem(t *testing.T) {
	h := newTestHub(t)
	alice := h.join(t, "alice")
	far := h.join(t, "far")
	h.place(t, far, 0, 0)
	resetAll(alice, far)

	bob := h.join(t, "bob")

	joined := alice.only(t, "PLAYER_JOINED")
	assert.Equal(t, "player_3", joined["playerId"])
	assert.Equal(t, "bob", joined["username"])
	assert.Equal(t, 20.0, joined["health"])

	assert.Empty(t, far.ofType(t, "PLAYER_JOINED"), "дальний игрок вне радиуса")
	assert.Empty(t, bob.ofType(t, "PLAYER_JOINED"), "вошедший не получает о себе")

	players := bob.only(t, "INIT")["players"].([]interface{})
	require.Len(t, players, 1)
	assert.Equal(t, map[string]interface{}{
		"id": "player_1", "username": "alice", "x": 250.0, "y": 250.0, "health": 20.0,
	}, players[0])
}

func TestJoin_DuplicateUsernameRejected(t *testing.T) {
	h := newTestHub(t)
	h.join(t, "steve")

	dup := h.open("dup")
	h.send(dup, `{"type":"JOIN","username":"steve"}`)

	joinErr := dup.only(t, "JOIN_ERROR")
	assert.Equal(t, "Этот ник уже занят", joinErr["message"])
	assert.True(t, dup.isClosed())
	assert.Equal(t, 1, h.registry.Len())

	// ник чувствителен к регистру
	h.join(t, "Steve")
	assert.Equal(t, 2, h.registry.Len())
}

func TestJoin_RejectedConnectionCannotAct(t *testing.T) {
	h := newTestHub(t)
	h.join(t, "steve")
	watcher := h.join(t, "watcher")
	watcher.reset()

	dup := h.open("dup")
	h.send(dup, `{"type":"JOIN","username":"steve"}`)
	require.True(t, dup.isClosed())

	// кадры, прочитанные до Disconnect, отбрасываются
	h.send(dup, `{"type":"JOIN","username":"ghost"}`)
	h.send(dup, `{"type":"BREAK_BLOCK","x":250,"y":251}`)
	h.send(dup, `{"type":"CHAT","text":"boo"}`)

	assert.Equal(t, 2, h.registry.Len())
	_, joined := h.registry.ByConn(dup.id)
	assert.False(t, joined)
	assert.Equal(t, block.Grass, h.world.GetBlock(250, 251))
	assert.Empty(t, watcher.messages(t))

	h.disconnect(dup.id)
	assert.Equal(t, 2, h.registry.Len())
}

func TestJoin_EmptyUsernameGetsDefault(t *testing.T) {
	h := newTestHub(t)
	c := h.open("anon")
	h.send(c, `{"type":"JOIN"}`)

	init := c.only(t, "INIT")
	assert.Equal(t, "Игрок1", init["username"])
}

func TestJoin_SecondJoinOnSameConnectionIgnored(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.send(c, `{"type":"JOIN","username":"other"}`)

	assert.Len(t, c.ofType(t, "INIT"), 1)
	assert.Equal(t, 1, h.registry.Len())
	assert.Equal(t, "steve", h.player(t, c).Username)
}

func TestJoin_IDsAreMonotonic(t *testing.T) {
	h := newTestHub(t)
	a := h.join(t, "a")
	h.disconnect(a.id)
	b := h.join(t, "b")
	assert.Equal(t, "player_2", h.player(t, b).ID)
}

func TestUnjoinedConnectionIsIgnored(t *testing.T) {
	h := newTestHub(t)
	watcher := h.join(t, "watcher")
	watcher.reset()

	c := h.open("lurker")
	h.send(c, `{"type":"MOVE","right":true}`)
	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":251}`)
	h.send(c, `{"type":"CHAT","text":"hi"}`)
	h.send(c, `{"type":"RESPAWN"}`)

	assert.Empty(t, c.messages(t))
	assert.Empty(t, watcher.messages(t))
	assert.Equal(t, block.Grass, h.world.GetBlock(250, 251))
}

func TestReceive_ProtocolErrorsKeepConnection(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	c.reset()

	h.send(c, `{"type":"TELEPORT","x":1}`)
	h.send(c, `not json`)
	h.send(c, `{"x":1}`)

	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.protocolErrors))
	assert.False(t, c.isClosed())
	assert.Empty(t, c.messages(t))
	assert.Equal(t, vec.Vec2Float{X: 250, Y: 250}, h.player(t, c).Position)
}

func TestReceive_UnknownConnectionIgnored(t *testing.T) {
	h := newTestHub(t)
	h.receive("ghost", []byte(`{"type":"JOIN","username":"ghost"}`))
	assert.Equal(t, 0, h.registry.Len())
}

func TestMove(t *testing.T) {
	h := newTestHub(t)
	mover := h.join(t, "mover")
	watcher := h.join(t, "watcher")
	resetAll(mover, watcher)

	h.send(mover, `{"type":"MOVE","right":true}`)

	assert.Equal(t, vec.Vec2Float{X: 255, Y: 250}, h.player(t, mover).Position)
	moved := watcher.only(t, "PLAYER_MOVED")
	assert.Equal(t, "player_1", moved["playerId"])
	assert.Equal(t, 255.0, moved["x"])
	assert.Equal(t, 250.0, moved["y"])
	assert.Empty(t, mover.messages(t), "движущийся не получает своё перемещение")
}

func TestMove_DiagonalIsNotNormalised(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.send(c, `{"type":"MOVE","up":true,"right":true}`)
	assert.Equal(t, vec.Vec2Float{X: 255, Y: 245}, h.player(t, c).Position)

	h.send(c, `{"type":"MOVE","up":true,"down":true}`)
	assert.Equal(t, vec.Vec2Float{X: 255, Y: 245}, h.player(t, c).Position)
}

func TestMove_IntoSolidRejected(t *testing.T) {
	h := newTestHub(t)
	mover := h.join(t, "mover")
	watcher := h.join(t, "watcher")
	resetAll(mover, watcher)

	h.send(mover, `{"type":"MOVE","down":true}`)

	assert.Equal(t, vec.Vec2Float{X: 250, Y: 250}, h.player(t, mover).Position)
	assert.Empty(t, watcher.messages(t))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.actionsRejected.WithLabelValues("MOVE", "blocked")))
}

func TestMove_ClampedToWorld(t *testing.T) {
	h := newTestHub(t)
	mover := h.join(t, "mover")
	watcher := h.join(t, "watcher")
	h.place(t, mover, 2, 250)
	h.place(t, watcher, 2, 250)
	resetAll(mover, watcher)

	h.send(mover, `{"type":"MOVE","left":true}`)
	assert.Equal(t, vec.Vec2Float{X: 0, Y: 250}, h.player(t, mover).Position)
	assert.Len(t, watcher.ofType(t, "PLAYER_MOVED"), 1)

	// уже у края: позиция не меняется, рассылки нет
	h.send(mover, `{"type":"MOVE","left":true}`)
	assert.Len(t, watcher.ofType(t, "PLAYER_MOVED"), 1)

	h.place(t, mover, 250, 1)
	h.send(mover, `{"type":"MOVE","up":true}`)
	assert.Equal(t, vec.Vec2Float{X: 250, Y: 0}, h.player(t, mover).Position)
}

func TestMove_DeadPlayerIgnored(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.player(t, c).Die(h.clock.Now(), 5*time.Second)

	watcher := h.join(t, "watcher")
	resetAll(c, watcher)

	h.send(c, `{"type":"MOVE","right":true}`)
	assert.Equal(t, vec.Vec2Float{X: 250, Y: 250}, h.player(t, c).Position)
	assert.Empty(t, watcher.messages(t))
	assert.Empty(t, c.messages(t))
}

func TestProximityRadiusIsInclusive(t *testing.T) {
	h := newTestHub(t)
	mover := h.join(t, "mover")
	edge := h.join(t, "edge")
	outside := h.join(t, "outside")
	h.place(t, edge, 355, 250)
	h.place(t, outside, 355.5, 250)
	resetAll(mover, edge, outside)

	h.send(mover, `{"type":"MOVE","right":true}`)

	assert.Len(t, edge.ofType(t, "PLAYER_MOVED"), 1)
	assert.Empty(t, outside.ofType(t, "PLAYER_MOVED"))
}

func TestBroadcastSkipsClosedConnections(t *testing.T) {
	h := newTestHub(t)
	mover := h.join(t, "mover")
	gone := h.join(t, "gone")
	gone.reset()
	gone.Close()

	h.send(mover, `{"type":"MOVE","right":true}`)
	assert.Empty(t, gone.messages(t))
}

func TestDisconnect(t *testing.T) {
	h := newTestHub(t)
	leaver := h.join(t, "leaver")
	stayer := h.join(t, "stayer")
	far := h.join(t, "far")
	h.place(t, far, 0, 0)
	resetAll(stayer, far)

	h.disconnect(leaver.id)

	assert.True(t, leaver.isClosed())
	assert.Equal(t, "player_1", stayer.only(t, "PLAYER_LEFT")["playerId"])
	assert.Len(t, far.ofType(t, "PLAYER_LEFT"), 1, "PLAYER_LEFT рассылается всем")
	assert.Equal(t, 2, h.registry.Len())

	// повторный вызов ничего не делает
	h.disconnect(leaver.id)
	assert.Len(t, stayer.ofType(t, "PLAYER_LEFT"), 1)

	// ник освобождается
	again := h.join(t, "leaver")
	assert.Equal(t, "player_4", h.player(t, again).ID)
}

func TestDisconnect_UnjoinedConnection(t *testing.T) {
	h := newTestHub(t)
	watcher := h.join(t, "watcher")
	watcher.reset()

	c := h.open("lurker")
	h.disconnect(c.id)

	assert.True(t, c.isClosed())
	assert.Empty(t, watcher.messages(t))
	assert.Equal(t, 1, h.stats().Connections)
}

func TestEventsArePublished(t *testing.T) {
	h := newTestHub(t)
	c := h.join(t, "steve")
	h.send(c, `{"type":"BREAK_BLOCK","x":250,"y":251}`)
	h.disconnect(c.id)

	var types []string
	for len(h.outbox) > 0 {
		types = append(types, (<-h.outbox).EventType)
	}
	assert.Equal(t, []string{eventbus.EventPlayerJoined, eventbus.EventBlockBroken, eventbus.EventPlayerLeft}, types)
}

func TestHub_RunServesTransportsAndQueries(t *testing.T) {
	w, err := world.New(64, 64)
	require.NoError(t, err)
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	var joined sync.WaitGroup
	joined.Add(1)
	_, err = bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.EventPlayerJoined}},
		func(context.Context, *eventbus.Envelope) { joined.Done() })
	require.NoError(t, err)

	h := NewHub(w, HubConfig{Bus: bus, Logger: quietLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c := &fakeConn{id: "ws-1"}
	require.True(t, h.Connect(c))
	require.True(t, h.Receive(c.id, []byte(`{"type":"JOIN","username":"steve"}`)))

	players, err := h.Players(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, PlayerView{ID: "player_1", Username: "steve", X: 32, Y: 32, Health: 20, Alive: true}, players[0])

	id, err := h.BlockAt(context.Background(), 32, 33)
	require.NoError(t, err)
	assert.Equal(t, block.Grass, id)

	stats, err := h.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{PlayersOnline: 1, Connections: 1, WorldWidth: 64, WorldHeight: 64}, stats)

	joined.Wait()

	cancel()
	<-h.Done()
	assert.True(t, c.isClosed())

	_, err = h.Players(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.False(t, h.Receive(c.id, []byte(`{"type":"RESPAWN"}`)))
}
