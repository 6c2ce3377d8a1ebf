// Бот для нагрузочной и ручной проверки сервера: подключает N клиентов,
// которые ходят, копают, ставят блоки и пишут в чат.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annel0/minisrooft/internal/logging"
	"github.com/annel0/minisrooft/internal/protocol"
	"github.com/annel0/minisrooft/internal/world/block"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:3000/ws", "адрес WebSocket сервера")
		count    = flag.Int("n", 1, "количество ботов")
		interval = flag.Duration("interval", 500*time.Millisecond, "пауза между действиями")
		duration = flag.Duration("duration", 0, "время работы (0: до Ctrl+C)")
		verbose  = flag.Bool("v", false, "печатать входящие сообщения")
	)
	flag.Parse()

	opts := logging.DefaultOptions()
	if *verbose {
		opts.ConsoleLevel = logging.DEBUG
	}
	if err := logging.InitDefaultLogger("bot", opts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	var wg sync.WaitGroup
	for i := 0; i < *count; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b := &bot{name: fmt.Sprintf("bot_%d", n), interval: *interval, rnd: rand.New(rand.NewSource(time.Now().UnixNano() + int64(n)))}
			if err := b.run(ctx, *url); err != nil {
				logging.Error("%s: %v", b.name, err)
			}
		}(i + 1)
	}
	wg.Wait()
}

type bot struct {
	name     string
	interval time.Duration
	rnd      *rand.Rand

	mu    sync.Mutex
	x, y  float64
	alive bool
	stats map[string]int
}

func (b *bot) run(ctx context.Context, url string) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer ws.Close()

	b.stats = make(map[string]int)
	if err := b.send(ws, map[string]interface{}{"type": protocol.TypeJoin, "username": b.name}); err != nil {
		return err
	}

	readErr := make(chan error, 1)
	go func() { readErr <- b.readLoop(ws) }()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			b.report()
			return nil
		case err := <-readErr:
			b.report()
			return err
		case <-ticker.C:
			if err := b.act(ws); err != nil {
				return err
			}
		}
	}
}

func (b *bot) readLoop(ws *websocket.Conn) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		msgType, err := protocol.PeekType(data)
		if err != nil {
			logging.Warn("%s: непонятный кадр: %v", b.name, err)
			continue
		}
		logging.Debug("%s ◀ %s", b.name, data)

		b.mu.Lock()
		b.stats[string(msgType)]++
		switch msgType {
		case protocol.TypeInit, protocol.TypeRespawned:
			var pos struct{ X, Y float64 }
			if json.Unmarshal(data, &pos) == nil {
				b.x, b.y = pos.X, pos.Y
			}
			b.alive = true
		case protocol.TypeJoinError:
			b.mu.Unlock()
			return fmt.Errorf("join rejected: %s", data)
		case protocol.TypePlayerDied:
			b.alive = false
		}
		b.mu.Unlock()
	}
}

// act выбирает случайное действие рядом с ботом.
func (b *bot) act(ws *websocket.Conn) error {
	b.mu.Lock()
	x, y, alive := b.x, b.y, b.alive
	b.mu.Unlock()

	if !alive {
		return b.send(ws, map[string]interface{}{"type": protocol.TypeRespawn})
	}

	switch b.rnd.Intn(6) {
	case 0, 1:
		dir := []string{"up", "down", "left", "right"}[b.rnd.Intn(4)]
		return b.send(ws, map[string]interface{}{"type": protocol.TypeMove, dir: true})
	case 2:
		return b.send(ws, map[string]interface{}{"type": protocol.TypeBreakBlock, "x": int(x), "y": int(y) + 1})
	case 3:
		return b.send(ws, map[string]interface{}{"type": protocol.TypePlaceBlock, "x": int(x) + 1, "y": int(y), "blockType": block.Dirt})
	case 4:
		return b.send(ws, map[string]interface{}{"type": protocol.TypeChat, "text": "привет от " + b.name})
	default:
		return nil
	}
}

func (b *bot) send(ws *websocket.Conn, msg map[string]interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	logging.Debug("%s ▶ %s", b.name, data)
	return nil
}

func (b *bot) report() {
	b.mu.Lock()
	defer b.mu.Unlock()
	logging.Info("%s: получено %v", b.name, b.stats)
}
