// event-cli читает доменные события сервера из NATS JetStream.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/annel0/minisrooft/internal/eventbus"
)

const (
	defaultNatsURL = "nats://127.0.0.1:4222"
	timeFormat     = "2006-01-02T15:04:05Z"
)

func main() {
	var (
		natsURL    = flag.String("nats", defaultNatsURL, "NATS server URL")
		stream     = flag.String("stream", "EVENTS", "JetStream stream name")
		command    = flag.String("cmd", "tail", "Command: tail, stats")
		eventTypes = flag.String("types", "", "Event types filter (comma-separated)")
		players    = flag.String("players", "", "Player IDs filter (comma-separated)")
		limit      = flag.Int("limit", 0, "Stop after N events (0 = unlimited)")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 0)
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}
	defer bus.Close()

	switch *command {
	case "tail":
		err = tailEvents(bus, parseStringList(*eventTypes), parseStringList(*players), *limit)
	case "stats":
		err = showStats(bus)
	default:
		fmt.Printf("❌ Unknown command: %s\n", *command)
		os.Exit(2)
	}
	if err != nil {
		bus.Close()
		log.Fatalf("❌ %v", err)
	}
}

// tailEvents печатает новые события до Ctrl+C или до limit.
func tailEvents(bus eventbus.EventBus, types, players []string, limit int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan *eventbus.Envelope, 64)
	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(_ context.Context, ev *eventbus.Envelope) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("🎬 Tailing events (types: %v, players: %v)\n", types, players)

	count := 0
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\n📊 Total events: %d\n", count)
			return nil
		case ev := <-events:
			if !matchPlayer(ev, players) {
				continue
			}
			printEvent(ev)
			count++
			if limit > 0 && count >= limit {
				fmt.Printf("\n📊 Total events: %d\n", count)
				return nil
			}
		}
	}
}

func showStats(bus *eventbus.JetStreamBus) error {
	info, err := bus.StreamInfo()
	if err != nil {
		return fmt.Errorf("stream info: %w", err)
	}

	fmt.Printf("Stream: %s\n", info.Config.Name)
	fmt.Printf("Subjects: %v\n", info.Config.Subjects)
	fmt.Printf("Retention: %v\n", info.Config.MaxAge)
	fmt.Printf("Messages: %d (%d bytes)\n", info.State.Msgs, info.State.Bytes)
	if info.State.Msgs > 0 {
		fmt.Printf("Period: %s - %s\n", info.State.FirstTime.UTC().Format(timeFormat), info.State.LastTime.UTC().Format(timeFormat))
	}
	fmt.Printf("Consumers: %d\n", info.State.Consumers)
	return nil
}

// eventDetails: общие поля полезной нагрузки всех событий игры
type eventDetails struct {
	PlayerID  string  `json:"player_id"`
	Username  string  `json:"username"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	BlockType *int    `json:"block_type"`
	Text      string  `json:"text"`
}

func matchPlayer(ev *eventbus.Envelope, players []string) bool {
	if len(players) == 0 {
		return true
	}
	var d eventDetails
	if err := ev.Decode(&d); err != nil {
		return false
	}
	for _, p := range players {
		if p == d.PlayerID {
			return true
		}
	}
	return false
}

// printEvent выводит событие в читаемом формате
func printEvent(ev *eventbus.Envelope) {
	fmt.Printf("[%s] %s [%s] %s\n", ev.Timestamp.Local().Format("15:04:05"), ev.Source, ev.EventType, ev.ID)

	var d eventDetails
	if err := ev.Decode(&d); err != nil {
		fmt.Printf("  Payload: %s\n", ev.Payload)
		return
	}
	switch {
	case strings.HasPrefix(ev.EventType, "block."):
		blockType := 0
		if d.BlockType != nil {
			blockType = *d.BlockType
		}
		fmt.Printf("  Block: (%.0f,%.0f) type=%d Player: %s\n", d.X, d.Y, blockType, d.PlayerID)
	case ev.EventType == eventbus.EventChatMessage:
		fmt.Printf("  %s (%s): %s\n", d.Username, d.PlayerID, d.Text)
	default:
		fmt.Printf("  Player: %s %s at (%.1f,%.1f)\n", d.PlayerID, d.Username, d.X, d.Y)
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
