package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/annel0/minisrooft/internal/api"
	"github.com/annel0/minisrooft/internal/config"
	"github.com/annel0/minisrooft/internal/eventbus"
	"github.com/annel0/minisrooft/internal/game"
	"github.com/annel0/minisrooft/internal/logging"
	"github.com/annel0/minisrooft/internal/network"
	"github.com/annel0/minisrooft/internal/observability"
	"github.com/annel0/minisrooft/internal/presence"
	"github.com/annel0/minisrooft/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $GAME_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logOpts := logging.DefaultOptions()
	logOpts.ConsoleLevel = level
	logOpts.ToFile = cfg.Logging.File
	if cfg.Logging.Dir != "" {
		logOpts.Dir = cfg.Logging.Dir
	}
	if err := logging.InitDefaultLogger("server", logOpts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if err := run(cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info("🎮 Запуск сервера: мир %dx%d", cfg.World.Width, cfg.World.Height)

	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	if sub, err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("Логирование событий не запущено: %v", err)
	} else {
		defer sub.Unsubscribe()
	}

	exporter := eventbus.NewMetricsExporter(bus, registry)
	exporter.Start()
	defer exporter.Stop()

	// === ЗЕРКАЛО ПРИСУТСТВИЯ ===
	store, err := newPresenceStore(ctx, cfg.Presence)
	if err != nil {
		return err
	}
	defer store.Close()

	sink, err := presence.StartSink(ctx, bus, store)
	if err != nil {
		return fmt.Errorf("presence sink: %w", err)
	}
	defer sink.Stop()

	// === ИГРОВОЙ ЦИКЛ ===
	w, err := world.New(cfg.World.Width, cfg.World.Height)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}

	rules := game.DefaultRules()
	rules.TickInterval = cfg.Game.TickInterval()
	hub := game.NewHub(w, game.HubConfig{
		Rules:   rules,
		Bus:     bus,
		Metrics: game.NewMetrics(registry),
	})

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// === ТРАНСПОРТЫ ===
	wsAddr := fmt.Sprintf(":%d", cfg.Server.GetPort())
	wsServer := &http.Server{
		Addr:              wsAddr,
		Handler:           network.NewWSServer(hub, nil).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		logging.Info("🌐 WebSocket: ws://localhost%s/ws", wsAddr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("websocket server: %w", err)
		}
	}()

	var kcpServer *network.KCPServer
	if port := cfg.Server.GetKCPPort(); port > 0 {
		kcpServer, err = network.NewKCPServer(fmt.Sprintf(":%d", port), hub, nil)
		if err != nil {
			return fmt.Errorf("kcp server: %w", err)
		}
		if err := kcpServer.Start(); err != nil {
			return err
		}
	}

	restServer := api.NewRestServer(api.Config{
		Addr:     fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Game:     hub,
		Bus:      bus,
		Presence: store,
		Registry: registry,
		Service:  cfg.Telemetry.ServiceName,
	})
	go func() {
		if err := restServer.Start(); err != nil {
			errCh <- err
		}
	}()

	logging.Info("✅ Все сервисы запущены")

	select {
	case <-ctx.Done():
		logging.Info("📡 Получен сигнал завершения")
	case err = <-errCh:
		logging.Error("❌ %v", err)
	}

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки REST API: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("Ошибка остановки WebSocket: %v", err)
	}

	// цикл закрывает соединения; KCP ждёт их насосы
	stopHub()
	<-hub.Done()
	if kcpServer != nil {
		if err := kcpServer.Stop(); err != nil {
			logging.Debug("KCP listener: %v", err)
		}
	}

	logging.Info("👋 Сервер остановлен")
	return err
}

// newEventBus создаёт шину в памяти, если URL не задан, иначе NATS JetStream.
func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("Шина событий: в памяти")
		return eventbus.NewMemoryBus(4096), nil
	}

	retention := time.Duration(cfg.Retention) * time.Hour
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, retention)
	if err != nil {
		return nil, fmt.Errorf("jetstream %s: %w", cfg.URL, err)
	}
	logging.Info("Шина событий: NATS JetStream %s (stream %s)", cfg.URL, cfg.Stream)
	return bus, nil
}

// newPresenceStore создаёт хранилище в памяти, если адрес Redis не задан.
func newPresenceStore(ctx context.Context, cfg config.PresenceConfig) (presence.Store, error) {
	if cfg.RedisAddr == "" {
		return presence.NewMemoryStore(cfg.TTL()), nil
	}

	store, err := presence.NewRedisStore(ctx, presence.RedisConfig{Addr: cfg.RedisAddr, TTL: cfg.TTL()})
	if err != nil {
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	logging.Info("Зеркало присутствия: Redis %s", cfg.RedisAddr)
	return store, nil
}
