// Package api содержит служебный REST API сервера: здоровье, статистика,
// список игроков, просмотр блоков и метрики Prometheus.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/minisrooft/internal/eventbus"
	"github.com/annel0/minisrooft/internal/game"
	"github.com/annel0/minisrooft/internal/logging"
	"github.com/annel0/minisrooft/internal/middleware"
	"github.com/annel0/minisrooft/internal/presence"
	"github.com/annel0/minisrooft/internal/world/block"
)

// Время ожидания ответа игрового цикла.
const queryTimeout = 2 * time.Second

// GameView: снимки состояния игры, которые читает REST.
type GameView interface {
	Players(ctx context.Context) ([]game.PlayerView, error)
	BlockAt(ctx context.Context, x, y int) (block.ID, error)
	Stats(ctx context.Context) (game.Stats, error)
}

// Config содержит зависимости REST сервера. Bus и Presence необязательны.
type Config struct {
	Addr     string
	Game     GameView
	Bus      eventbus.EventBus
	Presence presence.Store
	Registry *prometheus.Registry // nil: prometheus.DefaultRegisterer/DefaultGatherer
	Service  string               // имя сервиса для otelgin и префикса метрик
	Logger   *logging.Logger
}

// RestServer представляет REST API сервер
type RestServer struct {
	router   *gin.Engine
	server   *http.Server
	game     GameView
	bus      eventbus.EventBus
	presence presence.Store
	metrics  *ServerMetrics
	logger   *logging.Logger
}

// GenericResponse: общий ответ для ошибок
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создаёт сервер и настраивает маршруты
func NewRestServer(cfg Config) *RestServer {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.Service == "" {
		cfg.Service = "rest_api"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetAPILogger()
	}

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Service))
	router.Use(middleware.NewRequestLogger(cfg.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gatherer)

	rs := &RestServer{
		router:   router,
		game:     cfg.Game,
		bus:      cfg.Bus,
		presence: cfg.Presence,
		metrics:  NewServerMetrics(),
		logger:   cfg.Logger,
	}
	rs.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

func (rs *RestServer) setupRoutes() {
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/players", rs.handlePlayers)
		api.GET("/world/block", rs.handleBlock)
		api.GET("/blocks", rs.handleBlockTypes)
		api.GET("/presence", rs.handlePresence)
	}
}

// Handler отдаёт маршрутизатор, например для httptest.
func (rs *RestServer) Handler() http.Handler { return rs.router }

// Start блокируется до остановки сервера. После Stop возвращает nil.
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("rest server: %w", err)
	}
	return nil
}

// Stop корректно завершает обработку запросов.
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": rs.metrics.GetUptime(),
		"time":   time.Now().Unix(),
	})
}

func (rs *RestServer) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), queryTimeout)
}

// handleStats возвращает статистику игры и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	ctx, cancel := rs.queryContext(c)
	defer cancel()

	gameStats, err := rs.game.Stats(ctx)
	if err != nil {
		rs.unavailable(c, err)
		return
	}

	cpuPercent, err := rs.metrics.GetCPUUsage()
	if err != nil {
		rs.logger.Debug("CPU недоступен: %v", err)
	}

	stats := gin.H{
		"game": gameStats,
		"server": gin.H{
			"uptime":         rs.metrics.GetUptime(),
			"uptime_seconds": rs.metrics.UptimeSeconds(),
			"cpu_percent":    cpuPercent,
			"server_time":    time.Now().Unix(),
		},
		"memory": rs.metrics.GetMemoryStats(),
	}
	if rs.bus != nil {
		stats["eventbus"] = rs.bus.Metrics()
	}

	c.JSON(http.StatusOK, stats)
}

func (rs *RestServer) handlePlayers(c *gin.Context) {
	ctx, cancel := rs.queryContext(c)
	defer cancel()

	players, err := rs.game.Players(ctx)
	if err != nil {
		rs.unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players, "total": len(players)})
}

// handleBlock отдаёт блок клетки ?x=&y=
func (rs *RestServer) handleBlock(c *gin.Context) {
	x, errX := strconv.Atoi(c.Query("x"))
	y, errY := strconv.Atoi(c.Query("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "x и y должны быть целыми числами",
		})
		return
	}

	ctx, cancel := rs.queryContext(c)
	defer cancel()

	id, err := rs.game.BlockAt(ctx, x, y)
	if err != nil {
		rs.unavailable(c, err)
		return
	}
	if id == block.OutOfBounds {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("клетка (%d, %d) за пределами мира", x, y),
		})
		return
	}

	t, _ := block.Get(id)
	c.JSON(http.StatusOK, gin.H{
		"x":     x,
		"y":     y,
		"id":    id,
		"name":  t.Name,
		"solid": t.Solid,
	})
}

func (rs *RestServer) handleBlockTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"blocks": block.All()})
}

func (rs *RestServer) handlePresence(c *gin.Context) {
	if rs.presence == nil {
		c.JSON(http.StatusServiceUnavailable, GenericResponse{
			Success: false,
			Message: "зеркало присутствия отключено",
		})
		return
	}

	ctx, cancel := rs.queryContext(c)
	defer cancel()

	entries, err := rs.presence.List(ctx)
	if err != nil {
		rs.logger.Error("Ошибка чтения присутствия: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "не удалось прочитать присутствие",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": entries, "total": len(entries)})
}

// unavailable отвечает 503, если игровой цикл остановлен или не успел ответить.
func (rs *RestServer) unavailable(c *gin.Context, err error) {
	rs.logger.Warn("Игровой цикл недоступен: %v", err)
	c.JSON(http.StatusServiceUnavailable, GenericResponse{
		Success: false,
		Message: "игровой цикл недоступен",
	})
}
