package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
// Любое поле можно опустить, тогда берётся значение из Default().
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Game      GameConfig      `yaml:"game"`
	Logging   LoggingConfig   `yaml:"logging"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Presence  PresenceConfig  `yaml:"presence"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port     int `yaml:"port"`
	RESTPort int `yaml:"rest_port"`
	KCPPort  int `yaml:"kcp_port"` // 0: KCP выключен
}

type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type GameConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
	Dir   string `yaml:"dir"`
}

// EventBusConfig: при пустом URL шина живёт в памяти, иначе NATS JetStream.
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

// PresenceConfig: при пустом адресе зеркало присутствия хранится в памяти.
type PresenceConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World:     WorldConfig{Width: 500, Height: 500},
		Game:      GameConfig{TickIntervalMs: 1000},
		Logging:   LoggingConfig{Level: "info", Dir: "logs"},
		EventBus:  EventBusConfig{Stream: "EVENTS", Retention: 24},
		Presence:  PresenceConfig{TTLSeconds: 300},
		Telemetry: TelemetryConfig{ServiceName: "minisrooft"},
	}
}

// GetPort возвращает порт игрового (WebSocket) сервера: config -> PORT -> 3000
func (s *ServerConfig) GetPort() int {
	return getPortWithEnvFallback(s.Port, "PORT", 3000)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// GetKCPPort возвращает KCP порт; 0 означает, что KCP не запускается
func (s *ServerConfig) GetKCPPort() int {
	return getPortWithEnvFallback(s.KCPPort, "GAME_KCP_PORT", 0)
}

// TickInterval возвращает период тика регенерации
func (g *GameConfig) TickInterval() time.Duration {
	if g.TickIntervalMs <= 0 {
		return time.Second
	}
	return time.Duration(g.TickIntervalMs) * time.Millisecond
}

// TTL возвращает время жизни записи присутствия
func (p *PresenceConfig) TTL() time.Duration {
	if p.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.TTLSeconds) * time.Second
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Validate проверяет значения, которые нельзя исправить молча
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world size must be positive, got %dx%d", c.World.Width, c.World.Height)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV GAME_CONFIG; без файла возвращает дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан, используются дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
