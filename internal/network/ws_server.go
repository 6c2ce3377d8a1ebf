package network

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/annel0/minisrooft/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// WSServer принимает WebSocket-подключения и передаёт кадры в Hub.
type WSServer struct {
	hub      Hub
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewWSServer создаёт сервер поверх hub.
func NewWSServer(hub Hub, logger *logging.Logger) *WSServer {
	if logger == nil {
		logger = logging.GetNetworkLogger()
	}
	return &WSServer{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Клиент раздаётся с другого origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handler возвращает маршрутизатор с точкой подключения /ws.
func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	return mux
}

// ServeHTTP выполняет upgrade и запускает насосы чтения и записи.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Ошибка upgrade от %s: %v", r.RemoteAddr, err)
		return
	}

	c := &wsConn{
		id:     uuid.NewString(),
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		logger: s.logger,
	}

	if !s.hub.Connect(c) {
		c.Close()
		ws.Close()
		return
	}
	s.logger.Info("WebSocket %s подключён с %s", c.id, r.RemoteAddr)

	go c.writePump()
	go s.readPump(c)
}

// readPump читает кадры клиента по одному, сохраняя порядок.
func (s *WSServer) readPump(c *wsConn) {
	defer func() {
		if !s.hub.Disconnect(c.id) {
			c.Close()
		}
		c.ws.Close()
		s.logger.Info("WebSocket %s отключён", c.id)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("Ошибка чтения %s: %v", c.id, err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			s.logger.Debug("Бинарный кадр от %s пропущен", c.id)
			continue
		}
		if !s.hub.Receive(c.id, data) {
			return
		}
	}
}

// wsConn реализует game.Conn поверх gorilla/websocket.
type wsConn struct {
	id     string
	ws     *websocket.Conn
	logger *logging.Logger

	mu     sync.RWMutex // closed и закрытие send
	closed bool
	send   chan []byte
}

func (c *wsConn) ID() string { return c.id }

// Send ставит кадр в очередь. Переполненная очередь закрывает соединение.
func (c *wsConn) Send(data []byte) bool {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return false
	}
	select {
	case c.send <- data:
		c.mu.RUnlock()
		return true
	default:
	}
	c.mu.RUnlock()

	c.logger.Warn("Очередь отправки %s переполнена, соединение закрывается", c.id)
	c.Close()
	return false
}

// Close закрывает очередь; writePump дописывает её и отправляет CloseMessage.
func (c *wsConn) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *wsConn) Open() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// writePump единственный пишет в сокет.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			w, err := c.ws.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
