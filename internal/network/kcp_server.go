package network

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/minisrooft/internal/logging"
)

// KCP не шлёт пингов на уровне приложения, поэтому таймаут простоя больше, чем у WebSocket.
const kcpIdleTimeout = 5 * time.Minute

// KCPServer принимает клиентов по KCP (надёжный UDP) с кадрированием FrameCodec.
type KCPServer struct {
	addr   string
	hub    Hub
	codec  *FrameCodec
	logger *logging.Logger

	listener *kcp.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*kcpConn
}

// NewKCPServer создаёт сервер; слушать начинает Start.
func NewKCPServer(addr string, hub Hub, logger *logging.Logger) (*KCPServer, error) {
	if logger == nil {
		logger = logging.GetNetworkLogger()
	}
	codec, err := NewFrameCodec()
	if err != nil {
		return nil, err
	}
	return &KCPServer{
		addr:     addr,
		hub:      hub,
		codec:    codec,
		logger:   logger,
		sessions: make(map[string]*kcpConn),
	}, nil
}

// Start открывает UDP-порт и запускает приём соединений.
func (s *KCPServer) Start() error {
	listener, err := kcp.ListenWithOptions(s.addr, nil, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("KCP сервер слушает %s", listener.Addr())
	return nil
}

// Addr возвращает фактический адрес после Start.
func (s *KCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop закрывает listener и все сессии, дожидаясь их горутин.
func (s *KCPServer) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.mu.Lock()
	for _, c := range s.sessions {
		c.session.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.codec.Close()
	s.logger.Info("KCP сервер остановлен")
	return err
}

func (s *KCPServer) acceptLoop() {
	defer s.wg.Done()

	for {
		session, err := s.listener.AcceptKCP()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, io.ErrClosedPipe) {
				return
			}
			s.logger.Error("Ошибка приёма KCP: %v", err)
			continue
		}

		tuneSession(session)

		c := &kcpConn{
			id:      uuid.NewString(),
			session: session,
			codec:   s.codec,
			send:    make(chan []byte, sendQueueSize),
			logger:  s.logger,
		}

		s.mu.Lock()
		s.sessions[c.id] = c
		s.mu.Unlock()

		if !s.hub.Connect(c) {
			s.forget(c)
			session.Close()
			continue
		}
		s.logger.Info("KCP %s подключён с %s", c.id, session.RemoteAddr())

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			c.writeLoop()
		}()
		go func() {
			defer s.wg.Done()
			s.readLoop(c)
		}()
	}
}

// tuneSession включает быстрый режим KCP.
func tuneSession(session *kcp.UDPSession) {
	session.SetStreamMode(true)
	session.SetWriteDelay(false)
	session.SetNoDelay(1, 20, 2, 1)
	session.SetWindowSize(512, 512)
	session.SetMtu(1400)
}

func (s *KCPServer) readLoop(c *kcpConn) {
	defer func() {
		if !s.hub.Disconnect(c.id) {
			c.Close()
		}
		c.session.Close()
		s.forget(c)
		s.logger.Info("KCP %s отключён", c.id)
	}()

	reader := bufio.NewReader(c.session)
	for {
		c.session.SetReadDeadline(time.Now().Add(kcpIdleTimeout))
		payload, err := s.codec.ReadFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				s.logger.Warn("Ошибка чтения KCP %s: %v", c.id, err)
			}
			return
		}
		if !s.hub.Receive(c.id, payload) {
			return
		}
	}
}

func (s *KCPServer) forget(c *kcpConn) {
	s.mu.Lock()
	delete(s.sessions, c.id)
	s.mu.Unlock()
}

// kcpConn реализует game.Conn поверх UDPSession.
type kcpConn struct {
	id      string
	session *kcp.UDPSession
	codec   *FrameCodec
	logger  *logging.Logger

	mu     sync.RWMutex
	closed bool
	send   chan []byte
}

func (c *kcpConn) ID() string { return c.id }

func (c *kcpConn) Send(data []byte) bool {
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

	c.logger.Warn("Очередь отправки KCP %s переполнена, соединение закрывается", c.id)
	c.Close()
	return false
}

func (c *kcpConn) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

func (c *kcpConn) Open() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// writeLoop отправляет кадры, пока очередь не закрыта, затем закрывает сессию.
func (c *kcpConn) writeLoop() {
	defer c.session.Close()

	for payload := range c.send {
		c.session.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := c.session.Write(c.codec.Encode(payload)); err != nil {
			c.logger.Warn("Ошибка записи KCP %s: %v", c.id, err)
			return
		}
	}
}
