package player

import (
	"errors"
	"fmt"
)

var (
	// ErrUsernameTaken: ник уже занят подключённым игроком
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAlreadyBound: соединение уже связано с игроком
	ErrAlreadyBound = errors.New("connection already bound to a player")
)

// Registry хранит двустороннюю связь соединение↔игрок и индекс ников.
// Не потокобезопасен: используется только из цикла событий хаба.
type Registry struct {
	nextID   uint64
	byConn   map[string]*Player // connID -> игрок
	connByID map[string]string  // playerID -> connID
	byName   map[string]string  // username -> playerID
	order    []string           // connID в порядке входа
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		byConn:   make(map[string]*Player),
		connByID: make(map[string]string),
		byName:   make(map[string]string),
	}
}

// NextID выдаёт новый монотонный идентификатор игрока и его порядковый номер
func (r *Registry) NextID() (string, uint64) {
	r.nextID++
	return fmt.Sprintf("player_%d", r.nextID), r.nextID
}

// UsernameTaken проверяет ник среди подключённых игроков (с учётом регистра)
func (r *Registry) UsernameTaken(username string) bool {
	_, taken := r.byName[username]
	return taken
}

// Bind связывает соединение с игроком во всех индексах сразу
func (r *Registry) Bind(connID string, p *Player) error {
	if _, exists := r.byConn[connID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, connID)
	}
	if r.UsernameTaken(p.Username) {
		return fmt.Errorf("%w: %s", ErrUsernameTaken, p.Username)
	}

	r.byConn[connID] = p
	r.connByID[p.ID] = connID
	r.byName[p.Username] = p.ID
	r.order = append(r.order, connID)
	return nil
}

// Unbind удаляет связь соединения с игроком. Повторный вызов ничего не делает.
func (r *Registry) Unbind(connID string) (*Player, bool) {
	p, exists := r.byConn[connID]
	if !exists {
		return nil, false
	}

	delete(r.byConn, connID)
	delete(r.connByID, p.ID)
	delete(r.byName, p.Username)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p, true
}

// ByConn возвращает игрока соединения
func (r *Registry) ByConn(connID string) (*Player, bool) {
	p, exists := r.byConn[connID]
	return p, exists
}

// ByID возвращает игрока по идентификатору
func (r *Registry) ByID(playerID string) (*Player, bool) {
	connID, exists := r.connByID[playerID]
	if !exists {
		return nil, false
	}
	return r.byConn[connID], true
}

// ConnOf возвращает соединение игрока
func (r *Registry) ConnOf(playerID string) (string, bool) {
	connID, exists := r.connByID[playerID]
	return connID, exists
}

// Each обходит игроков в порядке входа
func (r *Registry) Each(fn func(connID string, p *Player)) {
	for _, connID := range r.order {
		fn(connID, r.byConn[connID])
	}
}

// Len возвращает число зарегистрированных игроков
func (r *Registry) Len() int {
	return len(r.byConn)
}
