package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore реализует Store в памяти.
// Используется, когда Redis не настроен, и в тестах.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Entry
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore создаёт хранилище; ttl <= 0 отключает истечение записей.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.data[e.PlayerID]; ok && e.Username == "" {
		e.Username = prev.Username
	}
	e.UpdatedAt = s.now()
	s.data[e.PlayerID] = e
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, playerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.data, playerID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	result := make([]Entry, 0, len(s.data))
	for id, e := range s.data {
		if s.ttl > 0 && now.Sub(e.UpdatedAt) > s.ttl {
			delete(s.data, id)
			continue
		}
		result = append(result, e)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].PlayerID < result[j].PlayerID })
	return result, nil
}

func (s *MemoryStore) Close() error { return nil }
