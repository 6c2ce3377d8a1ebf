package presence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// KeyPrefix: префикс ключей присутствия в Redis.
const KeyPrefix = "minisrooft:presence:"

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr     string        // Адрес Redis сервера
	Password string        // Пароль (пустой если не требуется)
	DB       int           // Номер базы данных
	TTL      time.Duration // Время жизни записей
}

// RedisStore хранит каждого игрока отдельным hash-ключом с TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore подключается к Redis и проверяет соединение.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func key(playerID string) string { return KeyPrefix + playerID }

func (s *RedisStore) Upsert(ctx context.Context, e Entry) error {
	fields := map[string]interface{}{
		"player_id":  e.PlayerID,
		"x":          strconv.FormatFloat(e.X, 'f', -1, 64),
		"y":          strconv.FormatFloat(e.Y, 'f', -1, 64),
		"health":     e.Health,
		"updated_at": time.Now().UnixMilli(),
	}
	if e.Username != "" {
		fields["username"] = e.Username
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key(e.PlayerID), fields)
	pipe.Expire(ctx, key(e.PlayerID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert presence %s: %w", e.PlayerID, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, playerID string) error {
	if err := s.client.Del(ctx, key(playerID)).Err(); err != nil {
		return fmt.Errorf("failed to remove presence %s: %w", playerID, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan presence keys: %w", err)
	}
	if len(keys) == 0 {
		return []Entry{}, nil
	}

	// Получаем данные пайплайном
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read presence: %w", err)
	}

	result := make([]Entry, 0, len(keys))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue // ключ истёк между SCAN и HGETALL
		}
		result = append(result, entryFromHash(strings.TrimPrefix(keys[i], KeyPrefix), fields))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].PlayerID < result[j].PlayerID })
	return result, nil
}

func entryFromHash(playerID string, fields map[string]string) Entry {
	e := Entry{PlayerID: playerID, Username: fields["username"]}
	e.X, _ = strconv.ParseFloat(fields["x"], 64)
	e.Y, _ = strconv.ParseFloat(fields["y"], 64)
	e.Health, _ = strconv.Atoi(fields["health"])
	if ms, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		e.UpdatedAt = time.UnixMilli(ms)
	}
	return e
}

// Close закрывает соединение с Redis
func (s *RedisStore) Close() error {
	return s.client.Close()
}
