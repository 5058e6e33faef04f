package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"arbscan/types"

	"github.com/redis/go-redis/v9"
)

var ErrNoSnapshot = errors.New("no catalog snapshot")

// Store persists a catalog snapshot per exchange as a JSON list in source order.
type Store interface {
	Load(ctx context.Context, exchange string) ([]types.Asset, error)
	Save(ctx context.Context, exchange string, assets []types.Asset) error
}

type FileStore struct {
	Dir string
}

func (s FileStore) path(exchange string) string {
	return filepath.Join(s.Dir, exchange+"_TickersWithPlatform.json")
}

func (s FileStore) Load(_ context.Context, exchange string) ([]types.Asset, error) {
	data, err := os.ReadFile(s.path(exchange))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return decode(data)
}

// Save replaces the snapshot with a rename of a temp file.
func (s FileStore) Save(_ context.Context, exchange string, assets []types.Asset) error {
	data, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := s.path(exchange) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path(exchange)); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func RedisKey(exchange string) string {
	return "arbscan:catalog:" + exchange
}

func (s *RedisStore) Load(ctx context.Context, exchange string) ([]types.Asset, error) {
	data, err := s.rdb.Get(ctx, RedisKey(exchange)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get catalog: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) Save(ctx context.Context, exchange string, assets []types.Asset) error {
	data, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, RedisKey(exchange), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set catalog: %w", err)
	}
	return nil
}

func decode(data []byte) ([]types.Asset, error) {
	if len(data) == 0 {
		return nil, ErrNoSnapshot
	}
	var assets []types.Asset
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if len(assets) == 0 {
		return nil, ErrNoSnapshot
	}
	return assets, nil
}
