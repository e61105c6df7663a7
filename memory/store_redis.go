package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/synthmind/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStoreConfig 快照 Redis 存储配置
type RedisStoreConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`

	// Key is the Redis key the snapshot document lives under.
	Key string `yaml:"key" json:"key"`

	// MaxRetries 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// PoolSize 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// DefaultRedisStoreConfig 返回默认配置
func DefaultRedisStoreConfig() RedisStoreConfig {
	return RedisStoreConfig{
		Addr:       "localhost:6379",
		Key:        "synthmind:memory:snapshot",
		MaxRetries: 3,
		PoolSize:   10,
	}
}

// RedisStore persists the snapshot as a JSON document under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the server before returning.
func NewRedisStore(config RedisStoreConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultRedisStoreConfig()
	if config.Addr == "" {
		config.Addr = def.Addr
	}
	if config.Key == "" {
		config.Key = def.Key
	}

	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		MaxRetries: config.MaxRetries,
		PoolSize:   config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		key:    config.Key,
		logger: logger.With(zap.String("component", "redis_store")),
	}, nil
}

// Save overwrites the snapshot document.
func (s *RedisStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return types.NewValidationError("snapshot is nil")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot to redis: %w", err)
	}
	s.logger.Debug("snapshot saved", zap.Int("bytes", len(data)))
	return nil
}

// Load reads the snapshot document, or NOT_FOUND when the key is absent.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, types.NewNotFoundError("snapshot", s.key)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot from redis: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
