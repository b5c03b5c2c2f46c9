package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"dukapos/backend/internal/store"
)

type RedisRecordCache struct {
	client *redis.Client
}

func NewRedisRecordCache(addr string, password string, db int) *RedisRecordCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisRecordCache{client: client}
}

func (c *RedisRecordCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRecordCache) Close() error {
	return c.client.Close()
}

func (c *RedisRecordCache) Get(ctx context.Context, table string, id string) (store.Record, bool, error) {
	val, err := c.client.Get(ctx, recordKey(table, id)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var rec store.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (c *RedisRecordCache) Set(ctx context.Context, table string, id string, rec store.Record, ttl time.Duration) error {
	if rec == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, recordKey(table, id), payload, ttl).Err()
}

func recordKey(table string, id string) string {
	return "record:" + table + ":" + id
}
