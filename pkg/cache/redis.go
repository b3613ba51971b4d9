// Пакет cache предоставляет обёртку для работы с Redis как кешем чтений
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss возвращается, когда запрошенный ключ отсутствует в кеше Redis.
// Позволяет вызывающей стороне отличить кэш-промах от других ошибок Redis.
var ErrCacheMiss = errors.New("cache miss")

// RedisClient обёртка над *redis.Client с методами Set, Get, Invalidate и Close
type RedisClient struct {
	client *redis.Client // внутренний клиент для работы с Redis
}

// NewRedisClient создаёт новый RedisClient для сервера по адресу addr
func NewRedisClient(addr string) *RedisClient {
	return &RedisClient{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Set сохраняет значение value под ключом key с указанным временем жизни expiration
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get возвращает значение по ключу key.
// При отсутствии ключа (redis.Nil) возвращается ErrCacheMiss,
// остальные ошибки Redis прокидываются как есть
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		// кэш-промах: ключ отсутствует
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Invalidate удаляет ключ key из кеша Redis.
// Используется после каждого изменения задания, чтобы чтения не видели устаревших данных
func (r *RedisClient) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Close закрывает соединение с Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}
