// Package lock аренда в Redis, чтобы фоновую задачу выполнял один процесс
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired аренду держит другой процесс
var ErrNotAcquired = errors.New("lease is held by another process")

// снимаем ключ, только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// Lease взятая аренда
type Lease struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire SET NX PX; ErrNotAcquired, если ключ уже занят
func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	lease := &Lease{client: l.client, key: l.prefix + name, token: uuid.NewString()}

	ok, err := l.client.SetNX(ctx, lease.key, lease.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return lease, nil
}

// Release отпускает аренду; истёкшую и перехваченную не трогает
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}
