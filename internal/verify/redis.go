package verify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "verify:"

// consumeScript deletes the key only when the stored code matches, so the
// compare and the one-shot removal are a single atomic step.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, address, code string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return s.client.Set(ctx, keyPrefix+address, code, ttl).Err()
}

func (s *RedisStore) Consume(ctx context.Context, address, code string) error {
	n, err := consumeScript.Run(ctx, s.client, []string{keyPrefix + address}, code).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCodeInvalid
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, address string) error {
	return s.client.Del(ctx, keyPrefix+address).Err()
}
