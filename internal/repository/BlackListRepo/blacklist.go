package BlackListRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlackListRepo remembers revoked access tokens until they would have
// expired anyway.
type BlackListRepo struct {
	Client redis.Cmdable
}

func NewBlackListRepo(client redis.Cmdable) *BlackListRepo {
	return &BlackListRepo{
		Client: client,
	}
}

func (r *BlackListRepo) buildKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func (r *BlackListRepo) AddToken(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt).Round(time.Second)
	if ttl <= 0 {
		return nil
	}
	key := r.buildKey(token)
	return r.Client.Set(ctx, key, "1", ttl).Err()
}

func (r *BlackListRepo) RemoveToken(ctx context.Context, token string) error {
	key := r.buildKey(token)
	return r.Client.Del(ctx, key).Err()
}

func (r *BlackListRepo) IsTokenBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := r.Client.Exists(ctx, r.buildKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
