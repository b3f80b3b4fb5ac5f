package refreshToken

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshTokenRepo keeps at most one refresh token per user.
type RefreshTokenRepo struct {
	Client redis.Cmdable
}

func New(client redis.Cmdable) *RefreshTokenRepo {
	return &RefreshTokenRepo{Client: client}
}

func (r *RefreshTokenRepo) buildKey(userID uint32) string {
	return fmt.Sprintf("refresh:%d", userID)
}

func (r *RefreshTokenRepo) SaveToken(ctx context.Context, userID uint32, token string, ttl time.Duration) error {
	key := r.buildKey(userID)
	return r.Client.Set(ctx, key, token, ttl).Err()
}

func (r *RefreshTokenRepo) GetToken(ctx context.Context, userID uint32) (string, error) {
	key := r.buildKey(userID)
	return r.Client.Get(ctx, key).Result()
}

func (r *RefreshTokenRepo) DeleteToken(ctx context.Context, userID uint32) error {
	key := r.buildKey(userID)
	return r.Client.Del(ctx, key).Err()
}

// ValidateToken reports whether token is the user's current refresh token.
// A missing or expired token is simply invalid.
func (r *RefreshTokenRepo) ValidateToken(ctx context.Context, userID uint32, token string) (bool, error) {
	storedToken, err := r.GetToken(ctx, userID)
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(storedToken), []byte(token)) == 1, nil
}
