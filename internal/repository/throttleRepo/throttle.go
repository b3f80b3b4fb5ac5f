package throttleRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ThrottleRepo counts requests per subject in fixed windows.
type ThrottleRepo struct {
	Client redis.Cmdable
}

func New(client redis.Cmdable) *ThrottleRepo {
	return &ThrottleRepo{Client: client}
}

func (r *ThrottleRepo) buildKey(subject string, windowStart int64) string {
	return fmt.Sprintf("throttle:%s:%d", subject, windowStart)
}

// Hit records one request for subject in the window containing now and
// returns the count so far plus the time left until the window resets.
func (r *ThrottleRepo) Hit(ctx context.Context, subject string, window time.Duration, now time.Time) (int64, time.Duration, error) {
	start := now.Truncate(window)
	key := r.buildKey(subject, start.Unix())

	var incr *redis.IntCmd
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("throttle hit: %w", err)
	}
	return incr.Val(), start.Add(window).Sub(now), nil
}
