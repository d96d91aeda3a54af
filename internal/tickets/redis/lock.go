package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-deposits/internal/logger"
)

const lockPrefix = "ticket_lock:"

// compare-and-delete so a lock that expired and was retaken is left alone
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NumberLock holds short-lived locks on drawn ticket numbers while a
// reservation commits.
type NumberLock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewNumberLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *NumberLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &NumberLock{Client: client, TTL: ttl, Logger: log}
}

func lockKey(number int) string {
	return lockPrefix + strconv.Itoa(number)
}

// IsLocked reports whether another reservation currently holds number.
func (l *NumberLock) IsLocked(ctx context.Context, number int) (bool, error) {
	_, err := l.Client.Get(ctx, lockKey(number)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Lock a single number
func (l *NumberLock) LockNumber(ctx context.Context, number int, token string) (bool, error) {
	return l.Client.SetNX(ctx, lockKey(number), token, l.TTL).Result()
}

// Unlock a single number if token still owns it
func (l *NumberLock) UnlockNumber(ctx context.Context, number int, token string) error {
	err := unlockScript.Run(ctx, l.Client, []string{lockKey(number)}, token).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

// LockNumbers takes every lock or none. It returns false without error when
// some number is held by another token.
func (l *NumberLock) LockNumbers(ctx context.Context, numbers []int, token string) (bool, error) {
	locked := make([]int, 0, len(numbers))
	for _, n := range numbers {
		ok, err := l.LockNumber(ctx, n, token)
		if err != nil || !ok {
			if uerr := l.UnlockNumbers(ctx, locked, token); uerr != nil && l.Logger != nil {
				l.Logger.Warn("REDIS", fmt.Sprintf("Failed to release partial locks: %v", uerr))
			}
			if err != nil {
				return false, fmt.Errorf("lock ticket %d: %w", n, err)
			}
			if l.Logger != nil {
				l.Logger.Debug("REDIS", fmt.Sprintf("Ticket %d is locked by another reservation", n))
			}
			return false, nil
		}
		locked = append(locked, n)
	}
	return true, nil
}

// Unlock multiple numbers
func (l *NumberLock) UnlockNumbers(ctx context.Context, numbers []int, token string) error {
	var firstErr error
	for _, n := range numbers {
		if err := l.UnlockNumber(ctx, n, token); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
