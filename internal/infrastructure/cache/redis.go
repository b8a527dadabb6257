package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/johnquangdev/lesson-attribution/pkg/config"
)

const runLockKey = "lesson-attribution:matching-run"

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// NewRedisClient creates a Redis client and verifies the connection
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Println("✅ Redis connected successfully")
	return client, nil
}

// RedisRunLock keeps matching runs exclusive across hosts
type RedisRunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRunLock creates a distributed run lock. The TTL bounds how long a
// crashed run can block the next one.
func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisRunLock{client: client, ttl: ttl}
}

// Acquire takes the lock. ok is false when another run holds it.
func (l *RedisRunLock) Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, runLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{runLockKey}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}

// LocalRunLock is the single-process fallback used when Redis is not configured
type LocalRunLock struct {
	held chan struct{}
}

// NewLocalRunLock creates an in-process run lock
func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{held: make(chan struct{}, 1)}
}

// Acquire takes the lock without blocking
func (l *LocalRunLock) Acquire(context.Context) (func(context.Context) error, bool, error) {
	select {
	case l.held <- struct{}{}:
		return func(context.Context) error {
			<-l.held
			return nil
		}, true, nil
	default:
		return nil, false, nil
	}
}
