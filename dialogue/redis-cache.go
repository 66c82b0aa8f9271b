package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	storyKeyPrefix     = "ezapi:story:"
	storyLockKeyPrefix = "ezapi:story-lock:"
	defaultLockExpiry  = 30 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// RedisStoryCache keeps story records in redis and guards refreshes with a redsync mutex,
// so several processes sharing one redis fetch a story one at a time.
// A held lock is extended every half expiry until released, so a refresh may outlive the expiry.
type RedisStoryCache struct {
	client     *redis.Client
	redsync    *redsync.Redsync
	logger     *slog.Logger
	lockExpiry time.Duration
}

var _ StoryCache = (*RedisStoryCache)(nil)

func NewRedisStoryCache(client *redis.Client, logger *slog.Logger) *RedisStoryCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisStoryCache{
		client:     client,
		redsync:    redsync.New(goredis.NewPool(client)),
		logger:     logger,
		lockExpiry: defaultLockExpiry,
	}
}

// NewRedisStoryCacheFromURL connects to a redis:// url.
func NewRedisStoryCacheFromURL(redisURL string, logger *slog.Logger) (*RedisStoryCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStoryCache(redis.NewClient(opts), logger), nil
}

func (r *RedisStoryCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStoryCache) Close() error {
	return r.client.Close()
}

func (r *RedisStoryCache) Get(ctx context.Context, storyID int) (*StoryRecord, error) {
	data, err := r.client.Get(ctx, storyKey(storyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Story not cached", "story_id", storyID)
			return nil, nil
		}
		r.logger.Error("Failed to load story", "story_id", storyID, "error", err)
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	var record StoryRecord
	if err := json.Unmarshal(data, &record); err != nil {
		r.logger.Error("Failed to unmarshal story", "story_id", storyID, "error", err)
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &record, nil
}

func (r *RedisStoryCache) Put(ctx context.Context, record *StoryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal story: %w", err)
	}
	if err := r.client.Set(ctx, storyKey(record.StoryID), data, 0).Err(); err != nil {
		r.logger.Error("Failed to save story", "story_id", record.StoryID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

// Lock waits for the story's refresh lock until ctx ends.
func (r *RedisStoryCache) Lock(ctx context.Context, storyID int) (func(), error) {
	mutex := r.redsync.NewMutex(storyLockKeyPrefix+strconv.Itoa(storyID),
		redsync.WithExpiry(r.lockExpiry),
		redsync.WithTries(math.MaxInt32),
		redsync.WithRetryDelay(lockRetryDelay))
	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, fmt.Errorf("failed to lock story %d: %w", storyID, err)
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go r.keepLock(mutex, storyID, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			if _, err := mutex.Unlock(); err != nil {
				r.logger.Warn("Failed to unlock story", "story_id", storyID, "error", err)
			}
		})
	}, nil
}

func (r *RedisStoryCache) keepLock(mutex *redsync.Mutex, storyID int, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(r.lockExpiry / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if ok, err := mutex.Extend(); !ok || err != nil {
				r.logger.Warn("Failed to extend story lock", "story_id", storyID, "error", err)
			}
		}
	}
}

func storyKey(storyID int) string {
	return storyKeyPrefix + strconv.Itoa(storyID)
}
