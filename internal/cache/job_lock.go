package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/constants"
	"github.com/agendasuperapi/renda-recorrente2-sub004/internal/logger"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrJobLocked 同名任务正在其他实例执行
var ErrJobLocked = errors.New("job is already running")

const defaultJobLockTTL = 10 * time.Minute

// JobLocker 批处理任务互斥锁
// client 为空时直接执行，Redis 不可用不阻塞任务
type JobLocker struct {
	locker *redislock.Client
	prefix string
	ttl    time.Duration
}

// NewJobLocker 创建任务锁
func NewJobLocker(client *redis.Client, prefix string, ttl time.Duration) *JobLocker {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = constants.RedisPrefixDefault
	}
	if ttl <= 0 {
		ttl = defaultJobLockTTL
	}
	j := &JobLocker{prefix: prefix, ttl: ttl}
	if client != nil {
		j.locker = redislock.New(client)
	}
	return j
}

// Run 持锁执行 fn
func (j *JobLocker) Run(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if j == nil || j.locker == nil {
		return fn(ctx)
	}
	lockKey := fmt.Sprintf("%s:%s", j.prefix, key)
	lock, err := j.locker.Obtain(ctx, lockKey, j.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		logger.Warnw("job_lock_not_obtained", "key", lockKey)
		return ErrJobLocked
	}
	if err != nil {
		logger.Warnw("job_lock_unavailable_proceeding", "key", lockKey, "error", err)
		return fn(ctx)
	}
	defer func() {
		// 任务 ctx 可能已超时，释放用独立 ctx
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warnw("job_lock_release_failed", "key", lockKey, "error", err)
		}
	}()
	return fn(ctx)
}
