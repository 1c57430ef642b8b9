package checkin

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWindow: повтор того же кода раньше этого интервала игнорируется.
const DefaultWindow = 2 * time.Second

// Debouncer решает, принимать ли считанный код.
type Debouncer interface {
	Accept(ctx context.Context, code string, now time.Time) (bool, error)
}

// LocalDebouncer хранит состояние одной сессии (последний принятый код и время).
// Другой код принимается сразу, тот же: не раньше чем через window.
// Владелец один (горутина сессии), блокировок нет.
type LocalDebouncer struct {
	window   time.Duration
	lastCode string
	lastAt   time.Time
	has      bool
}

func NewLocalDebouncer(window time.Duration) *LocalDebouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &LocalDebouncer{window: window}
}

func (d *LocalDebouncer) Accept(_ context.Context, code string, now time.Time) (bool, error) {
	if d.has && code == d.lastCode && now.Sub(d.lastAt) < d.window {
		return false, nil
	}
	d.lastCode, d.lastAt, d.has = code, now, true
	return true, nil
}

type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisDebouncer: общее окно для всех киосков школы, SET NX PX на код.
// Один и тот же код принимается не чаще раза в window, с какого бы киоска его ни считали.
type RedisDebouncer struct {
	rdb    setNXer
	prefix string
	window time.Duration
}

func NewRedisDebouncer(rdb *redis.Client, schoolID int64, window time.Duration) *RedisDebouncer {
	return newRedisDebouncer(rdb, schoolID, window)
}

func newRedisDebouncer(rdb setNXer, schoolID int64, window time.Duration) *RedisDebouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisDebouncer{rdb: rdb, prefix: "checkin:debounce:" + strconv.FormatInt(schoolID, 10) + ":", window: window}
}

func (d *RedisDebouncer) Accept(ctx context.Context, code string, now time.Time) (bool, error) {
	return d.rdb.SetNX(ctx, d.prefix+code, now.UnixMilli(), d.window).Result()
}
