package ctxutil

import (
	"context"
	"time"
)

// приватные ключи, чтобы исключить коллизии
type key int

const (
	keySchoolID key = iota
	keyUserID
	keyOpName
	keyRequestID
)

// WithSchoolID /SchoolID: школа текущего запроса
func WithSchoolID(ctx context.Context, schoolID int64) context.Context {
	return context.WithValue(ctx, keySchoolID, schoolID)
}

func SchoolID(ctx context.Context) (int64, bool) {
	v := ctx.Value(keySchoolID)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// WithUserID /UserID: пользователь из токена
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserID(ctx context.Context) (int64, bool) {
	v := ctx.Value(keyUserID)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// WithOp /Op: имя операции (для логов/трейса)
func WithOp(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyOpName, name)
}

func Op(ctx context.Context) (string, bool) {
	v := ctx.Value(keyOpName)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(keyRequestID).(string)
	return s
}

var (
	DefaultDBTimeout      = 5 * time.Second
	DefaultGatewayTimeout = 15 * time.Second
)

// WithTimeout: удобная обёртка над context.WithTimeout.
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

// WithDBTimeout: стандартный таймаут для БД.
func WithDBTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return withCapped(parent, DefaultDBTimeout)
}

// WithGatewayTimeout: таймаут для внешних шлюзов (SMS, оплата, фото).
func WithGatewayTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return withCapped(parent, DefaultGatewayTimeout)
}

func withCapped(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if dl, ok := parent.Deadline(); ok {
		// если у родителя осталось меньше: берем остаток
		if remain := time.Until(dl); remain < d {
			return context.WithTimeout(parent, remain)
		}
	}
	return context.WithTimeout(parent, d)
}
