package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/observability"
	"go.uber.org/zap"
)

type Job func(ctx context.Context) error

type Runner struct {
	ctx context.Context
	log *zap.Logger
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	return &Runner{ctx: ctx, log: logging.OrNop(log)}
}

// Every запускает fn по тикеру до отмены контекста Runner.
// Паника в задаче не роняет процесс и считается ошибкой.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

func (r *Runner) run(name string, fn Job) {
	start := time.Now()
	outcome := "ok"
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				outcome = "panic"
				err = fmt.Errorf("panic in job %s: %v", name, p)
			}
		}()
		return fn(r.ctx)
	}()
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		jobLastSuccess.WithLabelValues(name).SetToCurrentTime()
	case r.ctx.Err() != nil:
		// остановка сервиса, не ошибка задачи
		outcome = "cancelled"
	default:
		if outcome == "ok" {
			outcome = "error"
		}
		jobErrors.WithLabelValues(name).Inc()
		observability.CaptureWithTags(err, map[string]string{"job": name})
		r.log.Error("job failed", zap.String("job", name), zap.String("outcome", outcome), zap.Error(err))
	}
	jobRuns.WithLabelValues(name, outcome).Inc()
}

// DailyAt: раз в сутки в hour:min по loc. Пропущенный из-за простоя запуск не догоняется.
func (r *Runner) DailyAt(hour, min int, loc *time.Location, name string, fn Job) {
	go func() {
		for {
			now := time.Now().In(loc)
			t := time.NewTimer(nextDaily(now, hour, min).Sub(now))
			select {
			case <-r.ctx.Done():
				t.Stop()
				return
			case <-t.C:
				r.run(name, fn)
			}
		}
	}()
}

func nextDaily(now time.Time, hour, min int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
