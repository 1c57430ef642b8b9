package app

import (
	"strconv"
	"time"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requestLog: одна строка лога и счётчик на запрос. Ошибку обрабатываем здесь,
// чтобы статус в логе был итоговым.
func requestLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		rid := c.Get(fiber.HeaderXRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, rid)
		c.SetUserContext(ctxutil.WithRequestID(c.UserContext(), rid))

		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		route := c.Route().Path
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		log.Info("http",
			zap.String("method", c.Method()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", rid))
		return nil
	}
}

// withOp: имя операции для логов и тегов Sentry.
func withOp(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(ctxutil.WithOp(c.UserContext(), name))
		return c.Next()
	}
}

// verifyLimiter: ссылки проверки без подписи, поэтому ограничиваем перебор по IP.
func verifyLimiter(max int) fiber.Handler {
	if max <= 0 {
		max = 30
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{Error: "too many requests"})
		},
	})
}
