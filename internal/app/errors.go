package app

import (
	"errors"
	"net/http"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/export"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/Spok95/school-office/internal/observability"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorBody struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
	Code    string              `json:"code,omitempty"`
}

// ErrorHandler: NotFound → 404, Validation → 422, ошибка шлюза → 502,
// остальное → 500 и Sentry.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	log = logging.OrNop(log)
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
		}
		if errors.Is(err, export.ErrNothingSelected) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Error: "nothing selected"})
		}
		if apperr.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(errorBody{Error: "not found"})
		}
		if ve, ok := apperr.AsValidation(err); ok {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Error: ve.Error(), Fields: ve.Fields})
		}
		if xe, ok := apperr.AsExternal(err); ok {
			log.Warn("external service failure",
				zap.String("provider", xe.Provider), zap.String("code", xe.Code), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(errorBody{Error: xe.Provider + " failed", Code: xe.Code})
		}

		metrics.HandlerErrors.Inc()
		tags := map[string]string{"route": c.Path(), "method": c.Method()}
		if op, ok := ctxutil.Op(c.UserContext()); ok {
			tags["op"] = op
		}
		observability.CaptureWithTags(err, tags)
		log.Error("handler error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: http.StatusText(http.StatusInternalServerError)})
	}
}
