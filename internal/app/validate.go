package app

import (
	"reflect"
	"strings"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// В ошибках: имена из json-тегов.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind разбирает тело и проверяет теги validate.
func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body", apperr.FieldError{Field: "body", Error: err.Error()})
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("invalid request")
	}
	fields := make([]apperr.FieldError, 0, len(ves))
	for _, fe := range ves {
		name := fe.Namespace()
		if i := strings.IndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		fields = append(fields, apperr.FieldError{Field: name, Error: fe.Tag()})
	}
	return apperr.Validation("validation failed", fields...)
}
