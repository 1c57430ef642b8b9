package access

import (
	"context"
	"strings"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
	"github.com/gofiber/fiber/v2"
)

const localsKey = "principal"

// AssignmentSource: назначения учителя; *db.Store.
type AssignmentSource interface {
	AssignmentsForTeacher(ctx context.Context, teacherID int64) ([]models.TeacherAssignment, error)
}

// RequireAuth: Bearer-токен (или ?token= для websocket) → Principal в Locals.
func RequireAuth(secret string, assignments AssignmentSource) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := ""
		if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			raw = strings.TrimSpace(h[7:])
		} else {
			raw = c.Query("token")
		}
		p, err := ParseToken(raw, secret)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}
		if p.Role == models.Teacher && assignments != nil {
			as, err := assignments.AssignmentsForTeacher(c.UserContext(), p.UserID)
			if err != nil {
				return err
			}
			p.Assignments = as
		}
		c.Locals(localsKey, p)

		ctx := ctxutil.WithUserID(c.UserContext(), p.UserID)
		ctx = ctxutil.WithSchoolID(ctx, p.SchoolID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequireRole пускает только перечисленные роли; вызывать после RequireAuth.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := FromCtx(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Forbidden")
	}
}

func FromCtx(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(localsKey).(Principal)
	return p, ok
}

// FromLocals: то же для websocket.Conn, где Locals доступны без fiber.Ctx.
func FromLocals(get func(key string) any) (Principal, bool) {
	p, ok := get(localsKey).(Principal)
	return p, ok
}
