package access

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Spok95/school-office/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func ptr[T any](v T) *T { return &v }

func TestParseToken(t *testing.T) {
	tok, err := IssueToken(Principal{UserID: 7, Role: models.Teacher, SchoolID: 1}, secret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	p, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if p.UserID != 7 || p.Role != models.Teacher || p.SchoolID != 1 {
		t.Fatalf("principal: %+v", p)
	}

	t.Run("чужой ключ", func(t *testing.T) {
		if _, err := ParseToken(tok, "other"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("ожидали ErrUnauthorized, получили %v", err)
		}
	})
	t.Run("истёк", func(t *testing.T) {
		old, _ := IssueToken(Principal{UserID: 7, Role: models.Admin, SchoolID: 1}, secret, -time.Minute)
		if _, err := ParseToken(old, secret); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("просроченный токен принят: %v", err)
		}
	})
	t.Run("без подписи", func(t *testing.T) {
		c := Claims{Role: "admin", SchoolID: 1, RegisteredClaims: jwt.RegisteredClaims{
			Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, _ := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if _, err := ParseToken(raw, secret); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("alg=none принят: %v", err)
		}
	})
	t.Run("неизвестная роль", func(t *testing.T) {
		bad, _ := IssueToken(Principal{UserID: 7, Role: "parent", SchoolID: 1}, secret, time.Hour)
		if _, err := ParseToken(bad, secret); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("роль parent принята: %v", err)
		}
	})
}

func teacher() Principal {
	return Principal{UserID: 7, Role: models.Teacher, SchoolID: 1, Assignments: []models.TeacherAssignment{
		{ClassID: 6, SectionID: 61, SubjectID: ptr(int64(100))},
		{ClassID: 7, SectionID: 71},
	}}
}

func TestCanEditMarks(t *testing.T) {
	cases := []struct {
		name    string
		p       Principal
		class   int64
		section int64
		subject int64
		want    bool
	}{
		{"админ", Principal{Role: models.Admin}, 6, 62, 200, true},
		{"свой предмет", teacher(), 6, 61, 100, true},
		{"чужой предмет", teacher(), 6, 61, 101, false},
		{"чужая секция", teacher(), 6, 62, 100, false},
		{"классный руководитель", teacher(), 7, 71, 555, true},
		{"бухгалтер", Principal{Role: models.Accountant}, 6, 61, 100, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.p.CanEditMarks(c.class, c.section, c.subject); got != c.want {
				t.Fatalf("CanEditMarks = %v, ожидали %v", got, c.want)
			}
		})
	}
}

func TestFilters(t *testing.T) {
	sts := []models.Student{
		{ID: 1, SchoolID: 1, ClassID: 6, SectionID: 61},
		{ID: 2, SchoolID: 1, ClassID: 6, SectionID: 62},
		{ID: 3, SchoolID: 2, ClassID: 6, SectionID: 61},
	}
	if got := teacher().FilterStudents(sts); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("учитель видит лишнее: %+v", got)
	}
	acc := Principal{Role: models.Accountant, SchoolID: 1}
	if got := acc.FilterStudents(sts); len(got) != 2 {
		t.Fatalf("бухгалтер видит учеников своей школы: %+v", got)
	}

	subjects := []models.Subject{{ID: 100, ClassID: 6}, {ID: 101, ClassID: 6}, {ID: 300, ClassID: 7}}
	got := teacher().FilterSubjects(subjects)
	if len(got) != 2 || got[0].ID != 100 || got[1].ID != 300 {
		t.Fatalf("предметы учителя: %+v", got)
	}
}

type fakeAssignments struct{}

func (fakeAssignments) AssignmentsForTeacher(context.Context, int64) ([]models.TeacherAssignment, error) {
	return teacher().Assignments, nil
}

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/finance", RequireAuth(secret, fakeAssignments{}), RequireRole(models.Admin, models.Accountant), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/me", RequireAuth(secret, fakeAssignments{}), func(c *fiber.Ctx) error {
		p, _ := FromCtx(c)
		if len(p.Assignments) != 2 {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	acc, _ := IssueToken(Principal{UserID: 3, Role: models.Accountant, SchoolID: 1}, secret, time.Hour)
	tch, _ := IssueToken(Principal{UserID: 7, Role: models.Teacher, SchoolID: 1}, secret, time.Hour)

	cases := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"без токена", "/finance", "", fiber.StatusUnauthorized},
		{"бухгалтер", "/finance", acc, fiber.StatusNoContent},
		{"учитель в финансы", "/finance", tch, fiber.StatusForbidden},
		{"назначения учителя", "/me", tch, fiber.StatusNoContent},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", c.path, nil)
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != c.want {
				t.Fatalf("статус %d, ожидали %d", resp.StatusCode, c.want)
			}
		})
	}
}
