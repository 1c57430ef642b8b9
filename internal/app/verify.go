package app

import (
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/verify"
	"github.com/gofiber/fiber/v2"
)

// Ответ Invalid один и тот же при любом промахе, поэтому статус всегда 200.
func (s *Server) verifyDocument(c *fiber.Ctx) error {
	res := s.deps.Verifier.Resolve(c.UserContext(), verify.Request{
		Kind: c.Query("type"),
		ID:   c.Query("id"),
	})
	return c.JSON(res)
}

func (s *Server) verifyExamDoc(kind models.DocumentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res := s.deps.Verifier.Resolve(c.UserContext(), examRequest(c, kind))
		return c.JSON(res)
	}
}

func (s *Server) verifyDownload(c *fiber.Ctx) error {
	return s.reexport(c, verify.Request{Kind: c.Query("type"), ID: c.Query("id")})
}

func (s *Server) verifyExamDownload(kind models.DocumentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.reexport(c, examRequest(c, kind))
	}
}

func examRequest(c *fiber.Ctx, kind models.DocumentKind) verify.Request {
	return verify.Request{Kind: string(kind), Student: c.Query("student"), Exam: c.Query("exam")}
}

// reexport: заново проверяет ссылку и выгружает документ из свежих данных.
func (s *Server) reexport(c *fiber.Ctx, req verify.Request) error {
	res := s.deps.Verifier.Resolve(c.UserContext(), req)
	if res.State != verify.StateVerified {
		return c.Status(fiber.StatusNotFound).JSON(res)
	}
	out, err := res.Reexport(c.UserContext())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, out.ContentType)
	c.Attachment(out.Name)
	return c.Send(out.Data)
}
