package app

import (
	"context"
	"time"

	"github.com/Spok95/school-office/internal/access"
	"github.com/Spok95/school-office/internal/metrics"
	"github.com/Spok95/school-office/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func (s *Server) routes() {
	a := s.app
	a.Use(recover.New())
	a.Use(requestLog(s.log))

	a.Get("/healthz", s.healthz)
	a.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// публичная проверка документов по ссылке из QR
	v := a.Group("/verify", verifyLimiter(s.deps.VerifyLimit), withOp("verify"))
	v.Get("", s.verifyDocument)
	v.Post("/download", s.verifyDownload)
	v.Get("/report", s.verifyExamDoc(models.KindReportCard))
	v.Post("/report/download", s.verifyExamDownload(models.KindReportCard))
	v.Get("/admit", s.verifyExamDoc(models.KindAdmitCard))
	v.Post("/admit/download", s.verifyExamDownload(models.KindAdmitCard))

	if s.deps.Payments != nil {
		a.Post("/payments/notify", withOp("payment.notify"), s.paymentNotify)
	}

	api := a.Group("/api", access.RequireAuth(s.deps.JWTSecret, s.deps.Store))
	api.Post("/exports/:kind", withOp("export"), s.exportDocuments)

	api.Get("/classes/:class/subjects", withOp("subjects.list"), s.listSubjects)
	api.Get("/exams/:exam/subjects/:subject/marks", withOp("marks.list"), s.listMarks)
	api.Put("/exams/:exam/subjects/:subject/marks", withOp("marks.upsert"), s.upsertMarks)

	api.Get("/checkin/ws", withOp("checkin"), s.checkInUpgrade, s.checkInSocket())

	finance := access.RequireRole(models.Admin, models.Accountant)
	if s.deps.Payments != nil {
		api.Post("/invoices/:id/checkout", finance, withOp("payment.invoice"), s.checkoutInvoice)
		api.Post("/sms/orders", finance, withOp("payment.sms"), s.checkoutSMS)
	}
	api.Get("/sms/balance", finance, s.smsBalance)
	api.Get("/sms/logs", finance, s.smsLogs)
	if s.deps.SMS != nil {
		api.Post("/sms/send", access.RequireRole(models.Admin, models.Staff), withOp("sms.send"), s.sendSMS)
	}

	if s.deps.Promotion != nil {
		admin := access.RequireRole(models.Admin)
		api.Post("/promotions/validate", admin, withOp("promotion.validate"), s.validatePromotion)
		api.Post("/promotions", admin, withOp("promotion.apply"), s.applyPromotion)
	}
}

func (s *Server) healthz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 800*time.Millisecond)
	defer cancel()
	t0 := time.Now()
	if err := s.deps.Store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("db not ok: " + err.Error())
	}
	metrics.ObserveDBPing(time.Since(t0))
	return c.SendString("ok")
}

func principal(c *fiber.Ctx) (access.Principal, error) {
	p, ok := access.FromCtx(c)
	if !ok {
		return p, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	return p, nil
}

func forbidden() error { return fiber.NewError(fiber.StatusForbidden, "Forbidden") }
