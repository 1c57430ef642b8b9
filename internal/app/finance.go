package app

import (
	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/payment"
	"github.com/gofiber/fiber/v2"
)

type checkoutRequest struct {
	Customer payment.Customer `json:"customer" validate:"required"`
}

type smsOrderRequest struct {
	Package  string           `json:"package" validate:"required"`
	Customer payment.Customer `json:"customer" validate:"required"`
}

type smsSendRequest struct {
	To      []string `json:"to" validate:"required,min=1,dive,required"`
	Message string   `json:"message" validate:"required,max=1000"`
}

// POST /api/invoices/:id/checkout
func (s *Server) checkoutInvoice(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return apperr.NotFound("invoice")
	}
	var req checkoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	inv, err := s.deps.Store.GetInvoice(c.UserContext(), int64(id))
	if err != nil {
		return err
	}
	if inv == nil || !p.SameSchool(inv.SchoolID) {
		return apperr.NotFound("invoice")
	}
	co, err := s.deps.Payments.CheckoutInvoice(c.UserContext(), inv.ID, req.Customer)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": co})
}

// POST /api/sms/orders: покупка пакета SMS.
func (s *Server) checkoutSMS(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req smsOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	co, err := s.deps.Payments.CheckoutSMS(c.UserContext(), p.SchoolID, req.Package, req.Customer)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": co})
}

// POST /payments/notify: из уведомления берём только order_id,
// статус заказа спрашиваем у шлюза.
func (s *Server) paymentNotify(c *fiber.Ctx) error {
	var body struct {
		OrderID string `json:"order_id" form:"order_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.OrderID == "" {
		body.OrderID = c.Query("order_id")
	}
	tx, err := s.deps.Payments.Reconcile(c.UserContext(), body.OrderID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "order_id": tx.OrderID, "status": tx.Status})
}

func (s *Server) smsBalance(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	bal, err := s.deps.Store.SMSBalance(c.UserContext(), p.SchoolID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "balance": bal})
}

func (s *Server) smsLogs(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	logs, err := s.deps.Store.SMSLogs(c.UserContext(), p.SchoolID, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": logs})
}

// POST /api/sms/send: каждая попытка пишется в журнал, даже неуспешная.
func (s *Server) sendSMS(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req smsSendRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	entry, err := s.deps.SMS.Send(c.UserContext(), p.SchoolID, req.To, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": entry})
}
