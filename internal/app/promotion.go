package app

import (
	"github.com/Spok95/school-office/internal/models"
	"github.com/Spok95/school-office/internal/promotion"
	"github.com/gofiber/fiber/v2"
)

type promotionRequest struct {
	Moves []models.PromotionMove `json:"moves" validate:"required,min=1,dive"`
}

func (s *Server) validatePromotion(c *fiber.Ctx) error {
	var req promotionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.deps.Promotion.Validate(c.UserContext(), promotion.Plan(req.Moves)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) applyPromotion(c *fiber.Ctx) error {
	var req promotionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := s.deps.Promotion.Apply(c.UserContext(), promotion.Plan(req.Moves)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "promoted": len(req.Moves)})
}
