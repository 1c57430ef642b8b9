// Package promotion moves students into next year's classes.
package promotion

import (
	"context"
	"fmt"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/logging"
	"github.com/Spok95/school-office/internal/models"
	"go.uber.org/zap"
)

type Store interface {
	ActiveRolls(ctx context.Context, sectionIDs []int64) ([]models.RollHolder, error)
	ApplyPromotion(ctx context.Context, moves []models.PromotionMove) error
}

// Plan: список переводов; порядок строк определяет индексы в ошибках.
type Plan []models.PromotionMove

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: logging.OrNop(log)}
}

type slot struct {
	section int64
	roll    int
}

// Validate: одна FieldError на каждую строку с занятым номером. Номер занят,
// если его уже взял другой ученик из плана или активный ученик, который
// в этой секции остаётся.
func (s *Service) Validate(ctx context.Context, plan Plan) error {
	if len(plan) == 0 {
		return apperr.Validation("empty promotion plan")
	}

	var fields []apperr.FieldError
	moving := make(map[int64]bool, len(plan))
	var sections []int64
	seenSection := map[int64]bool{}
	for i, m := range plan {
		if m.StudentRef <= 0 || m.ClassID <= 0 || m.SectionID <= 0 || m.Roll < 1 {
			fields = append(fields, apperr.FieldError{Field: rowField(i), Error: "student, class, section and roll are required"})
			continue
		}
		if moving[m.StudentRef] {
			fields = append(fields, apperr.FieldError{Field: rowField(i), Error: fmt.Sprintf("student %d appears twice", m.StudentRef)})
			continue
		}
		moving[m.StudentRef] = true
		if !seenSection[m.SectionID] {
			seenSection[m.SectionID] = true
			sections = append(sections, m.SectionID)
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid promotion plan", fields...)
	}

	holders, err := s.store.ActiveRolls(ctx, sections)
	if err != nil {
		return err
	}
	taken := map[slot]int64{}
	for _, h := range holders {
		if moving[h.StudentRef] {
			continue
		}
		taken[slot{h.SectionID, h.Roll}] = h.StudentRef
	}

	claimed := map[slot]int{}
	for i, m := range plan {
		k := slot{m.SectionID, m.Roll}
		if holder, ok := taken[k]; ok {
			fields = append(fields, apperr.FieldError{
				Field: rowField(i),
				Error: fmt.Sprintf("roll %d is held by student %d", m.Roll, holder),
			})
			continue
		}
		if first, ok := claimed[k]; ok {
			fields = append(fields, apperr.FieldError{
				Field: rowField(i),
				Error: fmt.Sprintf("roll %d duplicates row %d", m.Roll, first),
			})
			continue
		}
		claimed[k] = i
	}
	if len(fields) > 0 {
		return apperr.Validation("duplicate rolls in promotion plan", fields...)
	}
	return nil
}

// Apply: проверка и одна транзакция на весь план.
func (s *Service) Apply(ctx context.Context, plan Plan) error {
	if err := s.Validate(ctx, plan); err != nil {
		return err
	}
	if err := s.store.ApplyPromotion(ctx, plan); err != nil {
		return err
	}
	s.log.Info("promotion applied", zap.Int("students", len(plan)))
	return nil
}

func rowField(i int) string { return fmt.Sprintf("moves[%d]", i) }
