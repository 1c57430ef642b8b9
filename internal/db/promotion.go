package db

import (
	"context"
	"database/sql"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
	"github.com/lib/pq"
)

// ActiveRolls: занятые номера активных учеников в указанных секциях.
func (s *Store) ActiveRolls(ctx context.Context, sectionIDs []int64) ([]models.RollHolder, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, section_id, roll FROM students
		WHERE status = 'active' AND section_id = ANY($1)`, pq.Array(sectionIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.RollHolder
	for rows.Next() {
		var h models.RollHolder
		if err := rows.Scan(&h.StudentRef, &h.SectionID, &h.Roll); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ApplyPromotion: все переводы одной транзакцией; если ученика нет, откатывается всё.
func (s *Store) ApplyPromotion(ctx context.Context, moves []models.PromotionMove) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE students SET class_id = $1, section_id = $2, roll = $3
			WHERE id = $4 AND status = 'active'`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, m := range moves {
			res, err := stmt.ExecContext(ctx, m.ClassID, m.SectionID, m.Roll, m.StudentRef)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n != 1 {
				return apperr.NotFound("student")
			}
		}
		return nil
	})
}
