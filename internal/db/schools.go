package db

import (
	"context"

	"github.com/Spok95/school-office/internal/ctxutil"
	"github.com/Spok95/school-office/internal/models"
)

func (s *Store) GetSchool(ctx context.Context, id int64) (*models.School, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var sc models.School
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, name_local, address, code, phone, logo_url, principal_name, currency_symbol
		FROM schools WHERE id = $1`, id).
		Scan(&sc.ID, &sc.Name, &sc.NameLocal, &sc.Address, &sc.Code, &sc.Phone, &sc.LogoURL, &sc.PrincipalName, &sc.CurrencySymbol)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Store) ListSchools(ctx context.Context) ([]models.School, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, name_local, address, code, phone, logo_url, principal_name, currency_symbol
		FROM schools ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.School
	for rows.Next() {
		var sc models.School
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.NameLocal, &sc.Address, &sc.Code, &sc.Phone, &sc.LogoURL, &sc.PrincipalName, &sc.CurrencySymbol); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
