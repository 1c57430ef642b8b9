package promotion

import (
	"context"
	"testing"

	"github.com/Spok95/school-office/internal/apperr"
	"github.com/Spok95/school-office/internal/models"
)

type fakeStore struct {
	holders []models.RollHolder
	applied []models.PromotionMove
}

func (f *fakeStore) ActiveRolls(_ context.Context, sections []int64) ([]models.RollHolder, error) {
	want := map[int64]bool{}
	for _, id := range sections {
		want[id] = true
	}
	var out []models.RollHolder
	for _, h := range f.holders {
		if want[h.SectionID] {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyPromotion(_ context.Context, moves []models.PromotionMove) error {
	f.applied = append(f.applied, moves...)
	return nil
}

func TestValidate(t *testing.T) {
	existing := []models.RollHolder{
		{StudentRef: 50, SectionID: 10, Roll: 1},
		{StudentRef: 1, SectionID: 10, Roll: 2}, // сам переводится, номер освобождается
	}
	cases := []struct {
		name   string
		plan   Plan
		fields []string
	}{
		{
			name: "ok",
			plan: Plan{
				{StudentRef: 1, ClassID: 2, SectionID: 10, Roll: 3},
				{StudentRef: 2, ClassID: 2, SectionID: 10, Roll: 2},
			},
		},
		{
			name: "duplicate in plan",
			plan: Plan{
				{StudentRef: 1, ClassID: 2, SectionID: 10, Roll: 5},
				{StudentRef: 2, ClassID: 2, SectionID: 10, Roll: 5},
				{StudentRef: 3, ClassID: 2, SectionID: 10, Roll: 5},
			},
			fields: []string{"moves[1]", "moves[2]"},
		},
		{
			name: "collides with active student",
			plan: Plan{
				{StudentRef: 2, ClassID: 2, SectionID: 10, Roll: 1},
				{StudentRef: 3, ClassID: 2, SectionID: 11, Roll: 1},
			},
			fields: []string{"moves[0]"},
		},
		{
			name:   "missing roll",
			plan:   Plan{{StudentRef: 2, ClassID: 2, SectionID: 10}},
			fields: []string{"moves[0]"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&fakeStore{holders: existing}, nil)
			err := svc.Validate(context.Background(), tc.plan)
			if len(tc.fields) == 0 {
				if err != nil {
					t.Fatalf("неожиданная ошибка: %v", err)
				}
				return
			}
			ve, ok := apperr.AsValidation(err)
			if !ok {
				t.Fatalf("ожидали ValidationError, получили %v", err)
			}
			if len(ve.Fields) != len(tc.fields) {
				t.Fatalf("ожидали %d полей, получили %+v", len(tc.fields), ve.Fields)
			}
			for i, f := range tc.fields {
				if ve.Fields[i].Field != f {
					t.Fatalf("поле %d: ожидали %s, получили %s", i, f, ve.Fields[i].Field)
				}
			}
		})
	}
}

func TestApplySkipsStoreOnInvalidPlan(t *testing.T) {
	st := &fakeStore{holders: []models.RollHolder{{StudentRef: 9, SectionID: 10, Roll: 1}}}
	svc := NewService(st, nil)
	if err := svc.Apply(context.Background(), Plan{{StudentRef: 1, ClassID: 2, SectionID: 10, Roll: 1}}); err == nil {
		t.Fatal("ожидали ошибку")
	}
	if len(st.applied) != 0 {
		t.Fatal("невалидный план не должен применяться")
	}
	if err := svc.Apply(context.Background(), Plan{{StudentRef: 1, ClassID: 2, SectionID: 10, Roll: 2}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(st.applied) != 1 {
		t.Fatalf("ожидали 1 перевод, получили %d", len(st.applied))
	}
}
