package grading

import "testing"

func f(v float64) *float64 { return &v }

func TestGrade_Boundaries(t *testing.T) {
	tests := []struct {
		name              string
		total, full, pass float64
		letter            string
		point             float64
	}{
		{"ниже проходного", 32, 100, 33, "F", 0},
		{"ровно проходной при 33%", 33, 100, 33, "D", 1},
		{"39.9%", 39.9, 100, 33, "D", 1},
		{"40%", 40, 100, 33, "C", 2},
		{"50%", 50, 100, 33, "B", 3},
		{"60%", 60, 100, 33, "A-", 3.5},
		{"70%", 70, 100, 33, "A", 4},
		{"79%", 79, 100, 33, "A", 4},
		{"80%", 80, 100, 33, "A+", 5},
		{"100%", 100, 100, 33, "A+", 5},
		{"процент высокий, но ниже проходного", 85, 100, 90, "F", 0},
		{"проходной 0, ниже 33%", 10, 100, 0, "F", 0},
		{"малый full: 40 из 50 = 80%", 40, 50, 17, "A+", 5},
		{"ровно pass-1", 16, 50, 17, "F", 0},
		{"ровно pass при 34%", 17, 50, 17, "D", 1},
		{"нулевой full", 0, 0, 0, "F", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Grade(tt.total, tt.full, tt.pass)
			if got.Letter != tt.letter || got.Point != tt.point {
				t.Fatalf("Grade(%v,%v,%v) = %+v, ожидали %s/%v", tt.total, tt.full, tt.pass, got, tt.letter, tt.point)
			}
			// детерминированность
			if again := Grade(tt.total, tt.full, tt.pass); again != got {
				t.Fatalf("повторный вызов дал другой результат: %+v", again)
			}
		})
	}
}

func TestTotal(t *testing.T) {
	if _, ok := Total(nil, nil, nil); ok {
		t.Fatal("без компонентов оценки нет")
	}
	sum, ok := Total(f(40), nil, f(12.5))
	if !ok || sum != 52.5 {
		t.Fatalf("ожидали 52.5, получили %v (%v)", sum, ok)
	}
	sum, ok = Total(f(0))
	if !ok || sum != 0 {
		t.Fatal("ноль: это введённая оценка")
	}
}

func TestGPA(t *testing.T) {
	subjects := []SubjectResult{
		{Recorded: true, Result: Result{"A+", 5.0}},
		{Recorded: true, Result: Result{"A", 4.0}},
		{Recorded: true, Result: Result{"A-", 3.5}},
	}
	s := GPA(subjects)
	if s.GPA != 4.17 {
		t.Fatalf("ожидали 4.17, получили %v", s.GPA)
	}
	if s.Counted != 3 || s.Failed != 0 {
		t.Fatalf("неверные счётчики: %+v", s)
	}
	if s.Letter != "A" {
		t.Fatalf("ожидали A для 4.17, получили %s", s.Letter)
	}

	t.Run("предмет без оценки не учитывается", func(t *testing.T) {
		withMissing := append(append([]SubjectResult{}, subjects...), SubjectResult{})
		got := GPA(withMissing)
		if got.GPA != 4.17 || got.Counted != 3 || got.Failed != 0 {
			t.Fatalf("пустой предмет повлиял на итог: %+v", got)
		}
	})

	t.Run("несданный предмет", func(t *testing.T) {
		got := GPA([]SubjectResult{
			{Recorded: true, Result: Result{"A+", 5}},
			{Recorded: true, Result: Fail},
		})
		if got.GPA != 2.5 || got.Failed != 1 || got.Letter != "F" {
			t.Fatalf("ожидали 2.5/F с одним несданным, получили %+v", got)
		}
	})

	t.Run("нет оценок", func(t *testing.T) {
		got := GPA(nil)
		if got.Counted != 0 || got.GPA != 0 || got.Letter != "N/A" {
			t.Fatalf("неожиданно: %+v", got)
		}
	})
}

func TestEvaluate(t *testing.T) {
	r := Evaluate(100, 33, f(50), f(20), f(10))
	if !r.Recorded || r.Total != 80 || r.Result.Letter != "A+" {
		t.Fatalf("неожиданно: %+v", r)
	}
	if Evaluate(100, 33, nil, nil, nil).Recorded {
		t.Fatal("без компонентов предмет не записан")
	}
}
