// Package grading is the single place where marks turn into letter grades,
// grade points and GPA. The marks endpoint, every document and the tabular
// export call into it.
package grading

import "math"

type Result struct {
	Letter string
	Point  float64
}

var Fail = Result{Letter: "F", Point: 0}

// шкала: нижняя граница процента включительно
var scale = []struct {
	pct float64
	res Result
}{
	{80, Result{"A+", 5.0}},
	{70, Result{"A", 4.0}},
	{60, Result{"A-", 3.5}},
	{50, Result{"B", 3.0}},
	{40, Result{"C", 2.0}},
	{33, Result{"D", 1.0}},
}

// Grade: оценка по сумме баллов. Ниже проходного всегда F, независимо от процента.
func Grade(total, full, pass float64) Result {
	if full <= 0 || total < pass {
		return Fail
	}
	// сравнение без деления: total/full*100 >= pct
	for _, s := range scale {
		if total*100 >= s.pct*full {
			return s.res
		}
	}
	return Fail
}

// Total суммирует введённые компоненты. ok=false: ни один компонент не введён.
func Total(components ...*float64) (float64, bool) {
	var sum float64
	ok := false
	for _, c := range components {
		if c == nil {
			continue
		}
		sum += *c
		ok = true
	}
	return sum, ok
}

// SubjectResult: итог по предмету; Recorded=false, если оценок нет.
type SubjectResult struct {
	Recorded bool
	Total    float64
	Result   Result
}

// Evaluate: итог по предмету из компонентов.
func Evaluate(full, pass float64, written, mcq, practical *float64) SubjectResult {
	total, ok := Total(written, mcq, practical)
	if !ok {
		return SubjectResult{}
	}
	return SubjectResult{Recorded: true, Total: total, Result: Grade(total, full, pass)}
}

type Summary struct {
	GPA     float64
	Letter  string
	Failed  int
	Counted int
}

// GPA: среднее баллов по предметам с оценками, округлённое до сотых.
// Предметы без оценок не входят ни в среднее, ни в число несданных.
func GPA(subjects []SubjectResult) Summary {
	var s Summary
	var sum float64
	for _, r := range subjects {
		if !r.Recorded {
			continue
		}
		s.Counted++
		sum += r.Result.Point
		if r.Result.Point == 0 {
			s.Failed++
		}
	}
	if s.Counted == 0 {
		s.Letter = "N/A"
		return s
	}
	s.GPA = Round2(sum / float64(s.Counted))
	s.Letter = LetterForGPA(s.GPA, s.Failed)
	return s
}

// LetterForGPA: буква для итогового GPA; любой несданный предмет даёт F.
func LetterForGPA(gpa float64, failed int) string {
	if failed > 0 {
		return Fail.Letter
	}
	for _, s := range scale {
		if gpa >= s.res.Point {
			return s.res.Letter
		}
	}
	return Fail.Letter
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
