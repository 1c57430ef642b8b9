package render

import (
	"strconv"
	"strings"
	"time"
)

// NA: подстановка для отсутствующих полей.
const NA = "N/A"

// Money: символ валюты и два знака после точки, тысячи через запятую ("৳ 1,250.00").
func Money(v float64, symbol string) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	if symbol == "" {
		return out
	}
	return symbol + " " + out
}

// Date: ДД/ММ/ГГГГ.
func Date(t time.Time) string { return t.Format("02/01/2006") }

func DatePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return NA
	}
	return Date(*t)
}

func Time(t *time.Time) string {
	if t == nil || t.IsZero() {
		return NA
	}
	return t.Format("03:04 PM")
}

func Str(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return NA
	}
	return *s
}

func Text(s string) string {
	if strings.TrimSpace(s) == "" {
		return NA
	}
	return s
}

func Num(v *float64) string {
	if v == nil {
		return NA
	}
	return Marks(*v)
}

// Marks без хвостовых нулей (40, 12.5).
func Marks(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func Int(v *int) string {
	if v == nil {
		return NA
	}
	return strconv.Itoa(*v)
}

func Point(p float64) string { return strconv.FormatFloat(p, 'f', 2, 64) }
