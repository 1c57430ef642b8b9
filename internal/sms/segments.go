package sms

import "unicode/utf8"

// gsm7: базовый алфавит GSM 03.38; всё остальное (в т.ч. бенгальский) шлётся как UCS-2.
const gsm7 = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"

// gsm7ext занимают два септета.
const gsm7ext = "^{}\\[~]|€\f"

var gsmSet = func() map[rune]int {
	m := map[rune]int{}
	for _, r := range gsm7 {
		m[r] = 1
	}
	for _, r := range gsm7ext {
		m[r] = 2
	}
	return m
}()

// Segments: сколько SMS уйдёт на одного получателя.
func Segments(message string) int64 {
	if message == "" {
		return 0
	}
	septets := 0
	unicode := false
	for _, r := range message {
		w, ok := gsmSet[r]
		if !ok {
			unicode = true
			break
		}
		septets += w
	}
	if unicode {
		n := utf16Len(message)
		if n <= 70 {
			return 1
		}
		return int64((n + 66) / 67)
	}
	if septets <= 160 {
		return 1
	}
	return int64((septets + 152) / 153)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if utf8.RuneLen(r) == 4 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
