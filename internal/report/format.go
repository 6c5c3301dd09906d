package report

import (
	"strconv"
	"strings"
)

// num renders a float the way the narrative shows numbers: shortest exact
// form, always with a decimal point (7 -> "7.0", 7.25 -> "7.25").
func num(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatNumber renders v the way reports show numbers.
func FormatNumber(v float64) string {
	return num(v)
}

// signed is num with an explicit sign.
func signed(v float64) string {
	s := num(v)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}

// oneLine collapses whitespace, newlines included, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
