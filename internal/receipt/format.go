package receipt

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"struk-print/internal/escpos"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount with Indonesian digit grouping, e.g. "Rp 52.000"
func FormatRupiah(n int64) string {
	return "Rp " + idPrinter.Sprintf("%d", n)
}

// ParseRupiah reads an amount typed the way it is printed. The "Rp" prefix,
// spaces and dot grouping are ignored ("Rp 52.000" and "52000" are equal).
// Anything unreadable is 0.
func ParseRupiah(s string) int64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp")
	s = strings.NewReplacer(" ", "", ".", "").Replace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Row lays out label and value on one line of width escpos.LineWidth.
// Content that does not fit keeps a single separating space and overflows.
func Row(label, value string) string {
	gap := escpos.LineWidth - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap <= 0 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value
}

var (
	doubleDivider = strings.Repeat("=", escpos.LineWidth)
	divider       = strings.Repeat("-", escpos.LineWidth)
)
