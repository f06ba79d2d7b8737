// Package amount turns free-form monetary input into numbers and renders numbers
// the way the procurement portal displays them ("1.234,50").
package amount

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	groupSep     = "."
	decimalSep   = ","
	currencySign = "$"
	maxFraction  = 2
)

// ParseRaw extracts a monetary value from user text. Everything except digits and
// the '.'/',' separators is discarded. Unparseable input yields 0.
func ParseRaw(text string) float64 {
	value, _ := canonical(text)
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// Normalize is the live-input path of the bid amount field: it returns the parsed
// value together with the text that should be shown back to the user. Fractions are
// kept as typed (up to two digits) so that "1234," renders as "1.234," while typing.
func Normalize(text string) (float64, string) {
	value, hasFraction := canonical(text)
	if value == "" || value == "0" {
		return 0, ""
	}

	intPart, fracPart, _ := strings.Cut(value, ".")
	display := group(strings.TrimLeft(intPart, "0"))
	if display == "" {
		display = "0"
	}
	if hasFraction {
		display += decimalSep + fracPart
	}
	return ParseRaw(text), display
}

// Format renders v with exactly two fractional digits and '.' thousands grouping.
// NaN and infinities render as zero.
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0" + decimalSep + "00"
	}

	fixed := decimal.NewFromFloat(v).Round(maxFraction).StringFixed(maxFraction)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	out := group(intPart) + decimalSep + fracPart
	if negative && strings.Trim(fixed, "0.") != "" {
		out = "-" + out
	}
	return out
}

// FormatCurrency is Format with the currency symbol prefixed.
func FormatCurrency(v float64) string {
	return currencySign + Format(v)
}

// Round rounds half away from zero to two decimals, matching Format.
func Round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	r, _ := decimal.NewFromFloat(v).Round(maxFraction).Float64()
	return r
}

// canonical reduces text to "digits[.digits]" with at most two fractional digits.
// hasFraction reports whether a decimal separator survived, even with no digits after it.
func canonical(text string) (value string, hasFraction bool) {
	var b strings.Builder
	digits := 0
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			digits++
			b.WriteRune(r)
		case r == '.' || r == ',':
			b.WriteRune(r)
		}
	}
	if digits == 0 {
		return "", false
	}

	cleaned := b.String()
	last := strings.LastIndexAny(cleaned, ".,")
	if last < 0 {
		return cleaned, false
	}

	head, tail := cleaned[:last], cleaned[last+1:]
	if !isDecimalSeparator(cleaned, last) {
		return stripSeparators(cleaned), false
	}

	intPart := stripSeparators(head)
	if intPart == "" {
		intPart = "0"
	}
	fracPart := stripSeparators(tail)
	if len(fracPart) > maxFraction {
		fracPart = fracPart[:maxFraction]
	}
	if fracPart == "" {
		return intPart, true
	}
	return intPart + "." + fracPart, true
}

// isDecimalSeparator decides whether the separator at index last is the decimal
// point. A lone separator always is. With several, the last one is grouping only
// when every separator is the same character and the last group has three digits,
// which is how "1.234.567" differs from "1.234,5" and "1,234.56".
func isDecimalSeparator(cleaned string, last int) bool {
	sep := cleaned[last]
	others := strings.Count(cleaned[:last], ".") + strings.Count(cleaned[:last], ",")
	if others == 0 {
		return true
	}
	if strings.ContainsRune(cleaned[:last], rune(otherSeparator(sep))) {
		return true
	}
	return len(stripSeparators(cleaned[last+1:])) != 3
}

func otherSeparator(sep byte) byte {
	if sep == '.' {
		return ','
	}
	return '.'
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// group inserts the thousands separator into a run of digits.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(groupSep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
