package amount

import (
	"math"
	"testing"
)

func TestParseRaw(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{name: "empty", input: "", expected: 0},
		{name: "letters only", input: "abc", expected: 0},
		{name: "separators only", input: ".,", expected: 0},
		{name: "plain integer", input: "1500", expected: 1500},
		{name: "comma decimal", input: "1500,75", expected: 1500.75},
		{name: "dot decimal", input: "1500.75", expected: 1500.75},
		{name: "grouped with comma decimal and junk", input: "1.234,5x", expected: 1234.5},
		{name: "us style", input: "1,234.56", expected: 1234.56},
		{name: "grouping only", input: "1.234.567", expected: 1234567},
		{name: "truncates extra fraction digits", input: "12,3456", expected: 12.34},
		{name: "currency symbol and spaces", input: "$ 2.500,00", expected: 2500},
		{name: "trailing separator", input: "1234,", expected: 1234},
		{name: "leading separator", input: ",5", expected: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRaw(tt.input)
			if got != tt.expected {
				t.Errorf("ParseRaw(%q): expected %v, got %v", tt.input, tt.expected, got)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0,00"},
		{0.005, "0,01"},
		{12, "12,00"},
		{999, "999,00"},
		{1234.5, "1.234,50"},
		{999999.99, "999.999,99"},
		{1234567.891, "1.234.567,89"},
		{math.NaN(), "0,00"},
		{math.Inf(1), "0,00"},
	}

	for _, tt := range tests {
		if got := Format(tt.input); got != tt.expected {
			t.Errorf("Format(%v): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := FormatCurrency(math.NaN()); got != "$0,00" {
		t.Fatalf("expected $0,00 for NaN, got %q", got)
	}
	if got := FormatCurrency(95000); got != "$95.000,00" {
		t.Fatalf("expected $95.000,00, got %q", got)
	}
}

func TestParseRawFormatRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 0.005, 1234.5, 999999.99, 42.1, 1000000} {
		formatted := Format(x)
		got := ParseRaw(formatted)
		if got != Round(x) {
			t.Errorf("round trip of %v via %q: expected %v, got %v", x, formatted, Round(x), got)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input           string
		expectedValue   float64
		expectedDisplay string
	}{
		{"", 0, ""},
		{"0", 0, ""},
		{"1234", 1234, "1.234"},
		{"1234,", 1234, "1.234,"},
		{"1234,5", 1234.5, "1.234,5"},
		{"1.234,567", 1234.56, "1.234,56"},
		{"0,5", 0.5, "0,5"},
		{"00012", 12, "12"},
	}

	for _, tt := range tests {
		value, display := Normalize(tt.input)
		if value != tt.expectedValue || display != tt.expectedDisplay {
			t.Errorf("Normalize(%q): expected (%v, %q), got (%v, %q)",
				tt.input, tt.expectedValue, tt.expectedDisplay, value, display)
		}
	}
}
