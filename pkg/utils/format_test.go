package utils

import "testing"

func TestFormatCNY(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "¥0.00"},
		{1245.4, "¥1,245.40"},
		{1234567.89, "¥1,234,567.89"},
		{-999.5, "-¥999.50"},
		{-1245.4, "-¥1,245.40"},
	}
	for _, tc := range cases {
		if got := FormatCNY(tc.in); got != tc.want {
			t.Errorf("FormatCNY(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatSigned(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{15.4, "+15.40"},
		{0, "+0.00"},
		{-3.25, "-3.25"},
	}
	for _, tc := range cases {
		if got := FormatSigned(tc.in); got != tc.want {
			t.Errorf("FormatSigned(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(1.25); got != "+1.25%" {
		t.Errorf("FormatPercent = %q, want +1.25%%", got)
	}
	if got := FormatPercent(-0.35); got != "-0.35%" {
		t.Errorf("FormatPercent = %q, want -0.35%%", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Errorf("Truncate = %q, want hel", got)
	}
	// Truncation counts runes, not bytes.
	if got := Truncate("黄金价格预警", 2); got != "黄金" {
		t.Errorf("Truncate runes = %q, want 黄金", got)
	}
}
