// Package utils provides shared formatting helpers.
package utils

import (
	"fmt"
	"strings"
)

// FormatCNY formats an amount as Chinese yuan with thousands separators.
func FormatCNY(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")

	result := "¥" + groupThousands(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	s = s[:n-3]
	for len(s) > 3 {
		result = s[len(s)-3:] + "," + result
		s = s[:len(s)-3]
	}
	return s + "," + result
}

// FormatPrice formats a gold price per gram with two decimals.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f元/克", price)
}

// FormatSigned formats a value with an explicit sign for non-negative numbers.
func FormatSigned(value float64) string {
	if value >= 0 {
		return fmt.Sprintf("+%.2f", value)
	}
	return fmt.Sprintf("%.2f", value)
}

// FormatPercent formats a percentage with an explicit sign.
func FormatPercent(value float64) string {
	return FormatSigned(value) + "%"
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
