// Package identifier turns free-text identifiers into comparable keys.
package identifier

import (
	"strings"
	"unicode"
)

const DefaultCategory = "OTHER"

// Normalize uppercases raw and drops whitespace, periods and hyphens.
// It never fails; empty input gives an empty key.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if unicode.IsSpace(r) || r == '.' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Category uppercases a category name, falling back to DefaultCategory.
func Category(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if c == "" {
		return DefaultCategory
	}
	return c
}

// MaxLen is the input cap the submission forms apply per category.
func MaxLen(category string) int {
	switch Category(category) {
	case "DNI":
		return 8
	case "PATENTE", "CEDULA":
		return 7
	default:
		return 15
	}
}

// Shape applies the form rules to raw input: normalize, keep only digits
// for DNI, then cut to MaxLen.
func Shape(category, raw string) string {
	v := Normalize(raw)
	if Category(category) == "DNI" {
		v = strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, v)
	}
	runes := []rune(v)
	if max := MaxLen(category); len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}
