// Package formatting provides human-readable formatting and parsing for
// byte sizes and text excerpts used in logs and error messages.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const unit = 1024

var prefixes = "KMGTPE"

// FormatBytes converts a byte count to a human-readable string using base-1024 units.
// Negative precision values are clamped to zero.
func FormatBytes(n int64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < len(prefixes)-1; m /= unit {
		div *= unit
		exp++
	}

	value := strconv.FormatFloat(float64(n)/float64(div), 'f', precision, 64)
	return value + " " + string(prefixes[exp]) + "B"
}

// ParseBytes parses a byte size such as "10MB", "512 KiB", or "2048" into a
// byte count. Units are base-1024 and case-insensitive; a bare number is bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size string")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})

	number, suffix := s, ""
	if split >= 0 {
		number, suffix = s[:split], strings.TrimSpace(s[split:])
	}
	if number == "" {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	multiplier, err := multiplierFor(suffix)
	if err != nil {
		return 0, err
	}

	return int64(value * float64(multiplier)), nil
}

func multiplierFor(suffix string) (int64, error) {
	u := strings.ToUpper(suffix)
	if u == "" || u == "B" {
		return 1, nil
	}

	u = strings.TrimSuffix(strings.TrimSuffix(u, "B"), "I")
	if len(u) != 1 {
		return 0, fmt.Errorf("unknown byte size unit: %q", suffix)
	}

	idx := strings.Index(prefixes, u)
	if idx < 0 {
		return 0, fmt.Errorf("unknown byte size unit: %q", suffix)
	}

	m := int64(unit)
	for range idx {
		m *= unit
	}
	return m, nil
}
