package utils

import (
	"fmt"
	"strconv"
	"strings"
)

var byteSizeUnits = map[string]int64{
	"":   1,
	"b":  1,
	"k":  1024,
	"kb": 1024,
	"m":  1024 * 1024,
	"mb": 1024 * 1024,
	"g":  1024 * 1024 * 1024,
	"gb": 1024 * 1024 * 1024,
}

// FormatFileSize converts a byte length into a human-readable lower-case unit string.
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return "0b"
	}
	units := []string{"b", "kb", "mb", "gb", "tb", "pb"}
	value := float64(bytes)
	unitIndex := 0
	for value >= 1024 && unitIndex < len(units)-1 {
		value /= 1024
		unitIndex++
	}
	if unitIndex == 0 {
		return fmt.Sprintf("%db", bytes)
	}
	if value < 10 {
		formatted := fmt.Sprintf("%.1f", value)
		formatted = strings.TrimSuffix(formatted, ".0")
		return formatted + units[unitIndex]
	}
	return fmt.Sprintf("%.0f%s", value, units[unitIndex])
}

// ParseByteSize parses sizes such as "5MB", "512kb", "1.5m" or "2048" into bytes.
// Units are binary multiples.
func ParseByteSize(input string) (int64, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return 0, fmt.Errorf("empty size")
	}
	splitIndex := len(normalized)
	for splitIndex > 0 {
		character := normalized[splitIndex-1]
		if (character >= '0' && character <= '9') || character == '.' {
			break
		}
		splitIndex--
	}
	numberPart := strings.TrimSpace(normalized[:splitIndex])
	unitPart := strings.TrimSpace(normalized[splitIndex:])
	multiplier, knownUnit := byteSizeUnits[unitPart]
	if !knownUnit {
		return 0, fmt.Errorf("unknown size unit %q in %q", unitPart, input)
	}
	value, parseError := strconv.ParseFloat(numberPart, 64)
	if parseError != nil {
		return 0, fmt.Errorf("invalid size %q: %w", input, parseError)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative size %q", input)
	}
	return int64(value * float64(multiplier)), nil
}
