package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// SizeToKg converts a variant size label (a weight in grams, e.g. "200g")
// into kilograms for stock arithmetic. The numeric prefix is what counts;
// a trailing unit suffix is ignored.
func SizeToKg(size string) (float64, error) {
	trimmed := strings.TrimSpace(size)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size label")
	}

	end := 0
	for end < len(trimmed) {
		c := trimmed[end]
		if (c >= '0' && c <= '9') || c == '.' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, fmt.Errorf("size %q has no numeric weight", size)
	}

	grams, err := strconv.ParseFloat(trimmed[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", size, err)
	}
	if grams <= 0 {
		return 0, fmt.Errorf("size %q must be a positive weight", size)
	}
	return grams / 1000, nil
}
