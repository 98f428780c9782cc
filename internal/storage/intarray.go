package storage

import (
	"fmt"
	"strconv"
	"strings"
)

const intArraySeparator = ","

// ParseIntArray decodes an int array column: comma separated integers, "" when empty
func ParseIntArray[T ~int](value string) ([]T, error) {
	if value == "" {
		return []T{}, nil
	}

	parts := strings.Split(value, intArraySeparator)
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid int array %q: %w", value, err)
		}
		out = append(out, T(v))
	}
	return out, nil
}

// FormatIntArray encodes values for an int array column
func FormatIntArray[T ~int](values []T) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteString(intArraySeparator)
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	return b.String()
}
