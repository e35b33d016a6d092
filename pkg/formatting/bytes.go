// Package formatting parses and prints byte sizes used in configuration,
// such as request body and image size limits.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB"}

// multipliers accepts SI-looking, IEC and single-letter suffixes. All are
// base-1024.
var multipliers = map[string]int64{
	"":    1,
	"B":   1,
	"K":   1 << 10,
	"KB":  1 << 10,
	"KIB": 1 << 10,
	"M":   1 << 20,
	"MB":  1 << 20,
	"MIB": 1 << 20,
	"G":   1 << 30,
	"GB":  1 << 30,
	"GIB": 1 << 30,
	"T":   1 << 40,
	"TB":  1 << 40,
	"TIB": 1 << 40,
}

// FormatBytes prints n with the largest unit that keeps the value at or
// above one. Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}
	precision = max(precision, 0)

	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// ParseBytes parses sizes such as "512", "10KB", "5 mb" or "1.5GiB" into a
// byte count. Suffixes are case-insensitive.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	end := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if end == -1 {
		end = len(s)
	}
	if end == 0 {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	suffix := strings.ToUpper(strings.TrimSpace(s[end:]))
	mult, ok := multipliers[suffix]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit %q", suffix)
	}

	return int64(value * float64(mult)), nil
}
