package meter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseMonthKey parses a "MM.YYYY" string into a MonthKey.
//
// Returns ErrInvalidMonthKey if the string is not two dot-separated
// numeric fields, or the month is outside 1-12.
func ParseMonthKey(s string) (MonthKey, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 1 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}

	return MonthKey{Month: time.Month(month), Year: year}, nil
}

// ParseMonthKeys parses a slice of "MM.YYYY" strings.
//
// The first invalid key aborts parsing and is returned as the error.
func ParseMonthKeys(strs []string) ([]MonthKey, error) {
	keys := make([]MonthKey, 0, len(strs))
	for _, s := range strs {
		key, err := ParseMonthKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// MonthsOfYear expands a year into its month keys, in calendar order.
//
// Months later than the current month of the current year (per now) are
// omitted; future years yield no keys.
func MonthsOfYear(year int, now time.Time) []MonthKey {
	keys := make([]MonthKey, 0, 12)
	for m := time.January; m <= time.December; m++ {
		if year > now.Year() {
			break
		}
		if year == now.Year() && m > now.Month() {
			break
		}
		keys = append(keys, MonthKey{Month: m, Year: year})
	}
	return keys
}

// MonthsBack returns the n month keys ending with (and including) the
// month containing now, oldest first.
func MonthsBack(n int, now time.Time) []MonthKey {
	if n <= 0 {
		return nil
	}

	keys := make([]MonthKey, n)
	key := MonthKeyFor(now)
	for i := n - 1; i >= 0; i-- {
		keys[i] = key
		key = key.Prev()
	}
	return keys
}
