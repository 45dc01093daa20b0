package market

import (
	"strconv"
	"strings"
	"time"
)

// ParseTimeframe parses "1m", "3m", "1h", "1d" into a duration.
// Returns (0, false) on invalid input.
func ParseTimeframe(tf string) (time.Duration, bool) {
	tf = strings.ToLower(strings.TrimSpace(tf))
	if len(tf) < 2 {
		return 0, false
	}
	unit := tf[len(tf)-1]
	numStr := strings.TrimSpace(tf[:len(tf)-1])
	n, err := strconv.Atoi(numStr)
	if err != nil || n <= 0 {
		return 0, false
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, true
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	default:
		return 0, false
	}
}
