package store

import "strconv"

// parseFloatOrZero and formatFloat give MemKVStore its string encoding for
// the float counters IncrByFloat operates on. They are unexported, so the
// rediscache store does not use them.

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
