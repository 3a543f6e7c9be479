package draft

import (
	"math"
	"strconv"
	"strings"
)

// DefaultWeight is the weight a newly selected subcategory starts with.
const DefaultWeight = "1.0"

// ParseWeight parses a user-entered weight in kilograms. It reports false
// unless the input is a finite number greater than zero.
func ParseWeight(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// WeightOrDefault parses s and falls back to one kilogram when it does
// not parse to a positive number.
//
// TODO: confirm with product whether unparseable input should be rejected
// instead; the one-kilogram fallback is kept for compatibility.
func WeightOrDefault(s string) float64 {
	if v, ok := ParseWeight(s); ok {
		return v
	}
	return 1.0
}
