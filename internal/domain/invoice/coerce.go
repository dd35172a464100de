package invoice

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

const (
	MinDiscount = 0.0
	MaxDiscount = 100.0
)

// CoerceQuantity turns raw user input into a non-negative whole quantity.
// Unparseable, non-finite and negative input becomes 0; fractions are truncated.
func CoerceQuantity(v any) int {
	f, ok := toFloat(v)
	if !ok || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Trunc(f))
}

// CoerceDiscount turns raw user input into a percentage in [0,100].
// Unparseable and NaN input becomes 0.
func CoerceDiscount(v any) float64 {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return ClampDiscount(f)
}

// ClampDiscount limits d to [0,100]
func ClampDiscount(d float64) float64 {
	switch {
	case math.IsNaN(d):
		return 0
	case d < MinDiscount:
		return MinDiscount
	case d > MaxDiscount:
		return MaxDiscount
	}
	return d
}

// toFloat accepts numbers and numeric strings only; bools, nil and
// composite values are not quantities
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		v = strings.TrimSpace(x)
	case float64, float32, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
	default:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
