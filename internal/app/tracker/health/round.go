package health

import (
	"math"

	"github.com/cockroachdb/apd/v3"
)

// roundingContext rounds half to even on the decimal form of a value, so
// 7.25 becomes 7.2 and 2.567 becomes 2.57.
var roundingContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfEven
	return c
}()

// round returns v rounded to the given number of decimal places, or nil when
// v cannot be represented (NaN, ±Inf).
func round(v float64, places int32) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	d, err := new(apd.Decimal).SetFloat64(v)
	if err != nil {
		return nil
	}

	var q apd.Decimal
	if _, err := roundingContext.Quantize(&q, d, -places); err != nil {
		return nil
	}

	f, err := q.Float64()
	if err != nil {
		return nil
	}
	return &f
}
