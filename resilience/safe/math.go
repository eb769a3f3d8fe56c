package safe

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned when attempting to divide by zero.
var ErrDivisionByZero = errors.New("division by zero")

// Divide performs decimal division with zero check.
// Returns ErrDivisionByZero if denominator is zero.
func Divide(numerator, denominator decimal.Decimal) (decimal.Decimal, error) {
	if denominator.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}

	return numerator.Div(denominator), nil
}

// DivideOrZero performs decimal division, returning zero if denominator is zero.
// Use when zero is an acceptable fallback (e.g., a failure ratio over an empty
// request window).
func DivideOrZero(numerator, denominator decimal.Decimal) decimal.Decimal {
	if denominator.IsZero() {
		return decimal.Zero
	}

	return numerator.Div(denominator)
}

// RatioOrZero returns numerator/denominator as a decimal, or zero when the
// denominator is zero.
func RatioOrZero(numerator, denominator int64) decimal.Decimal {
	return DivideOrZero(decimal.NewFromInt(numerator), decimal.NewFromInt(denominator))
}

// MulDuration multiplies a duration by an int64 factor, clamping to
// math.MaxInt64 on overflow. Negative inputs return 0.
func MulDuration(d time.Duration, factor int64) time.Duration {
	if d <= 0 || factor <= 0 {
		return 0
	}

	if int64(d) > math.MaxInt64/factor {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(int64(d) * factor)
}

// ScaleDuration multiplies a duration by a float64 ratio, clamping to
// math.MaxInt64 on overflow. Negative inputs return 0.
func ScaleDuration(d time.Duration, ratio float64) time.Duration {
	if d <= 0 || ratio <= 0 {
		return 0
	}

	scaled := float64(d) * ratio
	if scaled >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(scaled)
}
