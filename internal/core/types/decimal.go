// Package types provides common type aliases and utilities.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Percent is a percentage value (10 means 10%).
type Percent = decimal.Decimal

// PercentScale is the number of fractional digits kept after dividing by 100.
const PercentScale int32 = 4

var hundred = decimal.NewFromInt(100)

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// ApplyPercent returns base × pct / 100 rounded to PercentScale digits.
func ApplyPercent(base Money, pct Percent) Money {
	return base.Mul(pct).DivRound(hundred, PercentScale)
}

// NonNegative clamps negative values to zero.
func NonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// Quantity is a fixed-point quantity with 4 decimal places (scale = 1e4).
//
// Stored as BIGINT (scaled integer), serialized as a JSON number with up to 4 decimals.
type Quantity int64

const QuantityScale int64 = 10_000

// MaxQuantity and MinQuantity bound every representable quantity.
const (
	MaxQuantity Quantity = math.MaxInt64
	MinQuantity Quantity = -math.MaxInt64
)

// NewQuantityFromFloat64 rounds v to 4 decimals, saturating at
// MinQuantity/MaxQuantity. NaN becomes zero.
func NewQuantityFromFloat64(v float64) Quantity {
	q, err := quantityFromFloat64(v)
	if err == nil {
		return q
	}
	switch {
	case math.IsNaN(v):
		return 0
	case v > 0:
		return MaxQuantity
	default:
		return MinQuantity
	}
}

func quantityFromFloat64(v float64) (Quantity, error) {
	scaled := math.Round(v * float64(QuantityScale))
	// float64(math.MaxInt64) rounds up to 2^63, so the bound is exclusive.
	if math.IsNaN(scaled) || scaled >= float64(math.MaxInt64) || scaled <= -float64(math.MaxInt64) {
		return 0, fmt.Errorf("quantity %v out of range", v)
	}
	return Quantity(scaled), nil
}

// NewQuantityFromInt creates a whole-unit quantity.
func NewQuantityFromInt(v int64) Quantity { return Quantity(v * QuantityScale) }

func NewQuantityFromInt64Scaled(v int64) Quantity { return Quantity(v) }

func (q Quantity) Int64Scaled() int64 { return int64(q) }

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

// Decimal converts the quantity for use in money arithmetic.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -4)
}

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Neg() Quantity { return -q }

// Mul scales the quantity by a signed integer factor (a stock direction).
func (q Quantity) Mul(factor int) Quantity { return q * Quantity(factor) }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	neg := q < 0
	v := q
	if neg {
		v = -v
	}
	intPart := int64(v) / QuantityScale
	frac := int64(v) % QuantityScale
	if neg {
		return fmt.Sprintf("-%d.%04d", intPart, frac)
	}
	return fmt.Sprintf("%d.%04d", intPart, frac)
}

// MarshalJSON encodes Quantity as JSON number (not string), preserving 4 digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string and parses to fixed-point (4 digits).
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	parsed, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuantity parses a decimal string into a fixed-point Quantity.
// Digits beyond the fourth fractional place are truncated.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity: %w", err)
		}
		return quantityFromFloat64(f)
	}

	sign := int64(1)
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	intPartStr, fracStr, _ := strings.Cut(s, ".")
	if intPartStr == "" && fracStr == "" {
		return 0, fmt.Errorf("parse quantity %q: no digits", s)
	}
	if !allDigits(intPartStr) || !allDigits(fracStr) {
		return 0, fmt.Errorf("parse quantity %q: invalid syntax", s)
	}

	var intPart int64
	if intPartStr != "" {
		var err error
		intPart, err = strconv.ParseInt(intPartStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse quantity integer part: %w", err)
		}
	}

	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	for len(fracStr) < 4 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity fractional part: %w", err)
	}

	if intPart > (math.MaxInt64-frac)/QuantityScale {
		return 0, fmt.Errorf("parse quantity %q: out of range", s)
	}
	return Quantity(sign * (intPart*QuantityScale + frac)), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
