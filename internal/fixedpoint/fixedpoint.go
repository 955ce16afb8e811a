// Package fixedpoint handles 1e18 mantissa fractions and base-unit amounts.
package fixedpoint

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the precision of a mantissa: 1e18 represents 1.0.
const Decimals = 18

var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// One returns a fresh mantissa equal to 1.0.
func One() *big.Int {
	return new(big.Int).Set(scale)
}

// ParseMantissa converts a decimal fraction such as "0.5" into a 1e18 mantissa.
func ParseMantissa(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return big.NewInt(0), nil
	}
	d, err := decimal.NewFromString(input)
	if err != nil {
		return nil, fmt.Errorf("invalid fraction %q: %w", input, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid fraction %q: negative", input)
	}
	shifted := d.Shift(Decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("invalid fraction %q: more than %d decimals", input, Decimals)
	}
	return shifted.BigInt(), nil
}

// FormatMantissa renders a mantissa as a decimal fraction.
func FormatMantissa(mantissa *big.Int) string {
	if mantissa == nil {
		return "0"
	}
	return decimal.NewFromBigInt(mantissa, -Decimals).String()
}

// MulMantissa returns floor(amount * mantissa / 1e18).
func MulMantissa(amount, mantissa *big.Int) *big.Int {
	if amount == nil || mantissa == nil {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, mantissa)
	return out.Quo(out, scale)
}

// ParseAmount parses a non-negative base-unit integer.
func ParseAmount(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return parsed, nil
}

// FormatAmount renders a base-unit amount with the token's decimals.
func FormatAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

// String renders an amount as a base-10 string, treating nil as zero.
func String(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

// Min returns a copy of the smaller of a and b.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
