package types

import (
	"fmt"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
)

// AmountDecimals is the number of fractional digits carried by every value and
// share quantity. It matches the precision of sdkmath.LegacyDec so that
// conversions between the two never round.
const AmountDecimals = 18

// AccRewardPrecision scales accRewardPerShare so that per-share increments
// stay integral for realistic pool sizes.
const AccRewardPrecision = 18

var (
	amountScale = sdkmath.NewIntWithDecimal(1, AmountDecimals)
	accScale    = sdkmath.NewIntWithDecimal(1, AccRewardPrecision)
)

// AmountScale returns 10^AmountDecimals.
func AmountScale() sdkmath.Int {
	return amountScale
}

// AccScale returns 10^AccRewardPrecision.
func AccScale() sdkmath.Int {
	return accScale
}

// ParseAmount parses a human readable decimal string ("1.5") into base units.
func ParseAmount(s string) (sdkmath.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.Int{}, fmt.Errorf("empty amount")
	}
	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if dec.IsNegative() {
		return sdkmath.Int{}, fmt.Errorf("negative amount %q", s)
	}
	return dec.MulInt(amountScale).TruncateInt(), nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) sdkmath.Int {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FormatAmount renders base units as a decimal string.
func FormatAmount(a sdkmath.Int) string {
	if a.IsNil() {
		return "0"
	}
	return sdkmath.LegacyNewDecFromIntWithPrec(a, AmountDecimals).String()
}

// ParseRate parses a non-negative decimal such as an exchange rate or fee rate.
func ParseRate(s string) (sdkmath.LegacyDec, error) {
	dec, err := sdkmath.LegacyNewDecFromStr(strings.TrimSpace(s))
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	if dec.IsNegative() {
		return sdkmath.LegacyDec{}, fmt.Errorf("negative rate %q", s)
	}
	return dec, nil
}

// RatePerSecond converts "amount per period" into base units per second,
// rounding down.
func RatePerSecond(amount sdkmath.Int, period time.Duration) (sdkmath.Int, error) {
	seconds := int64(period / time.Second)
	if seconds <= 0 {
		return sdkmath.Int{}, fmt.Errorf("period must be at least one second, got %s", period)
	}
	return amount.QuoRaw(seconds), nil
}

// OrZero replaces a nil Int (zero value struct) with an explicit zero.
func OrZero(i sdkmath.Int) sdkmath.Int {
	if i.IsNil() {
		return sdkmath.ZeroInt()
	}
	return i
}

// rateScale is the fixed denominator of a LegacyDec's raw integer.
var rateScale = sdkmath.NewIntWithDecimal(1, sdkmath.LegacyPrecision)

// SharesForValue converts value into shares at rate, rounding down so a
// deposit never mints more shares than it pays for.
func SharesForValue(value sdkmath.Int, rate sdkmath.LegacyDec) sdkmath.Int {
	if !rate.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return value.Mul(rateScale).Quo(sdkmath.NewIntFromBigInt(rate.BigInt()))
}

// ValueOfShares converts shares into value at rate, rounding down.
func ValueOfShares(shares sdkmath.Int, rate sdkmath.LegacyDec) sdkmath.Int {
	return shares.Mul(sdkmath.NewIntFromBigInt(rate.BigInt())).Quo(rateScale)
}

// CeilQuo divides rounding up. Both operands must be non-negative.
func CeilQuo(a, b sdkmath.Int) sdkmath.Int {
	q := a.Quo(b)
	if !a.Mod(b).IsZero() {
		q = q.AddRaw(1)
	}
	return q
}
