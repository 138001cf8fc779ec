package types

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Run("whole units", func(t *testing.T) {
		a, err := ParseAmount("600")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewIntWithDecimal(600, AmountDecimals), a)
	})
	t.Run("fractional", func(t *testing.T) {
		a, err := ParseAmount("0.0011")
		require.NoError(t, err)
		assert.Equal(t, sdkmath.NewIntWithDecimal(11, AmountDecimals-4), a)
		assert.Equal(t, "0.001100000000000000", FormatAmount(a))
	})
	t.Run("negative", func(t *testing.T) {
		_, err := ParseAmount("-1")
		require.Error(t, err)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := ParseAmount("abc")
		require.Error(t, err)
		_, err = ParseAmount(" ")
		require.Error(t, err)
	})
}

func TestRatePerSecond(t *testing.T) {
	perDay, err := RatePerSecond(MustParseAmount("100"), 24*time.Hour)
	require.NoError(t, err)
	// 100e18 / 86400 rounded down
	assert.Equal(t, "1157407407407407", perDay.String())

	_, err = RatePerSecond(MustParseAmount("1"), time.Millisecond)
	require.Error(t, err)
}

func TestFormatAmountNil(t *testing.T) {
	assert.Equal(t, "0", FormatAmount(sdkmath.Int{}))
	assert.True(t, OrZero(sdkmath.Int{}).IsZero())
}

func TestShareConversionRoundsDown(t *testing.T) {
	rate := sdkmath.LegacyMustNewDecFromStr("1.5")

	// 10 / 1.5 = 6.66.. shares
	shares := SharesForValue(sdkmath.NewInt(10), rate)
	assert.Equal(t, "6", shares.String())
	// 6 * 1.5 = 9, never more than was deposited
	assert.Equal(t, "9", ValueOfShares(shares, rate).String())

	assert.Equal(t, "600", SharesForValue(sdkmath.NewInt(600), sdkmath.LegacyOneDec()).String())
	assert.True(t, SharesForValue(sdkmath.NewInt(1), sdkmath.LegacyZeroDec()).IsZero())
}

func TestCeilQuo(t *testing.T) {
	assert.Equal(t, "4", CeilQuo(sdkmath.NewInt(10), sdkmath.NewInt(3)).String())
	assert.Equal(t, "5", CeilQuo(sdkmath.NewInt(10), sdkmath.NewInt(2)).String())
	assert.Equal(t, "0", CeilQuo(sdkmath.ZeroInt(), sdkmath.NewInt(2)).String())
}
