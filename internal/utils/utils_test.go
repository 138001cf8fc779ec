package utils

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBTCParams(t *testing.T) {
	params, err := GetBTCParams("signet")
	require.NoError(t, err)
	assert.Equal(t, chaincfg.SigNetParams.Name, params.Name)

	_, err = GetBTCParams("litecoin")
	require.ErrorContains(t, err, "mainnet")
}

func TestBTCNetworksSorted(t *testing.T) {
	assert.Equal(t, []string{"mainnet", "regtest", "signet", "simnet", "testnet"}, BTCNetworks())
}

func TestCallerName(t *testing.T) {
	assert.Equal(t, "TestCallerName", CallerName(0))
	assert.Equal(t, "TestCallerName.func1", func() string { return CallerName(0) }())
}

func ptr[T any](v T) *T { return &v }

func TestDeref(t *testing.T) {
	assert.Equal(t, 0, Deref[int](nil))
	assert.Equal(t, "x", Deref(ptr("x")))
}
