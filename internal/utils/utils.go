package utils

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// btcNetworks maps the netparams config values to the chain parameters payout
// addresses are decoded against.
var btcNetworks = map[string]*chaincfg.Params{
	"mainnet": &chaincfg.MainNetParams,
	"testnet": &chaincfg.TestNet3Params,
	"signet":  &chaincfg.SigNetParams,
	"simnet":  &chaincfg.SimNetParams,
	"regtest": &chaincfg.RegressionNetParams,
}

// BTCNetworks lists the accepted netparams values in sorted order.
func BTCNetworks() []string {
	names := make([]string, 0, len(btcNetworks))
	for name := range btcNetworks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func GetBTCParams(net string) (*chaincfg.Params, error) {
	params, ok := btcNetworks[net]
	if !ok {
		return nil, fmt.Errorf("unknown btc network %q, expected one of %s", net, strings.Join(BTCNetworks(), ", "))
	}
	return params, nil
}

// CallerName returns the short name of the function skip frames above the
// caller, e.g. "(*Service).Deposit.func1".
func CallerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}

	name := runtime.FuncForPC(pc).Name()
	name = name[strings.LastIndex(name, "/")+1:]
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}

// Deref returns the value behind p, or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
