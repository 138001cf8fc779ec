package pkg

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// ValidateRecipientAddress checks that address is a well formed address of the
// given network.
func ValidateRecipientAddress(address string, params *chaincfg.Params) error {
	if address == "" {
		return fmt.Errorf("empty address")
	}

	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return err
	}

	if !addr.IsForNet(params) {
		return fmt.Errorf("address %s is not for network %s", address, params.Name)
	}

	return nil
}
