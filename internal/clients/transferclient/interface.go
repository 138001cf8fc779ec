package transferclient

import (
	"context"

	sdkmath "cosmossdk.io/math"
)

// TransferInterface is the outbound transfer gateway. reference identifies
// the logical payout and is used by the gateway to deduplicate submissions.
type TransferInterface interface {
	SubmitTransfer(ctx context.Context, recipient string, amount sdkmath.Int, reference string) (string, error)
}
