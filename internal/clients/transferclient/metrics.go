package transferclient

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/viddhana/pool-ledger/internal/observability/metrics"
)

type transferClientWithMetrics struct {
	transfer TransferInterface
}

func NewTransferClientWithMetrics(transfer TransferInterface) *transferClientWithMetrics {
	return &transferClientWithMetrics{transfer: transfer}
}

func (t *transferClientWithMetrics) SubmitTransfer(
	ctx context.Context, recipient string, amount sdkmath.Int, reference string,
) (string, error) {
	return runTransferClientMethodWithMetrics("SubmitTransfer", func() (string, error) {
		return t.transfer.SubmitTransfer(ctx, recipient, amount, reference)
	})
}

func runTransferClientMethodWithMetrics[T any](method string, f func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := f()
	duration := time.Since(startTime)

	metrics.RecordTransferClientLatency(duration, method, err != nil)
	return v, err
}
