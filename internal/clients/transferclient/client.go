package transferclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
)

const submitPath = "/v1/transfers"

// responses larger than this are not a valid gateway answer
const maxResponseSize = 64 << 10

type Client struct {
	httpClient *http.Client
	cfg        *config.TransferConfig
	baseURL    string
}

func NewClient(cfg *config.TransferConfig) *Client {
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.Endpoint, "/"),
	}
}

type submitRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type submitResponse struct {
	TransferRef string `json:"transfer_ref"`
	Error       string `json:"error"`
}

// SubmitTransfer sends a transfer request and returns the settlement tx hash.
// Only UnavailableError is retried here.
func (c *Client) SubmitTransfer(
	ctx context.Context, recipient string, amount sdkmath.Int, reference string,
) (string, error) {
	call := func() (string, error) {
		return c.submit(ctx, recipient, amount, reference)
	}

	ref, err := retry.DoWithData(call,
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetryTimes),
		retry.Delay(c.cfg.RetryInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsUnavailable),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", c.cfg.MaxRetryTimes).
				Str("reference", reference).
				Err(err).
				Msg("transfer gateway unavailable, retrying")
		}),
	)
	if err != nil {
		return "", err
	}
	return ref, nil
}

func (c *Client) submit(ctx context.Context, recipient string, amount sdkmath.Int, reference string) (string, error) {
	body, err := json.Marshal(submitRequest{
		Recipient: recipient,
		Amount:    amount.String(),
		Reference: reference,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transfer request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", reference)

	timer := metrics.StartClientRequestDurationTimer(c.baseURL, http.MethodPost, submitPath)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		timer(0)
		if isDialError(err) {
			return "", &UnavailableError{Err: err}
		}
		return "", &OutcomeUnknownError{Err: err}
	}
	defer resp.Body.Close()
	timer(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &OutcomeUnknownError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var decoded submitResponse
	// error bodies are not always JSON
	_ = json.Unmarshal(raw, &decoded)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if _, err := chainhash.NewHashFromStr(decoded.TransferRef); err != nil || decoded.TransferRef == "" {
			return "", &OutcomeUnknownError{
				Err: fmt.Errorf("gateway accepted transfer with invalid reference %q", decoded.TransferRef),
			}
		}
		return decoded.TransferRef, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return "", &UnavailableError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, message(decoded, raw))}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &RejectedError{StatusCode: resp.StatusCode, Message: message(decoded, raw)}
	default:
		return "", &OutcomeUnknownError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, message(decoded, raw))}
	}
}

func message(decoded submitResponse, raw []byte) string {
	if decoded.Error != "" {
		return decoded.Error
	}
	return strings.TrimSpace(string(raw))
}

// isDialError reports whether the request failed before a connection was made.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
