package services

import (
	"context"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
	"github.com/viddhana/pool-ledger/pkg"
)

// Thresholds are the payout limits that apply to a participant.
type Thresholds struct {
	MinPayout sdkmath.Int
	// Threshold is nil when the participant has not opted into automatic payouts.
	Threshold *sdkmath.Int
	Recipient string
}

// SetThreshold opts the participant into automatic payouts to recipient once
// their pending rewards reach threshold.
func (s *Service) SetThreshold(
	ctx context.Context, poolID, participant string, threshold sdkmath.Int, recipient string,
) (*model.PayoutThresholdDocument, error) {
	if participant == "" {
		return nil, types.NewValidationError(types.ReasonInvalidParticipant, "participant is required")
	}
	if threshold.IsNil() || !threshold.IsPositive() {
		return nil, types.NewValidationError(types.ReasonInvalidAmount, "threshold must be positive")
	}
	if threshold.LT(s.fees.MinPayout) {
		return nil, types.NewValidationError(types.ReasonBelowMinimumPayout,
			"threshold %s is below the minimum payout of %s", threshold, s.fees.MinPayout)
	}
	if err := pkg.ValidateRecipientAddress(recipient, s.btcParams); err != nil {
		return nil, types.NewValidationError(types.ReasonInvalidRecipient, "invalid recipient: %s", err)
	}

	var doc *model.PayoutThresholdDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.loadPool(ctx, poolID); err != nil {
			return err
		}

		var err error
		doc, err = s.db.GetPayoutThreshold(ctx, poolID, participant)
		if err != nil {
			if !db.IsNotFoundError(err) {
				return err
			}
			doc = &model.PayoutThresholdDocument{
				ID:          model.ParticipantKey(poolID, participant),
				PoolID:      poolID,
				Participant: participant,
			}
		}
		doc.Threshold = threshold
		doc.Recipient = recipient
		doc.UpdatedAt = s.now()
		return s.db.SavePayoutThreshold(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Debug().
		Str("pool_id", poolID).
		Str("participant", participant).
		Stringer("threshold", threshold).
		Msg("payout threshold set")
	return doc, nil
}

func (s *Service) GetThresholds(ctx context.Context, poolID, participant string) (*Thresholds, error) {
	out := &Thresholds{MinPayout: s.fees.MinPayout}

	doc, err := s.db.GetPayoutThreshold(ctx, poolID, participant)
	if err != nil {
		if db.IsNotFoundError(err) {
			return out, nil
		}
		return nil, translateError(err)
	}
	out.Threshold = &doc.Threshold
	out.Recipient = doc.Recipient
	return out, nil
}
