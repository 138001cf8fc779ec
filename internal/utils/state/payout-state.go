package state

import "github.com/viddhana/pool-ledger/internal/types"

// payoutStateChangeMap maps the current status of a payout to the statuses it
// can transition to. failed -> pending is only taken by the retry sweep.
var payoutStateChangeMap = map[types.PayoutStatus][]types.PayoutStatus{
	types.PayoutStatusPending: {
		types.PayoutStatusProcessing,
		types.PayoutStatusCancelled,
	},
	types.PayoutStatusProcessing: {
		types.PayoutStatusCompleted,
		types.PayoutStatusFailed,
	},
	types.PayoutStatusFailed: {
		types.PayoutStatusPending,
	},
	types.PayoutStatusCompleted: {},
	types.PayoutStatusCancelled: {},
}

func IsQualifiedStateForPayoutStatusChange(
	currentState types.PayoutStatus, newState types.PayoutStatus,
) bool {
	qualifiedStates, ok := payoutStateChangeMap[currentState]
	if !ok {
		return false
	}
	for _, state := range qualifiedStates {
		if state == newState {
			return true
		}
	}
	return false
}

// QualifiedStatesFor returns every status from which newState can be reached.
func QualifiedStatesFor(newState types.PayoutStatus) []types.PayoutStatus {
	var out []types.PayoutStatus
	for _, from := range []types.PayoutStatus{
		types.PayoutStatusPending,
		types.PayoutStatusProcessing,
		types.PayoutStatusCompleted,
		types.PayoutStatusFailed,
		types.PayoutStatusCancelled,
	} {
		if IsQualifiedStateForPayoutStatusChange(from, newState) {
			out = append(out, from)
		}
	}
	return out
}
