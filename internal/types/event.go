package types

type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventDeposited               EventType = "deposited"
	EventWithdrawn               EventType = "withdrawn"
	EventPoolCreated             EventType = "poolCreated"
	EventPoolStatusChanged       EventType = "poolStatusChanged"
	EventPoolRepriced            EventType = "poolRepriced"
	EventEpochStarted            EventType = "epochStarted"
	EventRewardsClaimed          EventType = "rewardsClaimed"
	EventPayoutQueued            EventType = "payoutQueued"
	EventPayoutProcessed         EventType = "payoutProcessed"
	EventPayoutCancelled         EventType = "payoutCancelled"
	EventPayoutBatchProcessed    EventType = "payoutBatchProcessed"
	EventCircuitBreakerTriggered EventType = "circuitBreakerTriggered"
	EventCircuitBreakerReset     EventType = "circuitBreakerReset"
	EventRiskParametersUpdated   EventType = "riskParametersUpdated"
)
