package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	err := NewStateConflictError(ReasonTVLCapExceeded, "tvl cap %s exceeded", "1000")
	wrapped := fmt.Errorf("deposit: %w", err)

	assert.Equal(t, ReasonTVLCapExceeded, ReasonOf(wrapped))
	assert.Equal(t, StateConflict, CodeOf(wrapped))
	assert.True(t, IsReason(wrapped, ReasonTVLCapExceeded))
	assert.False(t, IsReason(nil, ReasonTVLCapExceeded))

	typed, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, typed.StatusCode)
	assert.Equal(t, "tvl cap 1000 exceeded", typed.Error())
}

func TestUntypedErrorIsInternal(t *testing.T) {
	err := errors.New("storage unavailable")
	assert.Equal(t, InternalServiceError, CodeOf(err))
	assert.Equal(t, ReasonNone, ReasonOf(err))
}

func TestForbiddenCarriesRoleReason(t *testing.T) {
	err := NewForbiddenError("actor %s lacks role %s", "bob", RoleAdmin)
	assert.Equal(t, Forbidden, CodeOf(err))
	assert.Equal(t, ReasonMissingRole, ReasonOf(err))
}

func TestPayoutStatus(t *testing.T) {
	for _, s := range []PayoutStatus{PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled} {
		assert.True(t, s.IsTerminal(), s)
	}
	assert.False(t, PayoutStatusPending.IsTerminal())
	assert.False(t, PayoutStatusProcessing.IsTerminal())

	s, err := PayoutStatusFromString("processing")
	require.NoError(t, err)
	assert.Equal(t, PayoutStatusProcessing, s)
	_, err = PayoutStatusFromString("done")
	require.Error(t, err)
}
