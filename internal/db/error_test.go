package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	notFound := fmt.Errorf("load: %w", NewNotFoundError("p1", "pool %s not found", "p1"))
	assert.True(t, IsNotFoundError(notFound))
	assert.False(t, IsConflictError(notFound))
	assert.Equal(t, "load: pool p1 not found", notFound.Error())

	conflict := NewConflictError("p1", "pool p1 changed since version %d", 3)
	assert.True(t, IsConflictError(conflict))
	assert.False(t, IsDuplicateKeyError(conflict))

	dup := NewDuplicateKeyError("ref-1", "payout already exists")
	assert.True(t, IsDuplicateKeyError(dup))
	assert.False(t, IsNotFoundError(dup))
	assert.False(t, IsNotFoundError(nil))
}
