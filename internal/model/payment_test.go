package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTransactionRef(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := NewTransactionRef()
		assert.Len(t, ref, 20)
		assert.NotContains(t, ref, "-")
		assert.False(t, seen[ref], "duplicate reference generated: %s", ref)
		seen[ref] = true
	}
}

func TestPaymentStatus_Terminal(t *testing.T) {
	terminal := []PaymentStatus{
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusExpired,
		PaymentStatusCancelled,
		PaymentStatusRefunded,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	assert.False(t, PaymentStatusPending.Terminal())
	assert.False(t, PaymentStatusInitiated.Terminal())
}
