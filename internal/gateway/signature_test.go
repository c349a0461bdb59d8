package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Gateway sandbox credentials published for integration testing.
const testSecret = "8gBm/:&EnhH.1/q"

func TestSigner_Sign(t *testing.T) {
	signer := NewSigner(testSecret)

	// Known vector from the gateway's sandbox documentation.
	message := "total_amount=100,transaction_uuid=11-201-13,product_code=EPAYTEST"
	assert.Equal(t, "5DZywcrTKD0gia/rsSMcrRHmJl+4Tbol6S+lWgdJ94E=", signer.Sign(message))
}

func TestSigner_Verify(t *testing.T) {
	signer := NewSigner(testSecret)
	message := "total_amount=100,transaction_uuid=11-201-13,product_code=EPAYTEST"
	signature := signer.Sign(message)

	assert.True(t, signer.Verify(message, signature))
	assert.False(t, signer.Verify(message, "tampered"))
	assert.False(t, signer.Verify(message+"x", signature))

	other := NewSigner("different-secret")
	assert.False(t, other.Verify(message, signature))
}

func TestCanonicalMessage(t *testing.T) {
	amount := decimal.RequireFromString("1500.00")
	message := CanonicalMessage(amount, "ab12cd34ef56ab78cd90", "EPAYTEST")
	assert.Equal(t, "total_amount=1500,transaction_uuid=ab12cd34ef56ab78cd90,product_code=EPAYTEST", message)
}
