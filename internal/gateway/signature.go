package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"
)

// Signer produces and checks the HMAC-SHA256 signatures the bank-redirect
// gateway requires over its canonical request string. Pure; no side effects.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer using the gateway's shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the base64-encoded HMAC-SHA256 digest of message.
func (s *Signer) Sign(message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(message, signature string) bool {
	expected := s.Sign(message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// CanonicalMessage builds the ordered, comma-joined key=value string the
// gateway signs: total amount, transaction reference, product code.
func CanonicalMessage(totalAmount decimal.Decimal, transactionRef, productCode string) string {
	return fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount.String(), transactionRef, productCode)
}
