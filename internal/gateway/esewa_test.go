package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pawhaven/internal/config"
	apperrors "pawhaven/internal/errors"
)

func newTestEsewaClient(verifyURL string) *EsewaClient {
	return NewEsewaClient(config.EsewaConfig{
		SecretKey:    testSecret,
		MerchantCode: "EPAYTEST",
		ProductCode:  "EPAYTEST",
		PaymentURL:   "https://rc-epay.example.com/api/epay/main/v2/form",
		VerifyURL:    verifyURL,
	})
}

func encodeCallback(t *testing.T, payload map[string]interface{}) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestEsewaClient_FormPayload(t *testing.T) {
	client := newTestEsewaClient("")
	amount := decimal.RequireFromString("1500.00")

	form := client.FormPayload(amount, "ab12cd34ef56ab78cd90", "https://shop.example.com/ok", "https://shop.example.com/fail")

	assert.Equal(t, "https://rc-epay.example.com/api/epay/main/v2/form", form.Action)
	assert.Equal(t, "1500", form.Fields["total_amount"])
	assert.Equal(t, "ab12cd34ef56ab78cd90", form.Fields["transaction_uuid"])
	assert.Equal(t, "EPAYTEST", form.Fields["product_code"])
	assert.Equal(t, "total_amount,transaction_uuid,product_code", form.Fields["signed_field_names"])

	signer := NewSigner(testSecret)
	message := CanonicalMessage(amount, "ab12cd34ef56ab78cd90", "EPAYTEST")
	assert.Equal(t, signer.Sign(message), form.Fields["signature"])
}

func TestEsewaClient_DecodeCallback(t *testing.T) {
	client := newTestEsewaClient("")

	t.Run("complete status in any case", func(t *testing.T) {
		data := encodeCallback(t, map[string]interface{}{
			"status":           "complete",
			"transaction_code": "000AWEO",
			"transaction_uuid": "ab12cd34ef56ab78cd90",
		})

		outcome, err := client.DecodeCallback(data)
		require.NoError(t, err)
		assert.Equal(t, CallbackSuccess, outcome.Status)
		assert.Equal(t, "000AWEO", outcome.ExternalTxnID)
	})

	t.Run("non-complete status is failure", func(t *testing.T) {
		data := encodeCallback(t, map[string]interface{}{
			"status":           "PENDING",
			"transaction_code": "000AWEO",
		})

		outcome, err := client.DecodeCallback(data)
		require.NoError(t, err)
		assert.Equal(t, CallbackFailure, outcome.Status)
		assert.Equal(t, "PENDING", outcome.RawStatus)
	})

	t.Run("url-safe base64 accepted", func(t *testing.T) {
		raw, err := json.Marshal(map[string]interface{}{"status": "COMPLETE"})
		require.NoError(t, err)
		data := base64.RawURLEncoding.EncodeToString(raw)

		outcome, err := client.DecodeCallback(data)
		require.NoError(t, err)
		assert.Equal(t, CallbackSuccess, outcome.Status)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := client.DecodeCallback("%%%not-base64%%%")
		var protoErr *apperrors.ProtocolError
		assert.ErrorAs(t, err, &protoErr)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		data := base64.StdEncoding.EncodeToString([]byte("not json at all"))
		_, err := client.DecodeCallback(data)
		var protoErr *apperrors.ProtocolError
		assert.ErrorAs(t, err, &protoErr)
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		signer := NewSigner(testSecret)
		message := "total_amount=1500,transaction_uuid=ab12cd34ef56ab78cd90,product_code=EPAYTEST"
		data := encodeCallback(t, map[string]interface{}{
			"status":             "COMPLETE",
			"transaction_code":   "000AWEO",
			"total_amount":       "1500",
			"transaction_uuid":   "ab12cd34ef56ab78cd90",
			"product_code":       "EPAYTEST",
			"signed_field_names": "total_amount,transaction_uuid,product_code",
			"signature":          signer.Sign(message),
		})

		outcome, err := client.DecodeCallback(data)
		require.NoError(t, err)
		assert.Equal(t, CallbackSuccess, outcome.Status)
	})

	t.Run("tampered signed field rejected", func(t *testing.T) {
		signer := NewSigner(testSecret)
		message := "total_amount=1500,transaction_uuid=ab12cd34ef56ab78cd90,product_code=EPAYTEST"
		data := encodeCallback(t, map[string]interface{}{
			"status":             "COMPLETE",
			"transaction_code":   "000AWEO",
			"total_amount":       "9999", // does not match the signed message
			"transaction_uuid":   "ab12cd34ef56ab78cd90",
			"product_code":       "EPAYTEST",
			"signed_field_names": "total_amount,transaction_uuid,product_code",
			"signature":          signer.Sign(message),
		})

		_, err := client.DecodeCallback(data)
		assert.ErrorIs(t, err, apperrors.ErrSignatureInvalid)
	})
}

func TestEsewaClient_VerifyLegacy(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		expectError error
		wantGateway bool
	}{
		{
			name: "success response",
			body: "<response><response_code>Success</response_code></response>",
		},
		{
			name:        "duplicate transaction",
			body:        "<response><response_code>Duplicate Payment</response_code></response>",
			expectError: apperrors.ErrDuplicateTransaction,
		},
		{
			name:        "failure response",
			body:        "<response><response_code>failure</response_code></response>",
			wantGateway: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "500", r.PostForm.Get("amt"))
				assert.Equal(t, "EPAYTEST", r.PostForm.Get("scd"))
				assert.Equal(t, "0001REF", r.PostForm.Get("rid"))
				assert.Equal(t, "ab12cd34ef56ab78cd90", r.PostForm.Get("pid"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestEsewaClient(server.URL)
			err := client.VerifyLegacy(context.Background(), "500", "0001REF", "ab12cd34ef56ab78cd90")

			switch {
			case tt.expectError != nil:
				assert.ErrorIs(t, err, tt.expectError)
			case tt.wantGateway:
				var gwErr *apperrors.GatewayError
				require.ErrorAs(t, err, &gwErr)
				assert.Contains(t, gwErr.RawResponse, "failure")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestEsewaClient_VerifyLegacy_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := newTestEsewaClient(server.URL)
	err := client.VerifyLegacy(context.Background(), "500", "0001REF", "ab12cd34ef56ab78cd90")

	var gwErr *apperrors.GatewayError
	assert.ErrorAs(t, err, &gwErr)
}
