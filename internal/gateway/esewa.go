package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pawhaven/internal/config"
	"pawhaven/internal/errors"
)

// Legacy verification must not hang the callback request indefinitely.
const esewaVerifyTimeout = 10 * time.Second

// CallbackStatus is the normalized outcome of a decoded gateway callback.
type CallbackStatus string

const (
	CallbackSuccess CallbackStatus = "SUCCESS"
	CallbackFailure CallbackStatus = "FAILURE"
)

// DecodedOutcome is the result of decoding and verifying a callback.
type DecodedOutcome struct {
	Status        CallbackStatus
	ExternalTxnID string
	RawStatus     string
}

// FormPayload is the signed form the browser posts to the hosted gateway page.
type FormPayload struct {
	Action string            `json:"action"`
	Fields map[string]string `json:"fields"`
}

// esewaCallbackData is the JSON carried in the new protocol's base64 data
// parameter.
type esewaCallbackData struct {
	Status           string `json:"status"`
	TransactionCode  string `json:"transaction_code"`
	TransactionUUID  string `json:"transaction_uuid"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// EsewaClient builds signed payloads for and decodes callbacks from the
// bank-redirect gateway. Both callback generations are supported: the new
// base64-JSON protocol and the legacy query-string protocol verified through
// a synchronous transaction-record call.
type EsewaClient struct {
	signer       *Signer
	merchantCode string
	productCode  string
	paymentURL   string
	verifyURL    string
	httpClient   *http.Client
}

// NewEsewaClient creates a bank-redirect gateway client from explicit
// configuration.
func NewEsewaClient(cfg config.EsewaConfig) *EsewaClient {
	return &EsewaClient{
		signer:       NewSigner(cfg.SecretKey),
		merchantCode: cfg.MerchantCode,
		productCode:  cfg.ProductCode,
		paymentURL:   cfg.PaymentURL,
		verifyURL:    cfg.VerifyURL,
		httpClient:   &http.Client{Timeout: esewaVerifyTimeout},
	}
}

// FormPayload builds the signed form fields for a hosted redirect payment.
func (c *EsewaClient) FormPayload(amount decimal.Decimal, transactionRef, successURL, failureURL string) *FormPayload {
	message := CanonicalMessage(amount, transactionRef, c.productCode)
	return &FormPayload{
		Action: c.paymentURL,
		Fields: map[string]string{
			"amount":                  amount.String(),
			"tax_amount":              "0",
			"total_amount":            amount.String(),
			"transaction_uuid":        transactionRef,
			"product_code":            c.productCode,
			"product_service_charge":  "0",
			"product_delivery_charge": "0",
			"success_url":             successURL,
			"failure_url":             failureURL,
			"signed_field_names":      "total_amount,transaction_uuid,product_code",
			"signature":               c.signer.Sign(message),
		},
	}
}

// DecodeCallback decodes the new protocol's base64-encoded JSON callback.
// Only a status of COMPLETE, in any letter case, counts as success. When the
// payload carries its own signature it is verified before the status is
// trusted; a mismatch is treated as tampering.
func (c *EsewaClient) DecodeCallback(data string) (*DecodedOutcome, error) {
	raw, err := decodeBase64(data)
	if err != nil {
		return nil, &errors.ProtocolError{Reason: fmt.Sprintf("invalid base64 data: %v", err)}
	}

	var payload esewaCallbackData
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &errors.ProtocolError{Reason: fmt.Sprintf("invalid JSON data: %v", err)}
	}

	if payload.Signature != "" && payload.SignedFieldNames != "" {
		message, err := signedMessage(raw, payload.SignedFieldNames)
		if err != nil {
			return nil, &errors.ProtocolError{Reason: err.Error()}
		}
		if !c.signer.Verify(message, payload.Signature) {
			return nil, errors.ErrSignatureInvalid
		}
	}

	outcome := &DecodedOutcome{
		ExternalTxnID: payload.TransactionCode,
		RawStatus:     payload.Status,
	}
	if strings.EqualFold(payload.Status, "COMPLETE") {
		outcome.Status = CallbackSuccess
	} else {
		outcome.Status = CallbackFailure
	}
	return outcome, nil
}

// VerifyLegacy confirms a legacy callback through the gateway's
// transaction-record endpoint. The response body is status-coded text: a
// "Success" substring confirms the payment, "Duplicate" flags a replayed
// transaction.
func (c *EsewaClient) VerifyLegacy(ctx context.Context, amount, refID, transactionRef string) error {
	form := url.Values{
		"amt": {amount},
		"scd": {c.merchantCode},
		"rid": {refID},
		"pid": {transactionRef},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return &errors.GatewayError{Reason: fmt.Sprintf("build verification request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errors.GatewayError{Reason: fmt.Sprintf("connection error during payment verification: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.GatewayError{Reason: fmt.Sprintf("read verification response: %v", err)}
	}

	text := string(body)
	switch {
	case strings.Contains(text, "Success"):
		return nil
	case strings.Contains(text, "Duplicate"):
		return errors.ErrDuplicateTransaction
	default:
		return &errors.GatewayError{Reason: "payment verification failed", RawResponse: text}
	}
}

// decodeBase64 accepts both the standard and URL-safe alphabets, padded or
// not. The gateway is not consistent about which it emits.
func decodeBase64(data string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if raw, err := enc.DecodeString(data); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("data is not valid base64")
}

// signedMessage rebuilds the comma-joined key=value string the gateway
// signed, in the exact order named by signed_field_names.
func signedMessage(raw []byte, signedFieldNames string) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return "", fmt.Errorf("invalid JSON data: %v", err)
	}

	names := strings.Split(signedFieldNames, ",")
	parts := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		value, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("signed field %q missing from payload", name)
		}
		parts = append(parts, fmt.Sprintf("%s=%v", name, value))
	}
	return strings.Join(parts, ","), nil
}
