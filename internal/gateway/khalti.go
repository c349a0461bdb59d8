package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pawhaven/internal/config"
	"pawhaven/internal/errors"
)

const khaltiTimeout = 15 * time.Second

// CustomerInfo is the customer block sent with a wallet initiation call.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// KhaltiInitiateRequest is a server-to-server payment initiation request.
type KhaltiInitiateRequest struct {
	ReturnURL         string       `json:"return_url"`
	WebsiteURL        string       `json:"website_url"`
	Amount            int64        `json:"amount"` // paisa
	PurchaseOrderID   string       `json:"purchase_order_id"`
	PurchaseOrderName string       `json:"purchase_order_name"`
	CustomerInfo      CustomerInfo `json:"customer_info"`
}

// KhaltiInitiateResponse carries the gateway's redirect handle.
type KhaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
}

// KhaltiLookupResponse is the gateway's authoritative view of a payment.
type KhaltiLookupResponse struct {
	Pidx          string `json:"pidx"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// Completed reports whether the gateway itself confirms funds movement.
func (r *KhaltiLookupResponse) Completed() bool {
	return strings.EqualFold(r.Status, "Completed")
}

// KhaltiClient talks to the wallet gateway's epayment API.
type KhaltiClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewKhaltiClient creates a wallet gateway client from explicit configuration.
func NewKhaltiClient(cfg config.KhaltiConfig) *KhaltiClient {
	return &KhaltiClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: khaltiTimeout},
	}
}

// PaisaAmount converts a decimal rupee amount to the gateway's minor units.
func PaisaAmount(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// Initiate starts a hosted wallet payment and returns the redirect handle.
func (c *KhaltiClient) Initiate(ctx context.Context, req KhaltiInitiateRequest) (*KhaltiInitiateResponse, error) {
	var resp KhaltiInitiateResponse
	if err := c.post(ctx, "/epayment/initiate/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Pidx == "" || resp.PaymentURL == "" {
		return nil, &errors.GatewayError{Reason: "initiate response missing pidx or payment_url"}
	}
	return &resp, nil
}

// Lookup fetches the gateway-side status of a payment by pidx. This is the
// verified signal the reconciliation flow trusts; the user's return redirect
// alone never completes a payment.
func (c *KhaltiClient) Lookup(ctx context.Context, pidx string) (*KhaltiLookupResponse, error) {
	var resp KhaltiLookupResponse
	body := map[string]string{"pidx": pidx}
	if err := c.post(ctx, "/epayment/lookup/", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status == "" {
		return nil, &errors.GatewayError{Reason: "lookup response missing status"}
	}
	return &resp, nil
}

func (c *KhaltiClient) post(ctx context.Context, path string, payload, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return &errors.GatewayError{Reason: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return &errors.GatewayError{Reason: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Key "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errors.GatewayError{Reason: fmt.Sprintf("wallet gateway unreachable: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.GatewayError{Reason: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &errors.GatewayError{
			Reason:      fmt.Sprintf("wallet gateway returned status %d", resp.StatusCode),
			RawResponse: string(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &errors.GatewayError{
			Reason:      fmt.Sprintf("decode response: %v", err),
			RawResponse: string(body),
		}
	}
	return nil
}
