package gateway

import (
	"context"
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

func newTestKhaltiClient(baseURL string) *KhaltiClient {
	return NewKhaltiClient(config.KhaltiConfig{
		BaseURL:   baseURL,
		SecretKey: "test-secret-key",
	})
}

func TestPaisaAmount(t *testing.T) {
	assert.Equal(t, int64(150000), PaisaAmount(decimal.RequireFromString("1500.00")))
	assert.Equal(t, int64(99950), PaisaAmount(decimal.RequireFromString("999.50")))
}

func TestKhaltiClient_Initiate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/epayment/initiate/", r.URL.Path)
		assert.Equal(t, "Key test-secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req KhaltiInitiateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(150000), req.Amount)
		assert.Equal(t, "ab12cd34ef56ab78cd90", req.PurchaseOrderID)

		_ = json.NewEncoder(w).Encode(KhaltiInitiateResponse{
			Pidx:       "bZQLD9wRVWo4CdESSfuSsB",
			PaymentURL: "https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB",
		})
	}))
	defer server.Close()

	client := newTestKhaltiClient(server.URL)
	resp, err := client.Initiate(context.Background(), KhaltiInitiateRequest{
		ReturnURL:       "https://shop.example.com/return",
		Amount:          150000,
		PurchaseOrderID: "ab12cd34ef56ab78cd90",
	})

	require.NoError(t, err)
	assert.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", resp.Pidx)
	assert.NotEmpty(t, resp.PaymentURL)
}

func TestKhaltiClient_Initiate_GatewayRejects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Amount should be greater than Rs. 10"}`))
	}))
	defer server.Close()

	client := newTestKhaltiClient(server.URL)
	_, err := client.Initiate(context.Background(), KhaltiInitiateRequest{Amount: 100})

	var gwErr *apperrors.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Contains(t, gwErr.RawResponse, "Amount should be greater")
}

func TestKhaltiClient_Initiate_MissingRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestKhaltiClient(server.URL)
	_, err := client.Initiate(context.Background(), KhaltiInitiateRequest{Amount: 150000})

	var gwErr *apperrors.GatewayError
	assert.ErrorAs(t, err, &gwErr)
}

func TestKhaltiClient_Lookup(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		wantCompleted bool
	}{
		{name: "completed", status: "Completed", wantCompleted: true},
		{name: "completed case-insensitive", status: "COMPLETED", wantCompleted: true},
		{name: "pending", status: "Pending", wantCompleted: false},
		{name: "refunded", status: "Refunded", wantCompleted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/epayment/lookup/", r.URL.Path)

				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", body["pidx"])

				_ = json.NewEncoder(w).Encode(KhaltiLookupResponse{
					Pidx:          body["pidx"],
					Status:        tt.status,
					TransactionID: "GFq9PFS7b2iYvL8Lir9oXe",
				})
			}))
			defer server.Close()

			client := newTestKhaltiClient(server.URL)
			resp, err := client.Lookup(context.Background(), "bZQLD9wRVWo4CdESSfuSsB")

			require.NoError(t, err)
			assert.Equal(t, tt.wantCompleted, resp.Completed())
		})
	}
}

func TestKhaltiClient_Lookup_MissingStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pidx":"bZQLD9wRVWo4CdESSfuSsB"}`))
	}))
	defer server.Close()

	client := newTestKhaltiClient(server.URL)
	_, err := client.Lookup(context.Background(), "bZQLD9wRVWo4CdESSfuSsB")

	var gwErr *apperrors.GatewayError
	assert.ErrorAs(t, err, &gwErr)
}
