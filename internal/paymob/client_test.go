package paymob

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zyadwael2009/gym/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	return NewClient(config.PaymobConfig{
		APIKey:            "test-api-key",
		HMACSecret:        "test-hmac-secret",
		CardIntegrationID: "1111",
		IframeID:          "2222",
		BaseURL:           baseURL,
		Currency:          "EGP",
		Timeout:           5 * time.Second,
	})
}

func TestInitiatePayment_FullFlow(t *testing.T) {
	var gotOrder map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/tokens":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "test-api-key", body["api_key"])
			json.NewEncoder(w).Encode(map[string]interface{}{"token": "auth-token-1"})
		case "/ecommerce/orders":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotOrder))
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 987654})
		case "/acceptance/payment_keys":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "auth-token-1", body["auth_token"])
			assert.Equal(t, "987654", body["order_id"])
			assert.Equal(t, "1111", body["integration_id"])
			json.NewEncoder(w).Encode(map[string]interface{}{"token": "payment-key-1"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := testClient(server.URL)
	result, err := client.InitiatePayment(context.Background(), InitiateRequest{
		AmountCents:     50000,
		MerchantOrderID: "GYM-PAY123-1",
		Billing:         NewBillingData("Mona", "Adel", "m@example.com", "+201000000000"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(987654), result.OrderID)
	assert.Equal(t, "payment-key-1", result.PaymentToken)
	assert.Contains(t, result.PaymentURL, "/acceptance/iframes/2222?payment_token=payment-key-1")
	assert.Equal(t, "50000", gotOrder["amount_cents"])
	assert.Equal(t, "EGP", gotOrder["currency"])
}

func TestInitiatePayment_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.InitiatePayment(context.Background(), InitiateRequest{
		AmountCents:     50000,
		MerchantOrderID: "GYM-PAY123-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "paymob auth")
}

// Signature computed independently of the client code over the
// documented field order.
func TestVerifyCallback(t *testing.T) {
	obj := map[string]interface{}{
		"amount_cents":           float64(50000),
		"created_at":             "2026-02-15T10:00:00",
		"currency":               "EGP",
		"error_occured":          false,
		"has_parent_transaction": false,
		"id":                     float64(12345),
		"integration_id":         float64(1111),
		"is_3d_secure":           true,
		"is_auth":                false,
		"is_capture":             false,
		"is_refunded":            false,
		"is_standalone_payment":  true,
		"is_voided":              false,
		"order":                  map[string]interface{}{"id": float64(987654)},
		"owner":                  float64(42),
		"pending":                false,
		"source_data": map[string]interface{}{
			"pan":      "2346",
			"sub_type": "MasterCard",
			"type":     "card",
		},
		"success": true,
	}

	concatenated := "50000" + "2026-02-15T10:00:00" + "EGP" + "false" + "false" +
		"12345" + "1111" + "true" + "false" + "false" + "false" + "true" + "false" +
		"987654" + "42" + "false" + "2346" + "MasterCard" + "card" + "true"

	mac := hmac.New(sha512.New, []byte("test-hmac-secret"))
	mac.Write([]byte(concatenated))
	signature := hex.EncodeToString(mac.Sum(nil))

	client := testClient("http://unused")

	assert.True(t, client.VerifyCallback(obj, signature))
	assert.False(t, client.VerifyCallback(obj, signature[:len(signature)-1]+"0"))

	obj["amount_cents"] = float64(1)
	assert.False(t, client.VerifyCallback(obj, signature))
}

func TestParseCallback(t *testing.T) {
	obj := map[string]interface{}{
		"id":            float64(12345),
		"amount_cents":  float64(50000),
		"success":       true,
		"error_occured": false,
		"pending":       false,
		"order":         map[string]interface{}{"id": float64(987654)},
	}

	tx := ParseCallback(obj)
	assert.Equal(t, int64(12345), tx.TransactionID)
	assert.Equal(t, int64(987654), tx.OrderID)
	assert.Equal(t, int64(50000), tx.AmountCents)
	assert.True(t, tx.Success)
	assert.False(t, tx.ErrorOccured)
}
