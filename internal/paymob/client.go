// Package paymob wraps the Paymob Accept hosted-checkout flow: auth
// token, order, payment key, then a hosted URL the member pays on.
// Outcomes arrive asynchronously on the HMAC-signed webhook.
package paymob

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/zyadwael2009/gym/internal/config"
)

type Client struct {
	cfg  config.PaymobConfig
	http *http.Client
}

func NewClient(cfg config.PaymobConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type BillingData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	// Paymob rejects empty billing fields; everything we don't collect
	// is sent as NA, same as their own examples.
	Apartment      string `json:"apartment"`
	Floor          string `json:"floor"`
	Street         string `json:"street"`
	Building       string `json:"building"`
	ShippingMethod string `json:"shipping_method"`
	PostalCode     string `json:"postal_code"`
	City           string `json:"city"`
	Country        string `json:"country"`
	State          string `json:"state"`
}

func NewBillingData(firstName, lastName, email, phone string) BillingData {
	return BillingData{
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		Phone:          phone,
		Apartment:      "NA",
		Floor:          "NA",
		Street:         "NA",
		Building:       "NA",
		ShippingMethod: "NA",
		PostalCode:     "NA",
		City:           "Cairo",
		Country:        "Egypt",
		State:          "Cairo",
	}
}

type InitiateRequest struct {
	AmountCents     int64
	MerchantOrderID string
	Billing         BillingData
	UseMobileWallet bool
}

type InitiateResult struct {
	PaymentToken string `json:"payment_token"`
	PaymentURL   string `json:"payment_url"`
	OrderID      int64  `json:"order_id"`
	AmountCents  int64  `json:"amount_cents"`
}

// InitiatePayment runs the three-step flow and returns the hosted URL.
func (c *Client) InitiatePayment(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	token, err := c.authToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("paymob auth: %w", err)
	}

	orderID, err := c.createOrder(ctx, token, req.AmountCents, req.MerchantOrderID)
	if err != nil {
		return nil, fmt.Errorf("paymob order: %w", err)
	}

	integrationID := c.cfg.CardIntegrationID
	if req.UseMobileWallet {
		integrationID = c.cfg.MobileWalletIntegrationID
	}

	paymentKey, err := c.paymentKey(ctx, token, orderID, req.AmountCents, req.Billing, integrationID)
	if err != nil {
		return nil, fmt.Errorf("paymob payment key: %w", err)
	}

	return &InitiateResult{
		PaymentToken: paymentKey,
		PaymentURL:   fmt.Sprintf("%s/acceptance/iframes/%s?payment_token=%s", c.cfg.BaseURL, c.cfg.IframeID, paymentKey),
		OrderID:      orderID,
		AmountCents:  req.AmountCents,
	}, nil
}

func (c *Client) authToken(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.post(ctx, "/auth/tokens", map[string]interface{}{
		"api_key": c.cfg.APIKey,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("empty auth token")
	}
	return resp.Token, nil
}

func (c *Client) createOrder(ctx context.Context, token string, amountCents int64, merchantOrderID string) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	err := c.post(ctx, "/ecommerce/orders", map[string]interface{}{
		"auth_token":        token,
		"delivery_needed":   "false",
		"amount_cents":      fmt.Sprintf("%d", amountCents),
		"currency":          c.cfg.Currency,
		"merchant_order_id": merchantOrderID,
		"items":             []interface{}{},
	}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, fmt.Errorf("empty order id")
	}
	return resp.ID, nil
}

func (c *Client) paymentKey(ctx context.Context, token string, orderID, amountCents int64, billing BillingData, integrationID string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.post(ctx, "/acceptance/payment_keys", map[string]interface{}{
		"auth_token":     token,
		"amount_cents":   fmt.Sprintf("%d", amountCents),
		"expiration":     3600,
		"order_id":       fmt.Sprintf("%d", orderID),
		"billing_data":   billing,
		"currency":       c.cfg.Currency,
		"integration_id": integrationID,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("empty payment key")
	}
	return resp.Token, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// hmacFields is the fixed, ordered list Paymob signs. Order matters;
// changing it breaks every signature.
var hmacFields = []string{
	"amount_cents",
	"created_at",
	"currency",
	"error_occured",
	"has_parent_transaction",
	"id",
	"integration_id",
	"is_3d_secure",
	"is_auth",
	"is_capture",
	"is_refunded",
	"is_standalone_payment",
	"is_voided",
	"order",
	"owner",
	"pending",
	"source_data_pan",
	"source_data_sub_type",
	"source_data_type",
	"success",
}

// VerifyCallback recomputes the HMAC-SHA512 over the transaction object
// and compares it to the received signature in constant time.
func (c *Client) VerifyCallback(obj map[string]interface{}, receivedHMAC string) bool {
	var buf bytes.Buffer
	for _, field := range hmacFields {
		buf.WriteString(stringifyField(obj, field))
	}

	mac := hmac.New(sha512.New, []byte(c.cfg.HMACSecret))
	mac.Write(buf.Bytes())
	calculated := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(calculated), []byte(receivedHMAC))
}

// stringifyField renders a callback value the way Paymob signed it:
// booleans lowercase, integers without exponent, nested order/source
// fields flattened.
func stringifyField(obj map[string]interface{}, field string) string {
	value, ok := obj[field]
	if !ok {
		switch field {
		case "source_data_pan":
			value = nestedValue(obj, "source_data", "pan")
		case "source_data_sub_type":
			value = nestedValue(obj, "source_data", "sub_type")
		case "source_data_type":
			value = nestedValue(obj, "source_data", "type")
		}
	}
	if nested, ok := value.(map[string]interface{}); ok {
		value = nested["id"]
	}
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func nestedValue(obj map[string]interface{}, key, sub string) interface{} {
	if nested, ok := obj[key].(map[string]interface{}); ok {
		return nested[sub]
	}
	return nil
}

// Transaction is the slice of the callback payload the webhook handler
// acts on.
type Transaction struct {
	TransactionID int64
	OrderID       int64
	AmountCents   int64
	Success       bool
	ErrorOccured  bool
	Pending       bool
}

// ParseCallback extracts the transaction outcome from the webhook body.
func ParseCallback(obj map[string]interface{}) Transaction {
	tx := Transaction{
		TransactionID: intField(obj, "id"),
		AmountCents:   intField(obj, "amount_cents"),
		Success:       boolField(obj, "success"),
		ErrorOccured:  boolField(obj, "error_occured"),
		Pending:       boolField(obj, "pending"),
	}

	switch order := obj["order"].(type) {
	case map[string]interface{}:
		tx.OrderID = intField(order, "id")
	case float64:
		tx.OrderID = int64(order)
	}

	return tx
}

func intField(obj map[string]interface{}, key string) int64 {
	if v, ok := obj[key].(float64); ok {
		return int64(v)
	}
	return 0
}

func boolField(obj map[string]interface{}, key string) bool {
	v, _ := obj[key].(bool)
	return v
}
