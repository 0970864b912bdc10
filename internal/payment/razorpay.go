// Package payment wraps the Razorpay REST API used for order
// creation, paid-status lookup and refunds, plus the checkout
// signature verifier. Amounts on the wire are in the gateway's minor
// currency unit (paise).
package payment

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// OrderStatusPaid is the gateway order status confirming that funds
// were captured for the order.
const OrderStatusPaid = "paid"

// ErrAlreadyRefunded is returned by Refund when the gateway reports
// that the payment has already been fully refunded. Callers treat it
// as idempotent success.
var ErrAlreadyRefunded = errors.New("payment already fully refunded")

// Order is a gateway order as returned by create and fetch calls.
type Order struct {
    ID       string `json:"id"`
    Amount   int64  `json:"amount"`
    Currency string `json:"currency"`
    Status   string `json:"status"`
    Receipt  string `json:"receipt"`
}

// Refund is the gateway's record of an initiated refund. PaymentID is
// the refund-scoped payment identifier.
type Refund struct {
    ID        string `json:"id"`
    PaymentID string `json:"payment_id"`
    Amount    int64  `json:"amount"`
}

// RefundOptions controls a refund call. A zero Amount requests a full
// refund of the remaining captured amount. Notes are attached to the
// refund for later reconciliation; Receipt defaults to a generated id.
type RefundOptions struct {
    Amount  int64
    Notes   map[string]string
    Receipt string
}

// apiError is the error envelope Razorpay returns on non-2xx
// responses.
type apiError struct {
    Inner struct {
        Code        string `json:"code"`
        Description string `json:"description"`
    } `json:"error"`
}

// Client calls the Razorpay API with basic auth. The zero value is
// not usable; construct with NewClient.
type Client struct {
    keyID     string
    keySecret string
    baseURL   string
    http      *http.Client
}

// NewClient returns a Client authenticated with the given key pair.
func NewClient(keyID, keySecret string) *Client {
    return &Client{
        keyID:     keyID,
        keySecret: keySecret,
        baseURL:   defaultBaseURL,
        http:      &http.Client{Timeout: 15 * time.Second},
    }
}

// KeyID returns the public key id clients need to open the checkout.
func (c *Client) KeyID() string { return c.keyID }

// CreateOrder creates a gateway order for the given amount in minor
// units.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (Order, error) {
    if receipt == "" {
        receipt = "rcpt_" + uuid.NewString()
    }
    body := map[string]interface{}{
        "amount":   amountMinor,
        "currency": currency,
        "receipt":  receipt,
    }
    if len(notes) > 0 {
        body["notes"] = notes
    }
    var order Order
    if err := c.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
        return Order{}, fmt.Errorf("create order: %w", err)
    }
    return order, nil
}

// FetchOrder returns the current state of an order, including whether
// it has been paid.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (Order, error) {
    var order Order
    if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
        return Order{}, fmt.Errorf("fetch order %s: %w", orderID, err)
    }
    return order, nil
}

// InitiateRefund asks the gateway to refund a payment. When the
// gateway reports the payment was already fully refunded the typed
// ErrAlreadyRefunded is returned; the public API exposes this state
// only through the error description, so the text match is confined
// here as a compatibility shim.
func (c *Client) InitiateRefund(ctx context.Context, paymentID string, opts RefundOptions) (Refund, error) {
    receipt := opts.Receipt
    if receipt == "" {
        receipt = "refund_" + uuid.NewString()
    }
    body := map[string]interface{}{
        "speed":   "normal",
        "receipt": receipt,
    }
    if len(opts.Notes) > 0 {
        body["notes"] = opts.Notes
    }
    if opts.Amount > 0 {
        body["amount"] = opts.Amount
    }
    var refund Refund
    err := c.do(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", body, &refund)
    if err != nil {
        if isAlreadyRefunded(err) {
            return Refund{}, ErrAlreadyRefunded
        }
        return Refund{}, fmt.Errorf("refund payment %s: %w", paymentID, err)
    }
    return refund, nil
}

func isAlreadyRefunded(err error) bool {
    msg := strings.ToLower(err.Error())
    return strings.Contains(msg, "fully refunded") ||
        strings.Contains(msg, "already refunded") ||
        strings.Contains(msg, "refunded already")
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
    var reader io.Reader
    if body != nil {
        raw, err := json.Marshal(body)
        if err != nil {
            return err
        }
        reader = bytes.NewReader(raw)
    }
    req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
    if err != nil {
        return err
    }
    req.SetBasicAuth(c.keyID, c.keySecret)
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }
    resp, err := c.http.Do(req)
    if err != nil {
        return err
    }
    defer resp.Body.Close()
    raw, err := io.ReadAll(resp.Body)
    if err != nil {
        return err
    }
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        var apiErr apiError
        if json.Unmarshal(raw, &apiErr) == nil && apiErr.Inner.Description != "" {
            return fmt.Errorf("gateway %d: %s", resp.StatusCode, apiErr.Inner.Description)
        }
        return fmt.Errorf("gateway %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
    }
    if out != nil {
        return json.Unmarshal(raw, out)
    }
    return nil
}
