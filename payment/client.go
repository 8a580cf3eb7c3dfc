// Package payment is a client for the checkout gateway: OAuth client
// credentials, order creation and status, refunds and refund status.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Gateway states.
const (
	StateCreated   = "CREATED"
	StatePending   = "PENDING"
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
	StateCancelled = "CANCELLED"
)

type Config struct {
	BaseURL       string
	AuthURL       string
	ClientID      string
	ClientSecret  string
	ClientVersion string
	Timeout       time.Duration
}

// TokenProvider returns a bearer token valid for the next request.
type TokenProvider interface {
	GetValidToken(ctx context.Context) (string, error)
}

type Client struct {
	cfg    Config
	http   *http.Client
	tokens TokenProvider
}

// NewClient builds a client. tokens may be nil, in which case the client
// uses an in-process TokenSource backed by FetchToken.
func NewClient(cfg Config, tokens TokenProvider) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, tokens: tokens}
	if c.tokens == nil {
		c.tokens = NewTokenSource(NewMemoryCache(), c.FetchToken, time.Minute)
	}
	return c
}

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway returned status %d", e.StatusCode)
}

type CreateOrderRequest struct {
	MerchantOrderID string
	AmountMinor     int64
	CallbackURL     string
}

type OrderResponse struct {
	OrderID  string `json:"orderId"`
	State    string `json:"state"`
	ExpireAt int64  `json:"expireAt"` // epoch milliseconds
	Token    string `json:"token"`
}

// Expiry converts ExpireAt to a time, or nil when the gateway sent none.
func (r *OrderResponse) Expiry() *time.Time {
	if r.ExpireAt == 0 {
		return nil
	}
	t := time.UnixMilli(r.ExpireAt).UTC()
	return &t
}

type OrderStatusResponse struct {
	OrderID string `json:"orderId"`
	State   string `json:"state"`
	Amount  int64  `json:"amount"`
}

type RefundRequest struct {
	MerchantRefundID        string `json:"merchantRefundId"`
	OriginalMerchantOrderID string `json:"originalMerchantOrderId"`
	AmountMinor             int64  `json:"amount"`
}

type RefundResponse struct {
	RefundID string `json:"refundId"`
	State    string `json:"state"`
	Amount   int64  `json:"amount"`
}

// FetchToken runs the client-credentials grant.
func (c *Client) FetchToken(ctx context.Context) (*Token, error) {
	form := url.Values{
		"client_id":      {c.cfg.ClientID},
		"client_version": {c.cfg.ClientVersion},
		"client_secret":  {c.cfg.ClientSecret},
		"grant_type":     {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"` // epoch seconds
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("token response without access_token")
	}
	return &Token{AccessToken: out.AccessToken, ExpiresAt: time.Unix(out.ExpiresAt, 0)}, nil
}

func (c *Client) CreateOrder(ctx context.Context, in CreateOrderRequest) (*OrderResponse, error) {
	body := map[string]any{
		"merchantOrderId": in.MerchantOrderID,
		"amount":          strconv.FormatInt(in.AmountMinor, 10),
		"callbackUrl":     in.CallbackURL,
		"paymentFlow":     map[string]string{"type": "PG_CHECKOUT"},
	}
	var out OrderResponse
	if err := c.call(ctx, http.MethodPost, "/checkout/v2/sdk/order", body, &out); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return &out, nil
}

func (c *Client) OrderStatus(ctx context.Context, merchantOrderID string) (*OrderStatusResponse, error) {
	var out OrderStatusResponse
	path := "/checkout/v2/order/" + url.PathEscape(merchantOrderID) + "/status"
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("order status: %w", err)
	}
	return &out, nil
}

func (c *Client) Refund(ctx context.Context, in RefundRequest) (*RefundResponse, error) {
	var out RefundResponse
	if err := c.call(ctx, http.MethodPost, "/payments/v2/refund", in, &out); err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	return &out, nil
}

func (c *Client) RefundStatus(ctx context.Context, merchantRefundID string) (*RefundResponse, error) {
	var out RefundResponse
	path := "/payments/v2/refund/" + url.PathEscape(merchantRefundID) + "/status"
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("refund status: %w", err)
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		return err
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "O-Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(b, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
