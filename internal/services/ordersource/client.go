package ordersource

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings required to talk to the order source.
type Config struct {
	BaseURL        string
	APIKey         string
	PartnerKey     string
	TimeoutSeconds int
}

// Client wraps the marketplace order source API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an order source client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			PartnerKey:     strings.TrimSpace(cfg.PartnerKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Order is one open order returned by the order source.
type Order struct {
	OrderID         string          `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerNotes   string          `json:"customerNotes"`
	GiftMessage     string          `json:"giftMessage"`
	AdvancedOptions AdvancedOptions `json:"advancedOptions"`
	Items           []OrderItem     `json:"items"`
}

// AdvancedOptions carries the order-level custom reference fields.
type AdvancedOptions struct {
	CustomField1 string `json:"customField1"`
	CustomField2 string `json:"customField2"`
	CustomField3 string `json:"customField3"`
}

// OrderItem is one line item within an order.
type OrderItem struct {
	ItemID    string       `json:"orderItemId"`
	SKU       string       `json:"sku"`
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	Options   []ItemOption `json:"options"`
	BuyerNote string       `json:"buyerNotes"`
}

// ItemOption is one raw personalization option on a line item.
type ItemOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OnlyCustomizedURL reports whether the item carries nothing but the
// marketplace's pending-personalization URL, meaning the buyer's input has
// not arrived yet and the item must be skipped this cycle.
func (i OrderItem) OnlyCustomizedURL() bool {
	if len(i.Options) != 1 {
		return false
	}
	return strings.TrimSpace(i.Options[0].Name) == "CustomizedURL"
}

// RateLimit reports the order source's throttle state after a tag request.
type RateLimit struct {
	Remaining    int
	ResetSeconds int
	Known        bool
}

// FetchProductOrders returns the open orders for one product SKU.
func (c *Client) FetchProductOrders(ctx context.Context, sku string) ([]Order, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, errors.New("order fetch: sku required")
	}
	if c.cfg.BaseURL == "" {
		return nil, errors.New("order fetch: base url required")
	}

	endpoint := fmt.Sprintf("%s/get-product-orders?%s", c.cfg.BaseURL,
		url.Values{"product": []string{sku}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("order fetch: new request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("order fetch: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("order fetch: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order fetch: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var orders []Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("order fetch: decode response: %w", err)
	}
	return orders, nil
}

// AddTag applies a tag to an order and returns the throttle state parsed
// from the response headers.
func (c *Client) AddTag(ctx context.Context, orderID string, tagID int) (RateLimit, error) {
	var limit RateLimit
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return limit, errors.New("add tag: order id required")
	}

	payload := map[string]any{"orderId": orderID, "tagId": tagID}
	resp, body, err := c.post(ctx, "/orders/addtag", payload)
	if err != nil {
		return limit, fmt.Errorf("add tag: %w", err)
	}

	limit = parseRateLimit(resp.Header)
	if resp.StatusCode != http.StatusOK {
		return limit, fmt.Errorf("add tag: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return limit, nil
}

// AppendReference appends a value to an order's custom reference field,
// preserving any existing content. Values already present are not repeated.
func (c *Client) AppendReference(ctx context.Context, orderID, field, existing, value string) error {
	orderID = strings.TrimSpace(orderID)
	value = strings.TrimSpace(value)
	if orderID == "" {
		return errors.New("append reference: order id required")
	}
	if value == "" {
		return errors.New("append reference: value required")
	}

	combined := appendReferenceValue(existing, value)
	payload := map[string]any{"orderId": orderID, "field": field, "value": combined}
	resp, body, err := c.post(ctx, "/orders/update-field", payload)
	if err != nil {
		return fmt.Errorf("append reference: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("append reference: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// HealthCheck verifies the order source answers at all.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return errors.New("order source health: base url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("order source health: new request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order source health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("order source health: http %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, []byte, error) {
	if c.cfg.BaseURL == "" {
		return nil, nil, errors.New("base url required")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	return resp, body, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey == "" {
		return
	}
	credentials := c.cfg.APIKey + ":" + c.cfg.PartnerKey
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))
}

func parseRateLimit(header http.Header) RateLimit {
	remaining := strings.TrimSpace(header.Get("X-Rate-Limit-Remaining"))
	reset := strings.TrimSpace(header.Get("X-Rate-Limit-Reset"))
	if remaining == "" && reset == "" {
		return RateLimit{}
	}
	limit := RateLimit{Known: true}
	if value, err := strconv.Atoi(remaining); err == nil {
		limit.Remaining = value
	}
	if value, err := strconv.Atoi(reset); err == nil {
		limit.ResetSeconds = value
	}
	return limit
}

func appendReferenceValue(existing, value string) string {
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return value
	}
	for _, part := range strings.Split(existing, ",") {
		if strings.TrimSpace(part) == value {
			return existing
		}
	}
	return existing + "," + value
}
