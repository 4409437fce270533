package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/adashop/storefront/internal/catalog"
	"github.com/adashop/storefront/internal/order"
)

var (
	// ErrUnavailable covers network failures, 5xx responses and an open
	// circuit breaker. Callers treat all three the same way: back off and
	// let the user retry.
	ErrUnavailable   = errors.New("order service unavailable")
	ErrOrderNotFound = errors.New("order not found")
)

// Client talks to the storefront order service over HTTP. It satisfies both
// the order API and the catalog source, so one collaborator serves checkout
// and cart validation alike. A circuit breaker sheds load once the service
// starts failing.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	st := gobreaker.Settings{
		Name:    "order-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](st),
	}
}

func (c *Client) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*order.Order, error) {
	var o order.Order
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, req order.StatusUpdateRequest) (*order.Order, error) {
	path := fmt.Sprintf("/api/v1/orders/%s/status", url.PathEscape(req.OrderID))
	var o order.Order
	if err := c.do(ctx, http.MethodPatch, path, req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	path := fmt.Sprintf("/api/v1/orders/%s", url.PathEscape(orderID))
	var o order.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) ListOrders(ctx context.Context, payerAddress string) ([]*order.Order, error) {
	path := "/api/v1/orders?payer=" + url.QueryEscape(payerAddress)
	var orders []*order.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetProduct implements the catalog source over the order service's product
// endpoints.
func (c *Client) GetProduct(ctx context.Context, productID string) (*catalog.Product, error) {
	path := fmt.Sprintf("/api/v1/products/%s", url.PathEscape(productID))
	var p catalog.Product
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListActive(ctx context.Context) ([]*catalog.Product, error) {
	var products []*catalog.Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("server error: %s", resp.Status)
		}
		return resp, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(resp, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) mapError(resp *http.Response, path string) error {
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		if body.Code == "product_not_found" {
			return catalog.ErrProductNotFound
		}
		return ErrOrderNotFound
	case http.StatusConflict:
		switch body.Code {
		case "insufficient_stock":
			return fmt.Errorf("%w: %s", catalog.ErrInsufficientStock, body.Error)
		case "invalid_transition":
			return fmt.Errorf("%w: %s", order.ErrInvalidTransition, body.Error)
		}
	}

	if body.Error != "" {
		return fmt.Errorf("order service: %s (%s)", body.Error, resp.Status)
	}
	return fmt.Errorf("order service: unexpected status %s", resp.Status)
}
