package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joao-fontenele/orderflow-sms/internal/domain"
)

// Client reads orders from the orders service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// GetOrder returns nil, nil when the order does not exist.
func (c *Client) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	found, err := c.getJSON(ctx, fmt.Sprintf("%s/orders/%d", c.baseURL, id), &order)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	return &order, nil
}

func (c *Client) FindOrderIDsByBillingEmail(ctx context.Context, email string, limit int) ([]int64, error) {
	query := url.Values{}
	query.Set("billing_email", email)
	query.Set("limit", strconv.Itoa(limit))

	var orders []domain.Order
	found, err := c.getJSON(ctx, c.baseURL+"/orders?"+query.Encode(), &orders)
	if err != nil {
		return nil, fmt.Errorf("list orders by billing email: %w", err)
	}
	if !found {
		return nil, errors.New("list orders by billing email: endpoint not found")
	}

	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, target string, dest any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("orders service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}
