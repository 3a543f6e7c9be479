package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Raj-venom/scrap-dai-client/internal/draft"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAccepted  OrderStatus = "accepted"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a submitted pickup request.
type Order struct {
	ID              string            `json:"_id"`
	Status          OrderStatus       `json:"status"`
	PickUpDate      string            `json:"pickUpDate"`
	PickUpTime      string            `json:"pickUpTime"`
	PickupAddress   draft.Address     `json:"pickupAddress"`
	OrderItems      []draft.OrderItem `json:"orderItems"`
	EstimatedAmount float64           `json:"estimatedAmount"`
	PaymentMethod   string            `json:"paymentMethod"`
	ScrapImages     []string          `json:"scrapImages"`
	User            string            `json:"user,omitempty"`
	Collector       string            `json:"collector,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// ListOrdersOptions filters ListOrders.
type ListOrdersOptions struct {
	Status OrderStatus
}

// OrdersService manages the seller's orders.
type OrdersService struct {
	client *Client
}

// Create submits a built draft payload as one multipart request. Images are
// re-encoded before upload. The caller resets the draft on success.
func (s *OrdersService) Create(ctx context.Context, p *draft.Payload) (*Order, error) {
	body, contentType, err := encodeOrder(p, s.client.media)
	if err != nil {
		return nil, err
	}

	req, err := s.client.newRequest(ctx, http.MethodPost, "/order/create", body, contentType)
	if err != nil {
		return nil, err
	}
	var out Order
	if err := s.client.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the seller's orders, optionally filtered by status.
func (s *OrdersService) List(ctx context.Context, opts *ListOrdersOptions) ([]Order, error) {
	query := url.Values{}
	if opts != nil && opts.Status != "" {
		query.Set("status", string(opts.Status))
	}
	var out []Order
	if err := s.client.get(ctx, "/order/my-orders", query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one order.
func (s *OrdersService) Get(ctx context.Context, id string) (*Order, error) {
	var out Order
	if err := s.client.get(ctx, pathf("/order/%s", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel cancels a pending order.
func (s *OrdersService) Cancel(ctx context.Context, id string) (*Order, error) {
	return s.client.transition(ctx, id, "cancel")
}

// PickupsService is the collector's view of orders.
type PickupsService struct {
	client *Client
}

// ListPending returns orders waiting for a collector.
func (s *PickupsService) ListPending(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := s.client.get(ctx, "/order/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Accept assigns a pending order to the calling collector.
func (s *PickupsService) Accept(ctx context.Context, id string) (*Order, error) {
	return s.client.transition(ctx, id, "accept")
}

// Complete marks an accepted order as picked up.
func (s *PickupsService) Complete(ctx context.Context, id string) (*Order, error) {
	return s.client.transition(ctx, id, "complete")
}

func (c *Client) transition(ctx context.Context, id, action string) (*Order, error) {
	if id == "" {
		return nil, &Error{Kind: KindValidation, Message: "order id is required"}
	}
	var out Order
	if err := c.patch(ctx, pathf("/order/%s/", id)+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
