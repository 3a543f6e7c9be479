package api

import (
	"context"
	"time"
)

// Notification is an in-app message.
type Notification struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"isRead"`
	Order     string    `json:"order,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationsService reads the notification feed.
type NotificationsService struct {
	client *Client
}

// List returns the caller's notifications, newest first.
func (s *NotificationsService) List(ctx context.Context) ([]Notification, error) {
	var out []Notification
	if err := s.client.get(ctx, "/notification/all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks one notification as read.
func (s *NotificationsService) MarkRead(ctx context.Context, id string) error {
	return s.client.patch(ctx, pathf("/notification/%s/read", id), nil, nil)
}
