package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// NotificationList is a page of notifications.
type NotificationList struct {
	Notifications []contract.Notification `json:"notifications"`
	UnreadCount   int                     `json:"unread_count"`
}

// ListNotifications returns the user's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) (NotificationList, error) {
	path := "/notifications"
	if unreadOnly {
		path += "?" + url.Values{"unread": []string{"true"}}.Encode()
	}
	var out NotificationList
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("gateway: notification id is required")
	}
	return c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// AIUsage returns the account's AI usage counters.
func (c *Client) AIUsage(ctx context.Context) (contract.AIUsage, error) {
	var out contract.AIUsage
	err := c.do(ctx, http.MethodGet, "/ai/usage", nil, &out)
	return out, err
}
