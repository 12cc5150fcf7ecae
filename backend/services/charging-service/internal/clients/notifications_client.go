package clients

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
)

// NotificationsClient delivers user-facing notifications to the notification service.
type NotificationsClient struct {
	base   *httpx.BaseClient
	logger *zap.Logger
}

// NewNotificationsClient returns client; an empty URL disables delivery.
func NewNotificationsClient(baseURL string, httpClient httpx.HTTPDoer, logger *zap.Logger) *NotificationsClient {
	return &NotificationsClient{base: httpx.NewBaseClient(baseURL, httpClient), logger: logger}
}

// Notify sends createNotification.
func (c *NotificationsClient) Notify(ctx context.Context, req contracts.NotificationRequest) error {
	if !c.base.Enabled() {
		c.logger.Debug("notifications client disabled, skipping",
			zap.String("type", req.Type),
			zap.Int64("user_id", req.UserID),
		)
		return nil
	}
	return c.base.DoJSON(ctx, "createNotification", http.MethodPost, "/notifications", req, nil, nil)
}
