package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"skywatch/models"
	"skywatch/utils"

	"go.uber.org/zap"
)

// AlertNotifier hands stored alerts to the delivery collaborator. Rendering
// and channel selection live on the far side of this boundary.
type AlertNotifier interface {
	DeliverAlert(ctx context.Context, alert *models.Alert) error
}

// WebhookNotifier posts alerts as JSON to the collaborator's endpoint.
type WebhookNotifier struct {
	Endpoint string
	Client   *http.Client
}

func NewWebhookNotifier(endpoint string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) DeliverAlert(ctx context.Context, alert *models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("error encoding alert %s: %w", alert.ID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("error delivering alert %s: %w", alert.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %d for alert %s", resp.StatusCode, alert.ID)
	}
	return nil
}

// LogNotifier is the fallback when no webhook endpoint is configured: alerts
// count as delivered once logged.
type LogNotifier struct{}

func (n *LogNotifier) DeliverAlert(ctx context.Context, alert *models.Alert) error {
	utils.GetLogger().Info("alert delivered to log",
		zap.String("alertId", alert.ID),
		zap.String("userId", alert.UserID),
		zap.String("severity", alert.Severity),
		zap.Int("urgency", alert.Urgency),
		zap.String("message", alert.Message))
	return nil
}

// NewAlertNotifier picks the webhook notifier when an endpoint is configured
// and the log fallback otherwise.
func NewAlertNotifier(endpoint string, timeout time.Duration) AlertNotifier {
	if endpoint == "" {
		return &LogNotifier{}
	}
	return NewWebhookNotifier(endpoint, timeout)
}
