package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// webhookClient posts JSON payloads to an external collaborator endpoint.
// An empty base URL disables the collaborator; calls become no-ops so the
// pipeline runs unchanged in environments without the external services.
type webhookClient struct {
	httpClient *http.Client
	baseURL    string
}

func newWebhookClient(baseURL string) *webhookClient {
	return &webhookClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

func (c *webhookClient) post(ctx context.Context, path string, payload interface{}) error {
	if c.baseURL == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// WebhookNotifier delivers reputation notifications over HTTP.
type WebhookNotifier struct {
	client *webhookClient
}

func NewWebhookNotifier(baseURL string) *WebhookNotifier {
	return &WebhookNotifier{client: newWebhookClient(baseURL)}
}

func (n *WebhookNotifier) notify(ctx context.Context, kind, userID string, payload map[string]interface{}) error {
	return n.client.post(ctx, "/notifications/reputation", map[string]interface{}{
		"type":    kind,
		"user_id": userID,
		"payload": payload,
	})
}

func (n *WebhookNotifier) NotifyGain(ctx context.Context, userID string, payload map[string]interface{}) error {
	return n.notify(ctx, "gain", userID, payload)
}

func (n *WebhookNotifier) NotifyLoss(ctx context.Context, userID string, payload map[string]interface{}) error {
	return n.notify(ctx, "loss", userID, payload)
}

func (n *WebhookNotifier) NotifyReset(ctx context.Context, userID, adminID string, payload map[string]interface{}) error {
	if err := n.notify(ctx, "reset", userID, payload); err != nil {
		return err
	}
	if adminID == "" {
		return nil
	}
	return n.notify(ctx, "reset_performed", adminID, payload)
}

func (n *WebhookNotifier) NotifyLevelChange(ctx context.Context, userID string, payload map[string]interface{}) error {
	return n.notify(ctx, "level_change", userID, payload)
}

// WebhookModeration opens escalation tickets over HTTP.
type WebhookModeration struct {
	client *webhookClient
}

func NewWebhookModeration(baseURL string) *WebhookModeration {
	return &WebhookModeration{client: newWebhookClient(baseURL)}
}

func (m *WebhookModeration) OpenTicket(ctx context.Context, userID string, severity models.Severity, details map[string]interface{}) error {
	return m.client.post(ctx, "/moderation/tickets", map[string]interface{}{
		"user_id":  userID,
		"severity": string(severity),
		"details":  details,
	})
}

// WebhookAchievements triggers score-threshold achievement checks.
type WebhookAchievements struct {
	client *webhookClient
}

func NewWebhookAchievements(baseURL string) *WebhookAchievements {
	return &WebhookAchievements{client: newWebhookClient(baseURL)}
}

func (a *WebhookAchievements) CheckAndAward(ctx context.Context, userID string, score int64) error {
	return a.client.post(ctx, "/achievements/check", map[string]interface{}{
		"user_id": userID,
		"score":   score,
	})
}

// WebhookFeatureGate applies feature unlocks and restrictions.
type WebhookFeatureGate struct {
	client *webhookClient
}

func NewWebhookFeatureGate(baseURL string) *WebhookFeatureGate {
	return &WebhookFeatureGate{client: newWebhookClient(baseURL)}
}

func (f *WebhookFeatureGate) Unlock(ctx context.Context, userID string, features []string) error {
	return f.client.post(ctx, "/features/unlock", map[string]interface{}{
		"user_id":  userID,
		"features": features,
	})
}

func (f *WebhookFeatureGate) Restrict(ctx context.Context, userID string, features []string) error {
	return f.client.post(ctx, "/features/restrict", map[string]interface{}{
		"user_id":  userID,
		"features": features,
	})
}

// LogAlertService surfaces critical faults through the structured log
// stream, where the external monitoring stack picks them up.
type LogAlertService struct{}

func NewLogAlertService() *LogAlertService {
	return &LogAlertService{}
}

func (LogAlertService) Alert(_ context.Context, component string, err error, details map[string]interface{}) {
	log := gologger.WithComponent(component)
	event := log.Error().Err(err).Bool("alert", true)
	for key, value := range details {
		event = event.Interface(key, value)
	}
	event.Msg("Critical pipeline fault")
}
