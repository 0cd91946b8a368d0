package ports

import (
	"context"
	"time"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

// NotificationService delivers reputation notifications to users. All
// calls are fire-and-forget from the pipeline's point of view: failures
// are logged but never fail event processing.
type NotificationService interface {
	NotifyGain(ctx context.Context, userID string, payload map[string]interface{}) error
	NotifyLoss(ctx context.Context, userID string, payload map[string]interface{}) error
	NotifyReset(ctx context.Context, userID, adminID string, payload map[string]interface{}) error
	NotifyLevelChange(ctx context.Context, userID string, payload map[string]interface{}) error
}

// ModerationService opens escalation tickets for high severity losses.
type ModerationService interface {
	OpenTicket(ctx context.Context, userID string, severity models.Severity, details map[string]interface{}) error
}

// AchievementService checks score-threshold achievements after gains.
type AchievementService interface {
	CheckAndAward(ctx context.Context, userID string, score int64) error
}

// FeatureGateService applies level-transition side effects.
type FeatureGateService interface {
	Unlock(ctx context.Context, userID string, features []string) error
	Restrict(ctx context.Context, userID string, features []string) error
}

// AlertService surfaces critical, non-recoverable faults to external
// monitoring so the event can be replayed once the fault is fixed.
type AlertService interface {
	Alert(ctx context.Context, component string, err error, details map[string]interface{})
}

// Cache is the explicit cache port injected into components that keep
// short-TTL derived copies. Cached values are never a source of truth.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
