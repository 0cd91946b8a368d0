package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/ports"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// EventProcessor is the pipeline root: it resolves an inbound delivery
// against the event log, dispatches by event type, and fans out to the
// derived views and external collaborators.
//
// Deliveries come from an at-least-once queue, so processing must tolerate
// redelivery: a lookup miss is treated as already-processed and succeeds
// as a no-op, and every downstream step is idempotent or staleness-gated.
type EventProcessor struct {
	eventRepo    ports.ReputationEventRepository
	refresher    *SummaryRefresher
	classifier   *LevelClassifier
	leaderboards *LeaderboardCalculator
	analytics    *AnalyticsService
	notifier     ports.NotificationService
	moderation   ports.ModerationService
	achievements ports.AchievementService
	sampler      SamplingPolicy
	jobTimeout   time.Duration
}

func NewEventProcessor(
	eventRepo ports.ReputationEventRepository,
	refresher *SummaryRefresher,
	classifier *LevelClassifier,
	leaderboards *LeaderboardCalculator,
	analytics *AnalyticsService,
	notifier ports.NotificationService,
	moderation ports.ModerationService,
	achievements ports.AchievementService,
	sampler SamplingPolicy,
	jobTimeout time.Duration,
) *EventProcessor {
	return &EventProcessor{
		eventRepo:    eventRepo,
		refresher:    refresher,
		classifier:   classifier,
		leaderboards: leaderboards,
		analytics:    analytics,
		notifier:     notifier,
		moderation:   moderation,
		achievements: achievements,
		sampler:      sampler,
		jobTimeout:   jobTimeout,
	}
}

// ProcessEvent handles one queue delivery. Validation problems (unknown
// type, missing event) are logged no-ops so they cannot poison the queue;
// refresh failures are logged with full context and returned so the
// queue's retry policy applies. There is no local retry here.
func (p *EventProcessor) ProcessEvent(ctx context.Context, eventID uuid.UUID, eventType, userID string, metadata map[string]interface{}) error {
	log := gologger.WithComponent("event_processor")

	parsedType := models.ParseEventType(eventType)
	if parsedType == models.EventTypeUnknown {
		log.Warn().
			Str("event_id", eventID.String()).
			Str("event_type", eventType).
			Str("user_id", userID).
			Msg("Unknown event type, skipping")
		return nil
	}

	event, err := p.eventRepo.GetByIDAndType(ctx, eventID, parsedType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Already processed or invalid; succeeding keeps redeliveries cheap.
		log.Debug().
			Str("event_id", eventID.String()).
			Str("event_type", string(parsedType)).
			Msg("Event not found, treating as processed")
		return nil
	}
	if err != nil {
		log.Error().Err(err).
			Str("event_id", eventID.String()).
			Str("event_type", string(parsedType)).
			Str("user_id", userID).
			Msg("Failed to look up event")
		return fmt.Errorf("failed to look up event %s: %w", eventID, err)
	}

	if userID != "" && userID != event.UserID {
		log.Warn().
			Str("event_id", eventID.String()).
			Str("delivered_user_id", userID).
			Str("event_user_id", event.UserID).
			Msg("Delivery user mismatch, using event's user")
	}

	summary, err := p.refresher.Refresh(ctx, event.UserID)
	if err != nil {
		log.Error().Err(err).
			Str("event_id", eventID.String()).
			Str("event_type", string(parsedType)).
			Str("user_id", event.UserID).
			Msg("Summary refresh failed")
		return fmt.Errorf("failed to refresh summary for event %s: %w", eventID, err)
	}

	switch parsedType {
	case models.EventTypeGained:
		p.handleGained(ctx, event, summary)
	case models.EventTypeLost:
		p.handleLost(ctx, event, summary)
	case models.EventTypeReset:
		p.handleReset(ctx, event, summary, metadata)
	case models.EventTypeLevelChanged:
		p.handleLevelChanged(ctx, event, summary)
	}

	p.queueAnalyticsUpdate(event)
	p.leaderboards.RefreshForEvent(ctx, event.CreatedAt)

	return nil
}

func (p *EventProcessor) handleGained(ctx context.Context, event *models.ReputationEvent, summary *models.UserReputationSummary) {
	log := gologger.WithComponent("event_processor")

	if err := p.notifier.NotifyGain(ctx, event.UserID, map[string]interface{}{
		"points": event.PointsChange,
		"reason": event.Reason,
		"score":  summary.TotalScore,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", event.UserID).Msg("Gain notification failed")
	}

	if err := p.achievements.CheckAndAward(ctx, event.UserID, summary.TotalScore); err != nil {
		log.Warn().Err(err).Str("user_id", event.UserID).Msg("Achievement check failed")
	}
}

func (p *EventProcessor) handleLost(ctx context.Context, event *models.ReputationEvent, summary *models.UserReputationSummary) {
	log := gologger.WithComponent("event_processor")

	if err := p.notifier.NotifyLoss(ctx, event.UserID, map[string]interface{}{
		"points": event.PointsChange,
		"reason": event.Reason,
		"score":  summary.TotalScore,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", event.UserID).Msg("Loss notification failed")
	}

	if event.Severity == models.SeverityHigh {
		if err := p.moderation.OpenTicket(ctx, event.UserID, event.Severity, map[string]interface{}{
			"event_id":       event.ID.String(),
			"reason":         event.Reason,
			"violation_type": event.ViolationType,
			"points":         event.PointsChange,
		}); err != nil {
			log.Error().Err(err).
				Str("user_id", event.UserID).
				Str("event_id", event.ID.String()).
				Msg("Failed to open moderation ticket")
		}
	}
}

func (p *EventProcessor) handleReset(ctx context.Context, event *models.ReputationEvent, summary *models.UserReputationSummary, metadata map[string]interface{}) {
	log := gologger.WithComponent("event_processor")

	adminID := ""
	if v, ok := metadata["admin_id"].(string); ok {
		adminID = v
	}

	if err := p.notifier.NotifyReset(ctx, event.UserID, adminID, map[string]interface{}{
		"reason": event.Reason,
		"score":  summary.TotalScore,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", event.UserID).Msg("Reset notification failed")
	}
}

func (p *EventProcessor) handleLevelChanged(ctx context.Context, event *models.ReputationEvent, summary *models.UserReputationSummary) {
	log := gologger.WithComponent("event_processor")

	// Transition side effects already ran inside the refresh; this is the
	// plain informational notification for the explicit event.
	if err := p.notifier.NotifyLevelChange(ctx, event.UserID, map[string]interface{}{
		"level":  string(summary.Level),
		"reason": event.Reason,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", event.UserID).Msg("Level change notification failed")
	}
}

// queueAnalyticsUpdate kicks off a sampled, fire-and-forget incremental
// snapshot update, decoupled from the delivery so a slow merge never
// holds a queue worker.
func (p *EventProcessor) queueAnalyticsUpdate(event *models.ReputationEvent) {
	if !p.sampler.ShouldSample(event) {
		return
	}

	userID := event.UserID
	go func() {
		log := gologger.WithComponent("event_processor")

		ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
		defer cancel()

		if _, err := p.analytics.UpdateIncremental(ctx, userID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Incremental analytics update failed")
		}
	}()
}
