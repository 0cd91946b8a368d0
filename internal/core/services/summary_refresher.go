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

// SummaryRefresher rebuilds one user's derived aggregate from the event
// log. The recompute is always full: total score is the sum of every
// points_change for the user. Refreshes are idempotent and safe to race;
// concurrent refreshes each recompute from the log and the later write
// wins.
type SummaryRefresher struct {
	eventRepo   ports.ReputationEventRepository
	summaryRepo ports.SummaryRepository
	classifier  *LevelClassifier
	alerts      ports.AlertService
	now         func() time.Time
}

func NewSummaryRefresher(
	eventRepo ports.ReputationEventRepository,
	summaryRepo ports.SummaryRepository,
	classifier *LevelClassifier,
	alerts ports.AlertService,
) *SummaryRefresher {
	return &SummaryRefresher{
		eventRepo:   eventRepo,
		summaryRepo: summaryRepo,
		classifier:  classifier,
		alerts:      alerts,
		now:         time.Now,
	}
}

// Refresh recomputes the user's total score and level and persists the
// summary. Level transition side effects fire exactly once per refresh,
// after the new summary is saved.
func (r *SummaryRefresher) Refresh(ctx context.Context, userID string) (*models.UserReputationSummary, error) {
	log := gologger.WithComponent("summary_refresher")

	total, err := r.eventRepo.SumPointsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum events for user %s: %w", userID, err)
	}

	newLevel := r.classifier.LevelFor(total)

	var previousLevel models.ReputationLevel

	summary, err := r.summaryRepo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		summary = &models.UserReputationSummary{
			ID:     uuid.New(),
			UserID: userID,
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load summary for user %s: %w", userID, err)
	default:
		previousLevel = summary.Level
		r.checkIntegrity(ctx, summary, total)
	}

	summary.TotalScore = total
	summary.Level = newLevel
	summary.LastRefreshedAt = r.now()

	if err := r.summaryRepo.Save(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to save summary for user %s: %w", userID, err)
	}

	log.Debug().
		Str("user_id", userID).
		Int64("total_score", total).
		Str("level", string(newLevel)).
		Msg("Summary refreshed")

	if previousLevel != "" && previousLevel != newLevel {
		r.classifier.HandleTransition(ctx, userID, previousLevel, newLevel)
	}

	return summary, nil
}

// Get returns the current summary, refreshing first when none exists yet.
func (r *SummaryRefresher) Get(ctx context.Context, userID string) (*models.UserReputationSummary, error) {
	summary, err := r.summaryRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.Refresh(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary for user %s: %w", userID, err)
	}
	return summary, nil
}

// checkIntegrity flags derived-state corruption: a stored summary with a
// nonzero score for a user whose event log is empty cannot have been
// produced by a replay. The refresh still overwrites the bad row; the
// alert enables investigation and replay.
func (r *SummaryRefresher) checkIntegrity(ctx context.Context, summary *models.UserReputationSummary, recomputed int64) {
	if summary.TotalScore == 0 || recomputed != 0 {
		return
	}

	count, err := r.eventRepo.CountForUser(ctx, summary.UserID)
	if err != nil || count > 0 {
		return
	}

	log := gologger.WithComponent("summary_refresher")
	log.Error().
		Str("user_id", summary.UserID).
		Int64("stored_score", summary.TotalScore).
		Msg("Summary score has no backing events")

	r.alerts.Alert(ctx, "summary_refresher",
		fmt.Errorf("summary score %d has no backing events", summary.TotalScore),
		map[string]interface{}{"user_id": summary.UserID})
}
