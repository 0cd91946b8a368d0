package services

import (
	"context"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/ports"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// Feature sets applied on level transitions. Upward transitions into the
// trusted tiers unlock privileges; downward transitions into the
// restricted tiers revoke them.
var (
	trustedFeatures   = []string{"instant_listing", "reduced_fees", "priority_support"}
	exemplaryFeatures = []string{"instant_listing", "reduced_fees", "priority_support", "beta_access", "fee_free_promotions"}
	restrictedLimits  = []string{"listing", "messaging", "bidding"}
	probationLimits   = []string{"listing"}
)

// LevelClassifier maps scores onto levels using the shared threshold table
// and applies side effects when a refresh crosses a level boundary.
// Classification itself is pure; only HandleTransition touches
// collaborators.
type LevelClassifier struct {
	notifier    ports.NotificationService
	featureGate ports.FeatureGateService
}

func NewLevelClassifier(notifier ports.NotificationService, featureGate ports.FeatureGateService) *LevelClassifier {
	return &LevelClassifier{
		notifier:    notifier,
		featureGate: featureGate,
	}
}

// LevelFor returns the level for a total score.
func (c *LevelClassifier) LevelFor(score int64) models.ReputationLevel {
	return models.LevelForScore(score)
}

// HandleTransition fires the side effects for a level change detected by a
// summary refresh. Transitions are computed once per refresh, never
// inferred from the event type: a gain can leave the level unchanged, in
// which case this is never called. Collaborator failures are logged and
// swallowed; side effects must not fail the refresh.
func (c *LevelClassifier) HandleTransition(ctx context.Context, userID string, previous, current models.ReputationLevel) {
	log := gologger.WithComponent("level_classifier")

	if previous == current {
		return
	}

	upward := models.LevelRank(current) > models.LevelRank(previous)

	log.Info().
		Str("user_id", userID).
		Str("previous_level", string(previous)).
		Str("new_level", string(current)).
		Bool("upward", upward).
		Msg("Level transition detected")

	if upward && (current == models.LevelTrusted || current == models.LevelExemplary) {
		features := trustedFeatures
		if current == models.LevelExemplary {
			features = exemplaryFeatures
		}

		if err := c.notifier.NotifyLevelChange(ctx, userID, map[string]interface{}{
			"milestone": string(current),
			"previous":  string(previous),
		}); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to send milestone notification")
		}

		if err := c.featureGate.Unlock(ctx, userID, features); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to unlock features")
		}
		return
	}

	if !upward && (current == models.LevelRestricted || current == models.LevelProbation) {
		limits := probationLimits
		if current == models.LevelRestricted {
			limits = restrictedLimits
		}

		if err := c.featureGate.Restrict(ctx, userID, limits); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to restrict features")
		}
	}
}
