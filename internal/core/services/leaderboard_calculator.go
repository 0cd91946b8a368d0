package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/config"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/ports"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

const leaderboardCacheTTL = 15 * time.Minute

// LeaderboardCalculator maintains one ranking row per (type, period).
// Recomputation is staleness-gated: a ranking is rebuilt only when the
// stored row predates the newest event in its period or exceeds the
// per-type max age. This bounds recompute frequency under high event
// volume.
type LeaderboardCalculator struct {
	leaderboardRepo ports.LeaderboardRepository
	eventRepo       ports.ReputationEventRepository
	cache           ports.Cache
	topN            int
	maxAges         map[models.LeaderboardType]time.Duration
	now             func() time.Time
}

func NewLeaderboardCalculator(
	leaderboardRepo ports.LeaderboardRepository,
	eventRepo ports.ReputationEventRepository,
	cache ports.Cache,
	cfg config.ReputationConfig,
) *LeaderboardCalculator {
	maxAges := make(map[models.LeaderboardType]time.Duration)
	for name, age := range cfg.MaxAges() {
		maxAges[models.LeaderboardType(name)] = age
	}

	return &LeaderboardCalculator{
		leaderboardRepo: leaderboardRepo,
		eventRepo:       eventRepo,
		cache:           cache,
		topN:            cfg.TopN(),
		maxAges:         maxAges,
		now:             time.Now,
	}
}

// GetOrCalculate resolves the leaderboard row for the period of the given
// type containing date, creating an empty row when absent, and recomputes
// the ranking only when the row is stale.
func (c *LeaderboardCalculator) GetOrCalculate(ctx context.Context, leaderboardType models.LeaderboardType, date time.Time) (*models.ReputationLeaderboard, error) {
	log := gologger.WithComponent("leaderboard_calculator")

	periodStart, periodEnd := leaderboardType.PeriodFor(date)

	leaderboard, err := c.leaderboardRepo.GetByTypeAndPeriod(ctx, leaderboardType, periodStart)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		leaderboard = &models.ReputationLeaderboard{
			ID:              uuid.New(),
			LeaderboardType: leaderboardType,
			PeriodStart:     periodStart,
			PeriodEnd:       periodEnd,
			Rankings:        []models.RankingEntry{},
		}
		if err := c.leaderboardRepo.Create(ctx, leaderboard); err != nil {
			return nil, fmt.Errorf("failed to create %s leaderboard: %w", leaderboardType, err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load %s leaderboard: %w", leaderboardType, err)
	}

	stale, err := c.isStale(ctx, leaderboard)
	if err != nil {
		return nil, err
	}
	if !stale {
		return leaderboard, nil
	}

	if err := c.calculate(ctx, leaderboard); err != nil {
		return nil, err
	}

	log.Info().
		Str("type", string(leaderboardType)).
		Time("period_start", periodStart).
		Int("participants", leaderboard.TotalParticipants).
		Msg("Leaderboard recalculated")

	return leaderboard, nil
}

// RefreshForEvent marks every period family containing the event timestamp
// for conditional recompute. Failures only delay freshness, so they are
// logged and swallowed.
func (c *LeaderboardCalculator) RefreshForEvent(ctx context.Context, eventTime time.Time) {
	log := gologger.WithComponent("leaderboard_calculator")

	for _, leaderboardType := range models.AllLeaderboardTypes {
		if _, err := c.GetOrCalculate(ctx, leaderboardType, eventTime); err != nil {
			log.Warn().Err(err).
				Str("type", string(leaderboardType)).
				Time("event_time", eventTime).
				Msg("Failed to refresh leaderboard for event")
		}
	}
}

// isStale reports whether the stored ranking must be rebuilt: never
// calculated, older than the newest event in its period, or past the
// per-type max age ceiling.
func (c *LeaderboardCalculator) isStale(ctx context.Context, leaderboard *models.ReputationLeaderboard) (bool, error) {
	if leaderboard.LastCalculatedAt.IsZero() {
		return true, nil
	}

	if maxAge, ok := c.maxAges[leaderboard.LeaderboardType]; ok {
		if c.now().Sub(leaderboard.LastCalculatedAt) > maxAge {
			return true, nil
		}
	}

	latest, err := c.eventRepo.LatestEventTimeBetween(ctx, leaderboard.PeriodStart, leaderboard.PeriodEnd)
	if err != nil {
		return false, fmt.Errorf("failed to check latest event for %s leaderboard: %w", leaderboard.LeaderboardType, err)
	}

	return !latest.IsZero() && latest.After(leaderboard.LastCalculatedAt), nil
}

// calculate runs the full ranking pass for the period: per-user sums,
// descending by score with ties broken by ascending user ID, 1-based
// contiguous ranks, truncated to top-N for storage while the full distinct
// participant count is kept.
func (c *LeaderboardCalculator) calculate(ctx context.Context, leaderboard *models.ReputationLeaderboard) error {
	scores, err := c.eventRepo.SumPointsByUserBetween(ctx, leaderboard.PeriodStart, leaderboard.PeriodEnd)
	if err != nil {
		return fmt.Errorf("failed to aggregate scores for %s leaderboard: %w", leaderboard.LeaderboardType, err)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].UserID < scores[j].UserID
	})

	rankings := make([]models.RankingEntry, 0, min(len(scores), c.topN))
	for i, score := range scores {
		if i >= c.topN {
			break
		}
		rankings = append(rankings, models.RankingEntry{
			UserID: score.UserID,
			Score:  score.Score,
			Rank:   i + 1,
		})
	}

	leaderboard.Rankings = rankings
	leaderboard.TotalParticipants = len(scores)
	leaderboard.LastCalculatedAt = c.now()

	if err := c.leaderboardRepo.Update(ctx, leaderboard); err != nil {
		return fmt.Errorf("failed to save %s leaderboard: %w", leaderboard.LeaderboardType, err)
	}

	c.cacheRankings(ctx, leaderboard)

	return nil
}

// cacheRankings writes the stored top-N through to the short-TTL cache.
// The cached copy is advisory; the repository row stays authoritative.
func (c *LeaderboardCalculator) cacheRankings(ctx context.Context, leaderboard *models.ReputationLeaderboard) {
	log := gologger.WithComponent("leaderboard_calculator")

	payload, err := json.Marshal(leaderboard.Rankings)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal rankings for cache")
		return
	}

	key := fmt.Sprintf("leaderboard:%s:%s",
		leaderboard.LeaderboardType,
		leaderboard.PeriodStart.Format("2006-01-02"))

	if err := c.cache.Set(ctx, key, string(payload), leaderboardCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache leaderboard")
	}
}
