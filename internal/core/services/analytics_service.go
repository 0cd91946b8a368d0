package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/ports"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

const (
	userAnalyticsCacheTTL = time.Hour
	healthMetricsCacheTTL = 5 * time.Minute
	healthMetricsCacheKey = "reputation_health_metrics"
	topPerformerCount     = 10
)

// AnalyticsService maintains the global daily snapshot. A date rollover
// triggers a full regenerate over that date's events; within a date only
// the changed user's slice of the aggregate is recomputed and replaced,
// so an update reads one user's events instead of rescanning the day.
//
// The incremental read-modify-write is the single required serialization
// point of the pipeline: a per-date mutex prevents two concurrent merges
// from losing updates.
type AnalyticsService struct {
	analyticsRepo ports.AnalyticsRepository
	eventRepo     ports.ReputationEventRepository
	summaryRepo   ports.SummaryRepository
	cache         ports.Cache
	archiver      SnapshotArchive
	dateLocks     sync.Map
	now           func() time.Time
}

// SnapshotArchive uploads finalized snapshots to long-term storage.
// Optional; a nil archive disables archival.
type SnapshotArchive interface {
	ArchiveSnapshot(ctx context.Context, snapshot *models.AnalyticsSnapshot) (string, error)
}

func NewAnalyticsService(
	analyticsRepo ports.AnalyticsRepository,
	eventRepo ports.ReputationEventRepository,
	summaryRepo ports.SummaryRepository,
	cache ports.Cache,
	archiver SnapshotArchive,
) *AnalyticsService {
	return &AnalyticsService{
		analyticsRepo: analyticsRepo,
		eventRepo:     eventRepo,
		summaryRepo:   summaryRepo,
		cache:         cache,
		archiver:      archiver,
		now:           time.Now,
	}
}

func (s *AnalyticsService) lockFor(day time.Time) *sync.Mutex {
	mu, _ := s.dateLocks.LoadOrStore(day.Format("2006-01-02"), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// GenerateDaily fully regenerates the snapshot for the given date (the
// current date when zero) by aggregating every event of that day.
func (s *AnalyticsService) GenerateDaily(ctx context.Context, date time.Time) (*models.AnalyticsSnapshot, error) {
	if date.IsZero() {
		date = s.now()
	}
	day := models.SnapshotDay(date)

	mu := s.lockFor(day)
	mu.Lock()
	defer mu.Unlock()

	return s.generateLocked(ctx, day)
}

func (s *AnalyticsService) generateLocked(ctx context.Context, day time.Time) (*models.AnalyticsSnapshot, error) {
	log := gologger.WithComponent("analytics_service")

	dayEnd := day.AddDate(0, 0, 1).Add(-time.Nanosecond)

	events, err := s.eventRepo.ListBetween(ctx, day, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for %s: %w", day.Format("2006-01-02"), err)
	}

	snapshot, err := s.analyticsRepo.GetByDate(ctx, day)
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		snapshot = &models.AnalyticsSnapshot{
			ID:           uuid.New(),
			SnapshotDate: day,
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", day.Format("2006-01-02"), err)
	}

	snapshot.UserDayStats = dayStatsFromEvents(events)
	s.derive(snapshot)

	if created {
		err = s.analyticsRepo.Create(ctx, snapshot)
	} else {
		err = s.analyticsRepo.Update(ctx, snapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist snapshot for %s: %w", day.Format("2006-01-02"), err)
	}

	log.Info().
		Time("snapshot_date", day).
		Int("total_users", snapshot.TotalUsers).
		Int("events", len(events)).
		Msg("Daily analytics snapshot generated")

	s.archive(snapshot)

	return snapshot, nil
}

// UpdateIncremental merges only the changed user's delta into the current
// date's snapshot. On a date rollover it falls back to a full regenerate.
// The user's day slice is recomputed from the log and replaced, never
// added, so redelivered events cannot double-count.
func (s *AnalyticsService) UpdateIncremental(ctx context.Context, userID string) (*models.AnalyticsSnapshot, error) {
	log := gologger.WithComponent("analytics_service")

	day := models.SnapshotDay(s.now())

	mu := s.lockFor(day)
	mu.Lock()
	defer mu.Unlock()

	snapshot, err := s.analyticsRepo.GetByDate(ctx, day)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Date rollover: no snapshot for today yet.
		snapshot, err = s.generateLocked(ctx, day)
		if err != nil {
			return nil, err
		}
		s.cacheOrInvalidateUserStat(ctx, userID, snapshot)
		return snapshot, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", day.Format("2006-01-02"), err)
	}

	dayEnd := day.AddDate(0, 0, 1).Add(-time.Nanosecond)

	events, err := s.eventRepo.ListForUserBetween(ctx, userID, day, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for user %s: %w", userID, err)
	}

	if snapshot.UserDayStats == nil {
		snapshot.UserDayStats = make(map[string]models.UserDayStat)
	}

	if len(events) == 0 {
		delete(snapshot.UserDayStats, userID)
	} else {
		stats := dayStatsFromEvents(events)
		snapshot.UserDayStats[userID] = stats[userID]
	}

	s.derive(snapshot)

	if err := s.analyticsRepo.Update(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot for %s: %w", day.Format("2006-01-02"), err)
	}

	s.cacheOrInvalidateUserStat(ctx, userID, snapshot)

	log.Debug().
		Str("user_id", userID).
		Time("snapshot_date", day).
		Int("total_users", snapshot.TotalUsers).
		Msg("Analytics snapshot updated incrementally")

	return snapshot, nil
}

// GetDaily returns the stored snapshot for a date without regenerating.
func (s *AnalyticsService) GetDaily(ctx context.Context, date time.Time) (*models.AnalyticsSnapshot, error) {
	if date.IsZero() {
		date = s.now()
	}
	return s.analyticsRepo.GetByDate(ctx, models.SnapshotDay(date))
}

// GetLatest returns the most recently generated snapshot regardless of date.
func (s *AnalyticsService) GetLatest(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	return s.analyticsRepo.GetLatest(ctx)
}

// HealthMetrics returns the cached pipeline health aggregate, recomputing
// from the summary store on a cache miss.
func (s *AnalyticsService) HealthMetrics(ctx context.Context) (*models.HealthMetrics, error) {
	log := gologger.WithComponent("analytics_service")

	if cached, ok, err := s.cache.Get(ctx, healthMetricsCacheKey); err == nil && ok {
		var metrics models.HealthMetrics
		if err := json.Unmarshal([]byte(cached), &metrics); err == nil {
			return &metrics, nil
		}
	}

	metrics, err := s.summaryRepo.HealthStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute health metrics: %w", err)
	}
	metrics.GeneratedAt = s.now()

	if payload, err := json.Marshal(metrics); err == nil {
		if err := s.cache.Set(ctx, healthMetricsCacheKey, string(payload), healthMetricsCacheTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to cache health metrics")
		}
	}

	return metrics, nil
}

// derive recomputes every derived field of a snapshot from its per-user
// day stats. Buckets share the level threshold table, so bucket counts
// always sum to TotalUsers.
func (s *AnalyticsService) derive(snapshot *models.AnalyticsSnapshot) {
	var scoreSum, awarded, deducted int64

	distribution := make(map[models.ReputationLevel]int)
	performers := make([]models.TopPerformer, 0, len(snapshot.UserDayStats))

	for userID, stat := range snapshot.UserDayStats {
		scoreSum += stat.Score
		awarded += stat.Awarded
		deducted += stat.Deducted
		distribution[models.LevelForScore(stat.Score)]++
		performers = append(performers, models.TopPerformer{UserID: userID, Score: stat.Score})
	}

	sort.Slice(performers, func(i, j int) bool {
		if performers[i].Score != performers[j].Score {
			return performers[i].Score > performers[j].Score
		}
		return performers[i].UserID < performers[j].UserID
	})
	if len(performers) > topPerformerCount {
		performers = performers[:topPerformerCount]
	}

	snapshot.TotalUsers = len(snapshot.UserDayStats)
	if snapshot.TotalUsers > 0 {
		snapshot.AverageScore = float64(scoreSum) / float64(snapshot.TotalUsers)
	} else {
		snapshot.AverageScore = 0
	}
	snapshot.LevelDistribution = distribution
	snapshot.ScoreBuckets = buildScoreBuckets(snapshot.UserDayStats)
	snapshot.TopPerformers = performers
	snapshot.TotalPointsAwarded = awarded
	snapshot.TotalPointsDeducted = deducted
}

// cacheOrInvalidateUserStat keeps the per-user cache entry in step with the
// snapshot: users with a day slice get it cached, users without one get the
// stale entry dropped rather than a zero-value stat written.
func (s *AnalyticsService) cacheOrInvalidateUserStat(ctx context.Context, userID string, snapshot *models.AnalyticsSnapshot) {
	if stat, ok := snapshot.UserDayStats[userID]; ok {
		s.cacheUserStat(ctx, userID, stat)
		return
	}

	key := fmt.Sprintf("user_analytics:%s", userID)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		log := gologger.WithComponent("analytics_service")
		log.Warn().Err(err).Str("key", key).Msg("Failed to invalidate user analytics")
	}
}

func (s *AnalyticsService) cacheUserStat(ctx context.Context, userID string, stat models.UserDayStat) {
	log := gologger.WithComponent("analytics_service")

	payload, err := json.Marshal(stat)
	if err != nil {
		return
	}

	key := fmt.Sprintf("user_analytics:%s", userID)
	if err := s.cache.Set(ctx, key, string(payload), userAnalyticsCacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache user analytics")
	}
}

func (s *AnalyticsService) archive(snapshot *models.AnalyticsSnapshot) {
	if s.archiver == nil {
		return
	}

	snap := *snapshot
	go func() {
		log := gologger.WithComponent("analytics_service")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		key, err := s.archiver.ArchiveSnapshot(ctx, &snap)
		if err != nil {
			log.Warn().Err(err).
				Time("snapshot_date", snap.SnapshotDate).
				Msg("Failed to archive analytics snapshot")
			return
		}

		log.Debug().Str("key", key).Msg("Analytics snapshot archived")
	}()
}

// dayStatsFromEvents folds a slice of events into per-user day stats.
func dayStatsFromEvents(events []*models.ReputationEvent) map[string]models.UserDayStat {
	stats := make(map[string]models.UserDayStat, len(events))
	for _, event := range events {
		stat := stats[event.UserID]
		stat.Score += event.PointsChange
		if event.PointsChange > 0 {
			stat.Awarded += event.PointsChange
		} else {
			stat.Deducted += -event.PointsChange
		}
		stats[event.UserID] = stat
	}
	return stats
}

// buildScoreBuckets partitions per-user daily scores into the five buckets
// defined by the shared level threshold table.
func buildScoreBuckets(stats map[string]models.UserDayStat) []models.ScoreBucket {
	thresholds := models.LevelThresholds()

	buckets := make([]models.ScoreBucket, len(thresholds))
	for i, threshold := range thresholds {
		buckets[i] = models.ScoreBucket{
			Label: string(threshold.Level),
			Min:   threshold.Min,
			Max:   threshold.Max,
		}
	}

	for _, stat := range stats {
		for i := range buckets {
			if stat.Score >= buckets[i].Min && stat.Score <= buckets[i].Max {
				buckets[i].Count++
				break
			}
		}
	}

	return buckets
}
