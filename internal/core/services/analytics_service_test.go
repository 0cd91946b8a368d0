package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

func newTestAnalytics(eventRepo *fakeEventRepo) (*AnalyticsService, *fakeAnalyticsRepo, *memCache) {
	analyticsRepo := newFakeAnalyticsRepo()
	cache := newMemCache()
	service := NewAnalyticsService(analyticsRepo, eventRepo, newFakeSummaryRepo(), cache, nil)
	return service, analyticsRepo, cache
}

func testDay() time.Time {
	return time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
}

func TestGenerateDailyAggregates(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(
		gainEvent("user-a", 60, day.Add(2*time.Hour)),
		gainEvent("user-a", 50, day.Add(3*time.Hour)),
		lossEvent("user-a", 20, models.SeverityNormal, day.Add(4*time.Hour)),
		gainEvent("user-b", 10, day.Add(5*time.Hour)),
		gainEvent("user-c", 999, day.AddDate(0, 0, 1)), // next day, excluded
	)
	service, _, _ := newTestAnalytics(eventRepo)

	snapshot, err := service.GenerateDaily(context.Background(), day.Add(10*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, day, snapshot.SnapshotDate)
	assert.Equal(t, 2, snapshot.TotalUsers)
	assert.Equal(t, int64(120), snapshot.TotalPointsAwarded)
	assert.Equal(t, int64(20), snapshot.TotalPointsDeducted)
	assert.InDelta(t, 50.0, snapshot.AverageScore, 0.001)

	assert.Equal(t, models.UserDayStat{Score: 90, Awarded: 110, Deducted: 20}, snapshot.UserDayStats["user-a"])
	assert.Equal(t, models.UserDayStat{Score: 10, Awarded: 10, Deducted: 0}, snapshot.UserDayStats["user-b"])
}

func TestGenerateDailyIsIdempotent(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 40, day.Add(time.Hour)))
	service, analyticsRepo, _ := newTestAnalytics(eventRepo)

	first, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)
	second, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, first.UserDayStats, second.UserDayStats)
	assert.Equal(t, first.TotalPointsAwarded, second.TotalPointsAwarded)
	assert.Equal(t, 1, analyticsRepo.createCalls)
	assert.Equal(t, 1, analyticsRepo.updateCalls)
}

func TestScoreBucketsPartitionAllUsers(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(
		lossEvent("user-a", 200, models.SeverityHigh, day.Add(time.Hour)), // -200
		lossEvent("user-b", 30, models.SeverityLow, day.Add(time.Hour)),   // -30
		gainEvent("user-c", 50, day.Add(time.Hour)),
		gainEvent("user-d", 300, day.Add(time.Hour)),
		gainEvent("user-e", 700, day.Add(time.Hour)),
	)
	service, _, _ := newTestAnalytics(eventRepo)

	snapshot, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	require.Len(t, snapshot.ScoreBuckets, 5)

	total := 0
	for _, bucket := range snapshot.ScoreBuckets {
		assert.Equal(t, 1, bucket.Count, "bucket %s", bucket.Label)
		total += bucket.Count
	}
	assert.Equal(t, snapshot.TotalUsers, total)

	// Bucket boundaries mirror the level table.
	assert.Equal(t, string(models.LevelRestricted), snapshot.ScoreBuckets[0].Label)
	assert.Equal(t, string(models.LevelExemplary), snapshot.ScoreBuckets[4].Label)
}

func TestLevelDistributionFromDailyScores(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(
		gainEvent("user-a", 10, day.Add(time.Hour)),
		gainEvent("user-b", 20, day.Add(time.Hour)),
		gainEvent("user-c", 600, day.Add(time.Hour)),
	)
	service, _, _ := newTestAnalytics(eventRepo)

	snapshot, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, 2, snapshot.LevelDistribution[models.LevelRegular])
	assert.Equal(t, 1, snapshot.LevelDistribution[models.LevelExemplary])
}

func TestTopPerformersCappedAtTen(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	for i := 0; i < 15; i++ {
		eventRepo.add(gainEvent(string(rune('a'+i)), int64(i+1), day.Add(time.Hour)))
	}
	service, _, _ := newTestAnalytics(eventRepo)

	snapshot, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	require.Len(t, snapshot.TopPerformers, 10)
	assert.Equal(t, int64(15), snapshot.TopPerformers[0].Score)
	assert.Equal(t, int64(6), snapshot.TopPerformers[9].Score)
}

func TestUpdateIncrementalMatchesFullRegenerate(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(
		gainEvent("user-a", 60, day.Add(time.Hour)),
		gainEvent("user-b", 25, day.Add(time.Hour)),
	)
	service, _, _ := newTestAnalytics(eventRepo)
	service.now = func() time.Time { return day.Add(2 * time.Hour) }

	_, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	// New events for both users land after the snapshot was built.
	eventRepo.add(
		lossEvent("user-a", 10, models.SeverityLow, day.Add(3*time.Hour)),
		gainEvent("user-b", 5, day.Add(3*time.Hour)),
	)

	_, err = service.UpdateIncremental(context.Background(), "user-a")
	require.NoError(t, err)
	incremental, err := service.UpdateIncremental(context.Background(), "user-b")
	require.NoError(t, err)

	// A fresh service regenerating from scratch must agree.
	control, _, _ := newTestAnalytics(eventRepo)
	full, err := control.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, full.UserDayStats, incremental.UserDayStats)
	assert.Equal(t, full.TotalUsers, incremental.TotalUsers)
	assert.Equal(t, full.AverageScore, incremental.AverageScore)
	assert.Equal(t, full.TotalPointsAwarded, incremental.TotalPointsAwarded)
	assert.Equal(t, full.TotalPointsDeducted, incremental.TotalPointsDeducted)
	assert.Equal(t, full.LevelDistribution, incremental.LevelDistribution)
}

func TestUpdateIncrementalIsIdempotentUnderRedelivery(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 60, day.Add(time.Hour)))
	service, _, _ := newTestAnalytics(eventRepo)
	service.now = func() time.Time { return day.Add(2 * time.Hour) }

	first, err := service.UpdateIncremental(context.Background(), "user-a")
	require.NoError(t, err)
	second, err := service.UpdateIncremental(context.Background(), "user-a")
	require.NoError(t, err)

	// Replace, never add: redelivery leaves the aggregate unchanged.
	assert.Equal(t, first.UserDayStats["user-a"], second.UserDayStats["user-a"])
	assert.Equal(t, int64(60), second.TotalPointsAwarded)
}

func TestUpdateIncrementalRegeneratesOnRollover(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, day.Add(time.Hour)))
	service, analyticsRepo, _ := newTestAnalytics(eventRepo)
	service.now = func() time.Time { return day.Add(2 * time.Hour) }

	_, err := service.UpdateIncremental(context.Background(), "user-a")
	require.NoError(t, err)

	// Cross midnight: no snapshot exists for the new date yet, so the
	// update falls back to a full regenerate of the new day.
	nextDay := day.AddDate(0, 0, 1)
	eventRepo.add(gainEvent("user-b", 30, nextDay.Add(time.Hour)))
	service.now = func() time.Time { return nextDay.Add(2 * time.Hour) }

	snapshot, err := service.UpdateIncremental(context.Background(), "user-b")
	require.NoError(t, err)

	assert.Equal(t, nextDay, snapshot.SnapshotDate)
	assert.Equal(t, 1, snapshot.TotalUsers)
	assert.NotContains(t, snapshot.UserDayStats, "user-a")
	assert.Equal(t, 2, analyticsRepo.createCalls)
}

func TestUpdateIncrementalRemovesUserWithNoEvents(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, day.Add(time.Hour)))
	service, _, _ := newTestAnalytics(eventRepo)
	service.now = func() time.Time { return day.Add(2 * time.Hour) }

	_, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	// A user with no events today contributes nothing.
	snapshot, err := service.UpdateIncremental(context.Background(), "user-z")
	require.NoError(t, err)
	assert.NotContains(t, snapshot.UserDayStats, "user-z")
	assert.Equal(t, 1, snapshot.TotalUsers)
}

func TestUpdateIncrementalCachesUserStat(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, day.Add(time.Hour)))
	service, _, cache := newTestAnalytics(eventRepo)
	service.now = func() time.Time { return day.Add(2 * time.Hour) }

	_, err := service.UpdateIncremental(context.Background(), "user-a")
	require.NoError(t, err)

	_, ok, err := cache.Get(context.Background(), "user_analytics:user-a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateIncrementalDropsCacheForUserWithNoEvents(t *testing.T) {
	day := testDay()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, day.Add(time.Hour)))
	service, _, cache := newTestAnalytics(eventRepo)
	service.now = func() time.Time { return day.Add(2 * time.Hour) }

	_, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)

	// Stale entry from an earlier day must not survive as a zero-value stat.
	require.NoError(t, cache.Set(context.Background(), "user_analytics:user-z", `{"points_gained":5}`, time.Hour))

	_, err = service.UpdateIncremental(context.Background(), "user-z")
	require.NoError(t, err)

	_, ok, err := cache.Get(context.Background(), "user_analytics:user-z")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetLatestReturnsNewestSnapshot(t *testing.T) {
	day := testDay()
	nextDay := day.AddDate(0, 0, 1)
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, day.Add(time.Hour)))
	eventRepo.add(gainEvent("user-b", 20, nextDay.Add(time.Hour)))
	service, _, _ := newTestAnalytics(eventRepo)

	_, err := service.GenerateDaily(context.Background(), day)
	require.NoError(t, err)
	_, err = service.GenerateDaily(context.Background(), nextDay)
	require.NoError(t, err)

	latest, err := service.GetLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, nextDay, latest.SnapshotDate)
	assert.Contains(t, latest.UserDayStats, "user-b")
}

func TestGetLatestWithoutSnapshots(t *testing.T) {
	service, _, _ := newTestAnalytics(&fakeEventRepo{})

	_, err := service.GetLatest(context.Background())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHealthMetricsCachedBetweenCalls(t *testing.T) {
	summaryRepo := newFakeSummaryRepo()
	require.NoError(t, summaryRepo.Save(context.Background(), &models.UserReputationSummary{
		UserID:     "user-a",
		TotalScore: 120,
		Level:      models.LevelTrusted,
	}))

	service := NewAnalyticsService(newFakeAnalyticsRepo(), &fakeEventRepo{}, summaryRepo, newMemCache(), nil)

	first, err := service.HealthMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalUsers)
	assert.Equal(t, 1, first.LevelDistribution[models.LevelTrusted])

	// The summary store changes, but the cached aggregate is served.
	require.NoError(t, summaryRepo.Save(context.Background(), &models.UserReputationSummary{
		UserID: "user-b",
		Level:  models.LevelRegular,
	}))

	second, err := service.HealthMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalUsers)
}
