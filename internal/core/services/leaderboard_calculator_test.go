package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/config"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

func newTestCalculator(eventRepo *fakeEventRepo) (*LeaderboardCalculator, *fakeLeaderboardRepo, *memCache) {
	leaderboardRepo := newFakeLeaderboardRepo()
	cache := newMemCache()
	calculator := NewLeaderboardCalculator(leaderboardRepo, eventRepo, cache, config.ReputationConfig{})
	return calculator, leaderboardRepo, cache
}

func TestGetOrCalculateRankingOrder(t *testing.T) {
	now := time.Now().UTC()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(
		gainEvent("user-a", 50, now),
		gainEvent("user-b", 80, now),
		gainEvent("user-c", 80, now),
		lossEvent("user-d", 10, models.SeverityLow, now),
	)
	calculator, _, _ := newTestCalculator(eventRepo)

	leaderboard, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, now)
	require.NoError(t, err)

	require.Len(t, leaderboard.Rankings, 4)
	assert.Equal(t, 4, leaderboard.TotalParticipants)

	// Descending by score, ties broken by ascending user ID, contiguous
	// 1-based ranks.
	assert.Equal(t, "user-b", leaderboard.Rankings[0].UserID)
	assert.Equal(t, "user-c", leaderboard.Rankings[1].UserID)
	assert.Equal(t, "user-a", leaderboard.Rankings[2].UserID)
	assert.Equal(t, "user-d", leaderboard.Rankings[3].UserID)
	for i, entry := range leaderboard.Rankings {
		assert.Equal(t, i+1, entry.Rank)
	}
}

func TestGetOrCalculateTruncatesToTopN(t *testing.T) {
	now := time.Now().UTC()
	eventRepo := &fakeEventRepo{}
	for i := 0; i < 150; i++ {
		eventRepo.add(gainEvent(fmt.Sprintf("user-%03d", i), int64(i+1), now))
	}
	calculator, _, _ := newTestCalculator(eventRepo)

	leaderboard, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, now)
	require.NoError(t, err)

	assert.Len(t, leaderboard.Rankings, 100)
	assert.Equal(t, 150, leaderboard.TotalParticipants)
	assert.Equal(t, "user-149", leaderboard.Rankings[0].UserID)
}

func TestGetOrCalculateSkipsFreshRow(t *testing.T) {
	now := time.Now().UTC()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, now))
	calculator, leaderboardRepo, _ := newTestCalculator(eventRepo)

	_, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, now)
	require.NoError(t, err)
	updates := leaderboardRepo.updateCalls
	sums := eventRepo.sumByUserCalls

	// Same period, no newer events, within max age: no recompute.
	_, err = calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, now)
	require.NoError(t, err)
	assert.Equal(t, updates, leaderboardRepo.updateCalls)
	assert.Equal(t, sums, eventRepo.sumByUserCalls)
}

func TestGetOrCalculateRecomputesAfterNewEvent(t *testing.T) {
	now := time.Now().UTC()
	day := models.SnapshotDay(now).Add(6 * time.Hour)
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, day))
	calculator, _, _ := newTestCalculator(eventRepo)
	calculator.now = func() time.Time { return day }

	_, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, day)
	require.NoError(t, err)

	// An event newer than the last calculation makes the row stale.
	eventRepo.add(gainEvent("user-b", 99, day.Add(time.Minute)))
	calculator.now = func() time.Time { return day.Add(2 * time.Minute) }

	leaderboard, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, day)
	require.NoError(t, err)
	require.Len(t, leaderboard.Rankings, 2)
	assert.Equal(t, "user-b", leaderboard.Rankings[0].UserID)
}

func TestGetOrCalculateRecomputesPastMaxAge(t *testing.T) {
	now := time.Now().UTC()
	day := models.SnapshotDay(now).Add(6 * time.Hour)
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, day))
	calculator, leaderboardRepo, _ := newTestCalculator(eventRepo)
	calculator.now = func() time.Time { return day }

	_, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, day)
	require.NoError(t, err)
	updates := leaderboardRepo.updateCalls

	// Past the daily max age the row is stale even with no new events.
	calculator.now = func() time.Time { return day.Add(10 * time.Minute) }
	_, err = calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, day)
	require.NoError(t, err)
	assert.Equal(t, updates+1, leaderboardRepo.updateCalls)
}

func TestAllTimePeriodSpansEverything(t *testing.T) {
	now := time.Now().UTC()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(
		gainEvent("user-a", 10, now.AddDate(-1, 0, 0)),
		gainEvent("user-a", 5, now),
	)
	calculator, _, _ := newTestCalculator(eventRepo)

	leaderboard, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardAllTime, now)
	require.NoError(t, err)

	require.Len(t, leaderboard.Rankings, 1)
	assert.Equal(t, int64(15), leaderboard.Rankings[0].Score)
}

func TestDailyPeriodExcludesOtherDays(t *testing.T) {
	now := time.Now().UTC()
	day := models.SnapshotDay(now).Add(12 * time.Hour)
	eventRepo := &fakeEventRepo{}
	eventRepo.add(
		gainEvent("user-a", 10, day),
		gainEvent("user-a", 99, day.AddDate(0, 0, -1)),
	)
	calculator, _, _ := newTestCalculator(eventRepo)

	leaderboard, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, day)
	require.NoError(t, err)

	require.Len(t, leaderboard.Rankings, 1)
	assert.Equal(t, int64(10), leaderboard.Rankings[0].Score)
}

func TestCalculateWritesThroughCache(t *testing.T) {
	now := time.Now().UTC()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, now))
	calculator, _, cache := newTestCalculator(eventRepo)

	leaderboard, err := calculator.GetOrCalculate(context.Background(), models.LeaderboardDaily, now)
	require.NoError(t, err)

	key := fmt.Sprintf("leaderboard:daily:%s", leaderboard.PeriodStart.Format("2006-01-02"))
	_, ok, err := cache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshForEventTouchesAllTypes(t *testing.T) {
	now := time.Now().UTC()
	eventRepo := &fakeEventRepo{}
	eventRepo.add(gainEvent("user-a", 10, now))
	calculator, leaderboardRepo, _ := newTestCalculator(eventRepo)

	calculator.RefreshForEvent(context.Background(), now)

	rows, err := leaderboardRepo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, len(models.AllLeaderboardTypes))
}

func TestWeeklyPeriodStartsMonday(t *testing.T) {
	// 2026-08-27 is a Thursday; its week starts Monday 2026-08-24.
	date := time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC)
	start, end := models.LeaderboardWeekly.PeriodFor(date)

	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Weekday(time.Monday), start.Weekday())
	assert.True(t, end.After(date))

	// A Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	sundayStart, _ := models.LeaderboardWeekly.PeriodFor(sunday)
	assert.Equal(t, start, sundayStart)
}
