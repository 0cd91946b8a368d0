package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

// ReputationEventRepository is the event log port. Append is the only
// write path; every other method is a read over the immutable log.
type ReputationEventRepository interface {
	Append(ctx context.Context, event *models.ReputationEvent) error
	GetByIDAndType(ctx context.Context, id uuid.UUID, eventType models.EventType) (*models.ReputationEvent, error)
	SumPointsForUser(ctx context.Context, userID string) (int64, error)
	ListForUserBetween(ctx context.Context, userID string, start, end time.Time) ([]*models.ReputationEvent, error)
	ListBetween(ctx context.Context, start, end time.Time) ([]*models.ReputationEvent, error)
	SumPointsByUserBetween(ctx context.Context, start, end time.Time) ([]models.UserScore, error)
	LatestEventTimeBetween(ctx context.Context, start, end time.Time) (time.Time, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
}

// SummaryRepository persists the derived per-user aggregates.
type SummaryRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserReputationSummary, error)
	Save(ctx context.Context, summary *models.UserReputationSummary) error
	HealthStats(ctx context.Context) (*models.HealthMetrics, error)
}

// LeaderboardRepository persists one ranking row per (type, period).
type LeaderboardRepository interface {
	GetByTypeAndPeriod(ctx context.Context, leaderboardType models.LeaderboardType, periodStart time.Time) (*models.ReputationLeaderboard, error)
	Create(ctx context.Context, leaderboard *models.ReputationLeaderboard) error
	Update(ctx context.Context, leaderboard *models.ReputationLeaderboard) error
	ListAll(ctx context.Context) ([]*models.ReputationLeaderboard, error)
}

// AnalyticsRepository persists one snapshot row per calendar date.
type AnalyticsRepository interface {
	GetByDate(ctx context.Context, date time.Time) (*models.AnalyticsSnapshot, error)
	GetLatest(ctx context.Context) (*models.AnalyticsSnapshot, error)
	Create(ctx context.Context, snapshot *models.AnalyticsSnapshot) error
	Update(ctx context.Context, snapshot *models.AnalyticsSnapshot) error
}
