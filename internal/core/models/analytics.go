package models

import (
	"time"

	"github.com/google/uuid"
)

// UserDayStat is the per-user slice of a daily snapshot: the user's net
// score for the day plus the gross points awarded and deducted. The
// incremental update path recomputes and replaces exactly one of these
// entries, so redelivered events never double-count.
type UserDayStat struct {
	Score    int64 `json:"score"`
	Awarded  int64 `json:"awarded"`
	Deducted int64 `json:"deducted"`
}

// ScoreBucket is one of exactly five histogram buckets partitioning the
// per-user daily scores. Bucket boundaries mirror the level threshold
// table, so bucket counts always sum to TotalUsers.
type ScoreBucket struct {
	Label string `json:"label"`
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
	Count int    `json:"count"`
}

// TopPerformer is one of the up-to-ten highest daily scorers.
type TopPerformer struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
}

// AnalyticsSnapshot is the global derived view for one calendar date.
// UserDayStats is the aggregate source all other fields derive from;
// callers never mutate a snapshot directly.
type AnalyticsSnapshot struct {
	ID                  uuid.UUID               `json:"id" gorm:"type:uuid;primaryKey"`
	SnapshotDate        time.Time               `json:"snapshot_date" gorm:"not null;uniqueIndex"`
	TotalUsers          int                     `json:"total_users" gorm:"type:int;default:0"`
	AverageScore        float64                 `json:"average_score" gorm:"type:decimal(12,4);default:0"`
	LevelDistribution   map[ReputationLevel]int `json:"level_distribution" gorm:"serializer:json;type:text"`
	ScoreBuckets        []ScoreBucket           `json:"score_buckets" gorm:"serializer:json;type:text"`
	TopPerformers       []TopPerformer          `json:"top_performers" gorm:"serializer:json;type:text"`
	TotalPointsAwarded  int64                   `json:"total_points_awarded" gorm:"type:bigint;default:0"`
	TotalPointsDeducted int64                   `json:"total_points_deducted" gorm:"type:bigint;default:0"`
	UserDayStats        map[string]UserDayStat  `json:"user_day_stats" gorm:"serializer:json;type:text"`
	CreatedAt           time.Time               `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time               `json:"updated_at" gorm:"autoUpdateTime"`
}

// SnapshotDay truncates a timestamp to its UTC calendar date.
func SnapshotDay(t time.Time) time.Time {
	d := t.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// HealthMetrics is the cached pipeline health aggregate.
type HealthMetrics struct {
	TotalUsers        int                     `json:"total_users"`
	AverageScore      float64                 `json:"average_score"`
	LevelDistribution map[ReputationLevel]int `json:"level_distribution"`
	GeneratedAt       time.Time               `json:"generated_at"`
}
