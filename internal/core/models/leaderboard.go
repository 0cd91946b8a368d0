package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeaderboardType identifies the period family a leaderboard covers.
type LeaderboardType string

const (
	LeaderboardDaily   LeaderboardType = "daily"
	LeaderboardWeekly  LeaderboardType = "weekly"
	LeaderboardMonthly LeaderboardType = "monthly"
	LeaderboardAllTime LeaderboardType = "all_time"
)

// AllLeaderboardTypes lists every period family an event can touch.
var AllLeaderboardTypes = []LeaderboardType{
	LeaderboardDaily,
	LeaderboardWeekly,
	LeaderboardMonthly,
	LeaderboardAllTime,
}

// ParseLeaderboardType validates an inbound leaderboard type string.
func ParseLeaderboardType(s string) (LeaderboardType, error) {
	switch LeaderboardType(s) {
	case LeaderboardDaily, LeaderboardWeekly, LeaderboardMonthly, LeaderboardAllTime:
		return LeaderboardType(s), nil
	default:
		return "", fmt.Errorf("unknown leaderboard type: %s", s)
	}
}

// allTimeEnd is the sentinel period end for the unbounded all_time window.
var allTimeEnd = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// PeriodFor returns the [start, end] window of the given type that contains
// date. Bounds are UTC; weekly periods start on Monday.
func (t LeaderboardType) PeriodFor(date time.Time) (time.Time, time.Time) {
	d := date.UTC()
	switch t {
	case LeaderboardDaily:
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	case LeaderboardWeekly:
		weekday := int(d.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -(weekday - 1))
		return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	case LeaderboardMonthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	default:
		return time.Unix(0, 0).UTC(), allTimeEnd
	}
}

// Bounded reports whether the period restricts the event scan window.
func (t LeaderboardType) Bounded() bool {
	return t != LeaderboardAllTime
}

// RankingEntry is one row of a stored leaderboard: 1-based contiguous
// ranks, ordered by score descending with ties broken by ascending user ID.
type RankingEntry struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
	Rank   int    `json:"rank"`
}

// ReputationLeaderboard is the stored ranking for one (type, period) pair.
// Derived state: exclusively owned by the leaderboard calculator.
type ReputationLeaderboard struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	LeaderboardType   LeaderboardType `json:"leaderboard_type" gorm:"type:varchar(50);not null;uniqueIndex:idx_leaderboard_period"`
	PeriodStart       time.Time       `json:"period_start" gorm:"not null;uniqueIndex:idx_leaderboard_period"`
	PeriodEnd         time.Time       `json:"period_end" gorm:"not null"`
	Rankings          []RankingEntry  `json:"rankings" gorm:"serializer:json;type:text"`
	TotalParticipants int             `json:"total_participants" gorm:"type:int;default:0"`
	LastCalculatedAt  time.Time       `json:"last_calculated_at"`
	CreatedAt         time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// UserScore is a per-user aggregate produced by the ranking scan.
type UserScore struct {
	UserID string `json:"user_id"`
	Score  int64  `json:"score"`
}
