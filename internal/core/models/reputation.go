package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// ReputationEvent is an immutable, append-only record of a reputation
// affecting action. All derived state (summaries, leaderboards, analytics)
// must be reproducible by replaying these rows.
type ReputationEvent struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        string    `json:"user_id" gorm:"type:varchar(255);not null;index"`
	EventType     EventType `json:"event_type" gorm:"type:varchar(50);not null;index"`
	PointsChange  int64     `json:"points_change" gorm:"type:bigint;not null"`
	Reason        string    `json:"reason" gorm:"type:text"`
	ViolationType string    `json:"violation_type,omitempty" gorm:"type:varchar(100)"`
	Severity      Severity  `json:"severity,omitempty" gorm:"type:varchar(50)"`
	SourceType    string    `json:"source_type,omitempty" gorm:"type:varchar(100)"`
	SourceID      string    `json:"source_id,omitempty" gorm:"type:varchar(255)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

// UserReputationSummary is the derived aggregate for one user. It is
// exclusively owned by the summary refresher and never hand-edited; at any
// quiescent point TotalScore equals the sum of the user's event deltas.
type UserReputationSummary struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          string          `json:"user_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	TotalScore      int64           `json:"total_score" gorm:"type:bigint;not null;default:0"`
	Level           ReputationLevel `json:"level" gorm:"type:varchar(50);not null"`
	LastRefreshedAt time.Time       `json:"last_refreshed_at"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// EventType is the closed set of reputation event kinds. Unknown is a
// first-class variant so that unrecognized inbound types never fail the
// pipeline.
type EventType string

const (
	EventTypeGained       EventType = "gained"
	EventTypeLost         EventType = "lost"
	EventTypeReset        EventType = "reset"
	EventTypeLevelChanged EventType = "level_changed"
	EventTypeUnknown      EventType = "unknown"
)

// ParseEventType maps an inbound type string onto the closed enum.
func ParseEventType(s string) EventType {
	switch EventType(s) {
	case EventTypeGained, EventTypeLost, EventTypeReset, EventTypeLevelChanged:
		return EventType(s)
	default:
		return EventTypeUnknown
	}
}

// Severity of a reputation loss. High severity losses open a moderation
// escalation in addition to the user notification.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityNormal Severity = "normal"
	SeverityHigh   Severity = "high"
)

// ReputationLevel buckets a total score into a standing tier.
type ReputationLevel string

const (
	LevelRestricted ReputationLevel = "Restricted"
	LevelProbation  ReputationLevel = "Probation"
	LevelRegular    ReputationLevel = "Regular"
	LevelTrusted    ReputationLevel = "Trusted"
	LevelExemplary  ReputationLevel = "Exemplary"
)

// BaselineScore is the score a summary returns to after a reset event is
// appended. Reset events carry the delta that brings the running sum back
// to this baseline, so replaying the log stays the single source of truth.
const BaselineScore int64 = 0

// LevelThreshold is one row of the shared level table: the inclusive score
// range [Min, Max] that maps to a level.
type LevelThreshold struct {
	Level ReputationLevel
	Min   int64
	Max   int64
}

// levelThresholds is the single threshold table shared by the level
// classifier and the analytics score bucketing. Ranges are non-overlapping
// and exhaustive over the integer line.
var levelThresholds = []LevelThreshold{
	{Level: LevelRestricted, Min: math.MinInt64, Max: -51},
	{Level: LevelProbation, Min: -50, Max: 0},
	{Level: LevelRegular, Min: 1, Max: 100},
	{Level: LevelTrusted, Min: 101, Max: 500},
	{Level: LevelExemplary, Min: 501, Max: math.MaxInt64},
}

// LevelThresholds returns the shared threshold table in ascending order.
func LevelThresholds() []LevelThreshold {
	out := make([]LevelThreshold, len(levelThresholds))
	copy(out, levelThresholds)
	return out
}

// LevelForScore maps a total score onto its reputation level.
func LevelForScore(score int64) ReputationLevel {
	for _, t := range levelThresholds {
		if score >= t.Min && score <= t.Max {
			return t.Level
		}
	}
	// Unreachable: the table is exhaustive.
	return LevelRegular
}

// LevelRank orders levels from lowest standing to highest. Used to decide
// whether a transition is upward or downward.
func LevelRank(level ReputationLevel) int {
	for i, t := range levelThresholds {
		if t.Level == level {
			return i
		}
	}
	return -1
}
