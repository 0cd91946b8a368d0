package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

// EventRepository is the gorm-backed event log. Append is the only write
// path; rows are never updated or deleted.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, event *models.ReputationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *EventRepository) GetByIDAndType(ctx context.Context, id uuid.UUID, eventType models.EventType) (*models.ReputationEvent, error) {
	var event models.ReputationEvent
	err := r.db.WithContext(ctx).
		Where("id = ? AND event_type = ?", id, eventType).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepository) SumPointsForUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ReputationEvent{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points_change), 0)").
		Scan(&total).Error
	return total, err
}

func (r *EventRepository) CountForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReputationEvent{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *EventRepository) ListForUserBetween(ctx context.Context, userID string, start, end time.Time) ([]*models.ReputationEvent, error) {
	var events []*models.ReputationEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at BETWEEN ? AND ?", userID, start, end).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *EventRepository) ListBetween(ctx context.Context, start, end time.Time) ([]*models.ReputationEvent, error) {
	var events []*models.ReputationEvent
	err := r.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

func (r *EventRepository) SumPointsByUserBetween(ctx context.Context, start, end time.Time) ([]models.UserScore, error) {
	var scores []models.UserScore
	err := r.db.WithContext(ctx).Model(&models.ReputationEvent{}).
		Select("user_id, COALESCE(SUM(points_change), 0) as score").
		Where("created_at BETWEEN ? AND ?", start, end).
		Group("user_id").
		Scan(&scores).Error
	return scores, err
}

func (r *EventRepository) LatestEventTimeBetween(ctx context.Context, start, end time.Time) (time.Time, error) {
	var latest *time.Time
	err := r.db.WithContext(ctx).Model(&models.ReputationEvent{}).
		Where("created_at BETWEEN ? AND ?", start, end).
		Select("MAX(created_at)").
		Scan(&latest).Error
	if err != nil || latest == nil {
		return time.Time{}, err
	}
	return *latest, nil
}
