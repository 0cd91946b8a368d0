package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

type SummaryRepository struct {
	db *gorm.DB
}

func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) GetByUserID(ctx context.Context, userID string) (*models.UserReputationSummary, error) {
	var summary models.UserReputationSummary
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// Save upserts the summary row. Concurrent refreshes for the same user
// are resolved last-write-wins.
func (r *SummaryRepository) Save(ctx context.Context, summary *models.UserReputationSummary) error {
	return r.db.WithContext(ctx).Save(summary).Error
}

func (r *SummaryRepository) HealthStats(ctx context.Context) (*models.HealthMetrics, error) {
	metrics := &models.HealthMetrics{
		LevelDistribution: make(map[models.ReputationLevel]int),
	}

	var totalUsers int64
	if err := r.db.WithContext(ctx).Model(&models.UserReputationSummary{}).Count(&totalUsers).Error; err != nil {
		return nil, err
	}
	metrics.TotalUsers = int(totalUsers)

	if totalUsers == 0 {
		return metrics, nil
	}

	if err := r.db.WithContext(ctx).Model(&models.UserReputationSummary{}).
		Select("COALESCE(AVG(total_score), 0)").
		Scan(&metrics.AverageScore).Error; err != nil {
		return nil, err
	}

	var levelCounts []struct {
		Level models.ReputationLevel
		Count int
	}
	if err := r.db.WithContext(ctx).Model(&models.UserReputationSummary{}).
		Select("level, COUNT(*) as count").
		Group("level").
		Scan(&levelCounts).Error; err != nil {
		return nil, err
	}
	for _, lc := range levelCounts {
		metrics.LevelDistribution[lc.Level] = lc.Count
	}

	return metrics, nil
}
