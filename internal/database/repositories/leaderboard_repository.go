package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

type LeaderboardRepository struct {
	db *gorm.DB
}

func NewLeaderboardRepository(db *gorm.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

func (r *LeaderboardRepository) GetByTypeAndPeriod(ctx context.Context, leaderboardType models.LeaderboardType, periodStart time.Time) (*models.ReputationLeaderboard, error) {
	var leaderboard models.ReputationLeaderboard
	err := r.db.WithContext(ctx).
		Where("leaderboard_type = ? AND period_start = ?", leaderboardType, periodStart).
		First(&leaderboard).Error
	if err != nil {
		return nil, err
	}
	return &leaderboard, nil
}

func (r *LeaderboardRepository) Create(ctx context.Context, leaderboard *models.ReputationLeaderboard) error {
	return r.db.WithContext(ctx).Create(leaderboard).Error
}

func (r *LeaderboardRepository) Update(ctx context.Context, leaderboard *models.ReputationLeaderboard) error {
	return r.db.WithContext(ctx).Save(leaderboard).Error
}

func (r *LeaderboardRepository) ListAll(ctx context.Context) ([]*models.ReputationLeaderboard, error) {
	var leaderboards []*models.ReputationLeaderboard
	err := r.db.WithContext(ctx).
		Order("period_start DESC").
		Find(&leaderboards).Error
	return leaderboards, err
}
