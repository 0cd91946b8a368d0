package db

import (
	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/database/repositories"
)

type RepositoryFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) *RepositoryFactory {
	return &RepositoryFactory{
		db: db,
	}
}

func NewRepositoryFactoryFromManager(manager *DBManager) *RepositoryFactory {
	return &RepositoryFactory{
		db: manager.GetDB(),
	}
}

func (f *RepositoryFactory) EventRepository() *repositories.EventRepository {
	return repositories.NewEventRepository(f.db)
}

func (f *RepositoryFactory) SummaryRepository() *repositories.SummaryRepository {
	return repositories.NewSummaryRepository(f.db)
}

func (f *RepositoryFactory) LeaderboardRepository() *repositories.LeaderboardRepository {
	return repositories.NewLeaderboardRepository(f.db)
}

func (f *RepositoryFactory) AnalyticsRepository() *repositories.AnalyticsRepository {
	return repositories.NewAnalyticsRepository(f.db)
}
