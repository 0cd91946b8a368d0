package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// RefreshScheduler keeps the derived views fresh in the background:
// a periodic staleness-gated pass over every leaderboard type, and the
// daily analytics rollover shortly after midnight UTC. Both jobs are
// cheap when nothing changed because the underlying recomputes are
// staleness-gated or idempotent.
type RefreshScheduler struct {
	leaderboards    *LeaderboardCalculator
	analytics       *AnalyticsService
	scheduler       *gocron.Scheduler
	refreshInterval time.Duration
	rolloverAt      string
	mutex           sync.Mutex
	isRunning       bool
	stopCh          chan struct{}
}

func NewRefreshScheduler(leaderboards *LeaderboardCalculator, analytics *AnalyticsService, refreshInterval time.Duration, rolloverAt string) *RefreshScheduler {
	if refreshInterval <= 0 {
		refreshInterval = 5 * time.Minute
	}
	if rolloverAt == "" {
		rolloverAt = "00:05"
	}

	return &RefreshScheduler{
		leaderboards:    leaderboards,
		analytics:       analytics,
		refreshInterval: refreshInterval,
		rolloverAt:      rolloverAt,
		stopCh:          make(chan struct{}),
	}
}

func (s *RefreshScheduler) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isRunning {
		return nil
	}

	log := gologger.WithComponent("refresh_scheduler")
	log.Info().
		Dur("refresh_interval", s.refreshInterval).
		Str("rollover_at", s.rolloverAt).
		Msg("Starting refresh scheduler")

	s.scheduler = gocron.NewScheduler(time.UTC)
	s.stopCh = make(chan struct{})

	if _, err := s.scheduler.Every(s.refreshInterval).Do(s.refreshLeaderboards); err != nil {
		log.Error().Err(err).Msg("Failed to schedule leaderboard refresh")
		return err
	}

	if _, err := s.scheduler.Every(1).Day().At(s.rolloverAt).Do(s.rolloverAnalytics); err != nil {
		log.Error().Err(err).Msg("Failed to schedule analytics rollover")
		return err
	}

	s.scheduler.StartAsync()
	s.isRunning = true

	return nil
}

func (s *RefreshScheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isRunning {
		return
	}

	close(s.stopCh)

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	s.isRunning = false

	log := gologger.WithComponent("refresh_scheduler")
	log.Info().Msg("Refresh scheduler stopped")
}

func (s *RefreshScheduler) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.isRunning
}

func (s *RefreshScheduler) refreshLeaderboards() {
	select {
	case <-s.stopCh:
		return
	default:
	}

	log := gologger.WithComponent("refresh_scheduler")
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, leaderboardType := range models.AllLeaderboardTypes {
		if _, err := s.leaderboards.GetOrCalculate(ctx, leaderboardType, time.Now()); err != nil {
			log.Error().Err(err).
				Str("type", string(leaderboardType)).
				Msg("Scheduled leaderboard refresh failed")
		}
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("Completed scheduled leaderboard refresh")
}

func (s *RefreshScheduler) rolloverAnalytics() {
	select {
	case <-s.stopCh:
		return
	default:
	}

	log := gologger.WithComponent("refresh_scheduler")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Finalize yesterday, then seed today's snapshot.
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	if _, err := s.analytics.GenerateDaily(ctx, yesterday); err != nil {
		log.Error().Err(err).Msg("Failed to finalize yesterday's analytics snapshot")
	}

	if _, err := s.analytics.GenerateDaily(ctx, time.Now()); err != nil {
		log.Error().Err(err).Msg("Failed to generate today's analytics snapshot")
	}
}
