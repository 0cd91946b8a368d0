package services

import (
	"math/rand"
	"sync"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

// SamplingPolicy decides whether an event triggers an incremental
// analytics update. Gains and losses are high-volume, so updating the
// snapshot on every one would amplify writes; the policy bounds that.
// Resets and level changes are rare and always pass.
type SamplingPolicy interface {
	ShouldSample(event *models.ReputationEvent) bool
}

// RateSampler passes a fixed fraction of gain/loss events. The generator
// is seeded and mutex-guarded so behavior is reproducible in tests and
// safe across workers.
type RateSampler struct {
	rate float64
	mu   sync.Mutex
	rng  *rand.Rand
}

func NewRateSampler(rate float64, seed int64) *RateSampler {
	return &RateSampler{
		rate: rate,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (s *RateSampler) ShouldSample(event *models.ReputationEvent) bool {
	if event.EventType != models.EventTypeGained && event.EventType != models.EventTypeLost {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.rate
}

// AlwaysSample passes every event. Used by the one-shot CLI paths and in
// tests.
type AlwaysSample struct{}

func (AlwaysSample) ShouldSample(*models.ReputationEvent) bool { return true }

// NeverSample suppresses all incremental updates; the daily regenerate
// remains the only snapshot writer.
type NeverSample struct{}

func (NeverSample) ShouldSample(*models.ReputationEvent) bool { return false }
