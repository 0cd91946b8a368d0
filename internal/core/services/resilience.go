package services

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/ports"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// BreakerNotifier wraps a notification collaborator in a circuit breaker
// so a sustained outage cannot cascade into the pipeline: after enough
// consecutive failures the breaker opens and refuses calls immediately,
// then probes again after the recovery timeout (half-open).
type BreakerNotifier struct {
	inner   ports.NotificationService
	breaker *gobreaker.CircuitBreaker
}

func NewBreakerNotifier(inner ports.NotificationService, maxFailures uint32, resetTimeout time.Duration) *BreakerNotifier {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	log := gologger.WithComponent("notification_breaker")

	settings := gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 1,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &BreakerNotifier{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerNotifier) execute(op func() error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, op()
	})
	return err
}

func (b *BreakerNotifier) NotifyGain(ctx context.Context, userID string, payload map[string]interface{}) error {
	return b.execute(func() error { return b.inner.NotifyGain(ctx, userID, payload) })
}

func (b *BreakerNotifier) NotifyLoss(ctx context.Context, userID string, payload map[string]interface{}) error {
	return b.execute(func() error { return b.inner.NotifyLoss(ctx, userID, payload) })
}

func (b *BreakerNotifier) NotifyReset(ctx context.Context, userID, adminID string, payload map[string]interface{}) error {
	return b.execute(func() error { return b.inner.NotifyReset(ctx, userID, adminID, payload) })
}

func (b *BreakerNotifier) NotifyLevelChange(ctx context.Context, userID string, payload map[string]interface{}) error {
	return b.execute(func() error { return b.inner.NotifyLevelChange(ctx, userID, payload) })
}

// State exposes the current breaker state for health reporting.
func (b *BreakerNotifier) State() gobreaker.State {
	return b.breaker.State()
}
