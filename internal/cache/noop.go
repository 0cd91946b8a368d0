package cache

import (
	"context"
	"time"
)

// NoopCache disables caching. Used when no Redis address is configured;
// every lookup is a miss and the repositories stay the only readers.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (NoopCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }

func (NoopCache) Set(context.Context, string, string, time.Duration) error { return nil }

func (NoopCache) Invalidate(context.Context, string) error { return nil }
