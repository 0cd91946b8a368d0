package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/app"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/config"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

// buildServices wires the database-backed service graph without starting
// the HTTP server, queue, or scheduler. Callers must Close the returned
// DB manager.
func buildServices() (*app.ServerBuilder, error) {
	cfg, err := config.GetConfigManager().GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	builder := app.NewServerBuilder(cfg).
		InitDatabase().
		InitCache().
		InitRepositories().
		InitServices()

	if builder.Err() != nil {
		return nil, builder.Err()
	}

	return builder, nil
}

// RunProcessEvent processes a single reputation event delivery.
func RunProcessEvent(rawEventID, eventType, userID string) error {
	log := gologger.WithComponent("cli")

	eventID, err := uuid.Parse(rawEventID)
	if err != nil {
		return fmt.Errorf("event-id must be a UUID: %w", err)
	}

	builder, err := buildServices()
	if err != nil {
		return err
	}
	defer func() {
		if err := builder.DB().Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database connection")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := builder.Processor().ProcessEvent(ctx, eventID, eventType, userID, nil); err != nil {
		return fmt.Errorf("event processing failed: %w", err)
	}

	log.Info().Str("event_id", rawEventID).Msg("Event processed")
	return nil
}

// RunRefreshLeaderboards recalculates every leaderboard type covering now.
func RunRefreshLeaderboards() error {
	log := gologger.WithComponent("cli")

	builder, err := buildServices()
	if err != nil {
		return err
	}
	defer func() {
		if err := builder.DB().Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database connection")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	builder.Leaderboards().RefreshForEvent(ctx, time.Now().UTC())

	log.Info().Msg("Leaderboards refreshed")
	return nil
}

// RunGenerateAnalytics runs a full snapshot pass for a date (YYYY-MM-DD,
// default today).
func RunGenerateAnalytics(rawDate string) error {
	log := gologger.WithComponent("cli")

	date := time.Now().UTC()
	if rawDate != "" {
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		date = parsed
	}

	builder, err := buildServices()
	if err != nil {
		return err
	}
	defer func() {
		if err := builder.DB().Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database connection")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snapshot, err := builder.Analytics().GenerateDaily(ctx, date)
	if err != nil {
		return fmt.Errorf("snapshot generation failed: %w", err)
	}

	log.Info().
		Str("date", models.SnapshotDay(date).Format("2006-01-02")).
		Int("total_users", snapshot.TotalUsers).
		Float64("average_score", snapshot.AverageScore).
		Msg("Analytics snapshot generated")
	return nil
}
