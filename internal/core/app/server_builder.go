package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/api"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/api/handlers"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/cache"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/config"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/ports"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/services"
	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/storage/db"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

type Server struct {
	Config      *config.Config
	HttpServer  *http.Server
	DBManager   *db.DBManager
	Cache       ports.Cache
	EventQueue  *services.EventQueue
	Scheduler   *services.RefreshScheduler
	StopChannel chan struct{}
	queueCancel context.CancelFunc
}

func (s *Server) Shutdown(ctx context.Context) {
	log := gologger.Get()

	serverShutdownCtx, serverShutdownCancel := context.WithTimeout(ctx, 15*time.Second)
	defer serverShutdownCancel()

	close(s.StopChannel)

	s.Scheduler.Stop()
	log.Info().Msg("Stopped refresh scheduler")

	if s.queueCancel != nil {
		s.queueCancel()
	}
	s.EventQueue.Stop()
	log.Info().Msg("Stopped event queue")

	log.Info().Int("shutdown_timeout_seconds", 15).Msg("Initiating server shutdown sequence")
	shutdownStart := time.Now()

	if err := s.HttpServer.Shutdown(serverShutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		if err == context.DeadlineExceeded {
			log.Warn().Msg("Server shutdown deadline exceeded, forcing immediate shutdown")
		}
	} else {
		shutdownDuration := time.Since(shutdownStart)
		log.Info().Dur("duration_ms", shutdownDuration).Msg("Server HTTP connections gracefully closed")
	}

	if closer, ok := s.Cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing cache connection")
		}
	}

	dbCloseStart := time.Now()
	if err := s.DBManager.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Dur("duration_ms", time.Since(dbCloseStart)).Msg("Database connection closed successfully")
	}

	log.Info().Msg("Shutdown complete")
}

type ServerBuilder struct {
	config       *config.Config
	dbManager    *db.DBManager
	repoFactory  *db.RepositoryFactory
	cache        ports.Cache
	refresher    *services.SummaryRefresher
	classifier   *services.LevelClassifier
	leaderboards *services.LeaderboardCalculator
	analytics    *services.AnalyticsService
	processor    *services.EventProcessor
	eventQueue   *services.EventQueue
	scheduler    *services.RefreshScheduler
	httpServer   *http.Server
	stopChannel  chan struct{}
	queueCtx     context.Context
	queueCancel  context.CancelFunc
	err          error
}

func NewServerBuilder(cfg *config.Config) *ServerBuilder {
	return &ServerBuilder{
		config:      cfg,
		stopChannel: make(chan struct{}),
	}
}

func (sb *ServerBuilder) InitDatabase() *ServerBuilder {
	if sb.err != nil {
		return sb
	}

	log := gologger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	URL := sb.config.Database.GetConnectionURL()

	sb.dbManager = db.NewDBManager()
	if err := sb.dbManager.Connect(ctx, URL); err != nil {
		sb.err = fmt.Errorf("failed to connect to database: %w", err)
		return sb
	}

	log.Info().Msg("Successfully connected to database")
	return sb
}

// InitCache wires Redis when configured, falling back to a no-op cache so
// the pipeline runs without one.
func (sb *ServerBuilder) InitCache() *ServerBuilder {
	if sb.err != nil {
		return sb
	}

	log := gologger.Get()

	if sb.config.Redis.Addr == "" {
		log.Warn().Msg("Redis not configured, caching disabled")
		sb.cache = cache.NewNoopCache()
		return sb
	}

	redisCache := cache.NewRedisCache(sb.config.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisCache.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", sb.config.Redis.Addr).
			Msg("Redis unreachable, caching disabled")
		sb.cache = cache.NewNoopCache()
		return sb
	}

	log.Info().Str("addr", sb.config.Redis.Addr).Msg("Connected to Redis")
	sb.cache = redisCache
	return sb
}

func (sb *ServerBuilder) InitRepositories() *ServerBuilder {
	if sb.err != nil {
		return sb
	}

	sb.repoFactory = db.NewRepositoryFactoryFromManager(sb.dbManager)
	return sb
}

func (sb *ServerBuilder) InitServices() *ServerBuilder {
	if sb.err != nil {
		return sb
	}

	log := gologger.Get()

	eventRepo := sb.repoFactory.EventRepository()
	summaryRepo := sb.repoFactory.SummaryRepository()
	leaderboardRepo := sb.repoFactory.LeaderboardRepository()
	analyticsRepo := sb.repoFactory.AnalyticsRepository()

	collaborators := sb.config.Collaborators
	reputation := sb.config.Reputation

	var notifier ports.NotificationService = services.NewWebhookNotifier(collaborators.NotificationURL)
	maxFailures := reputation.BreakerMaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	resetTimeout := time.Duration(reputation.BreakerResetSeconds) * time.Second
	if resetTimeout <= 0 {
		resetTimeout = 60 * time.Second
	}
	notifier = services.NewBreakerNotifier(notifier, uint32(maxFailures), resetTimeout)

	moderation := services.NewWebhookModeration(collaborators.ModerationURL)
	achievements := services.NewWebhookAchievements(collaborators.AchievementURL)
	featureGate := services.NewWebhookFeatureGate(collaborators.FeatureGateURL)
	alerts := services.NewLogAlertService()

	sb.classifier = services.NewLevelClassifier(notifier, featureGate)
	sb.refresher = services.NewSummaryRefresher(eventRepo, summaryRepo, sb.classifier, alerts)
	sb.leaderboards = services.NewLeaderboardCalculator(leaderboardRepo, eventRepo, sb.cache, reputation)

	var archiver services.SnapshotArchive
	if sb.config.AWS.BucketName != "" {
		s3Archiver, err := services.NewSnapshotArchiver(sb.config)
		if err != nil {
			sb.err = fmt.Errorf("failed to initialize snapshot archiver: %w", err)
			return sb
		}
		archiver = s3Archiver
	} else {
		log.Warn().Msg("S3 not configured, snapshot archival disabled")
	}

	sb.analytics = services.NewAnalyticsService(analyticsRepo, eventRepo, summaryRepo, sb.cache, archiver)

	sampler := services.NewRateSampler(reputation.SamplingRate(), time.Now().UnixNano())

	sb.processor = services.NewEventProcessor(
		eventRepo,
		sb.refresher,
		sb.classifier,
		sb.leaderboards,
		sb.analytics,
		notifier,
		moderation,
		achievements,
		sampler,
		reputation.JobTimeout(),
	)

	return sb
}

func (sb *ServerBuilder) InitEventQueue() *ServerBuilder {
	if sb.err != nil {
		return sb
	}

	maxRetries := sb.config.Reputation.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	sb.eventQueue = services.NewEventQueue(sb.processor, sb.config.Reputation.JobTimeout(), maxRetries)

	sb.queueCtx, sb.queueCancel = context.WithCancel(context.Background())
	go sb.eventQueue.Start(sb.queueCtx)

	return sb
}

func (sb *ServerBuilder) InitScheduler() *ServerBuilder {
	if sb.err != nil {
		return sb
	}

	log := gologger.Get()

	intervalMinutes := sb.config.Scheduler.LeaderboardIntervalMinutes
	if intervalMinutes <= 0 {
		intervalMinutes = 5
		log.Warn().
			Int("default_interval_minutes", intervalMinutes).
			Msg("Leaderboard refresh interval not specified in config, using default")
	}

	sb.scheduler = services.NewRefreshScheduler(
		sb.leaderboards,
		sb.analytics,
		time.Duration(intervalMinutes)*time.Minute,
		sb.config.Scheduler.AnalyticsRolloverAt,
	)

	if err := sb.scheduler.Start(); err != nil {
		sb.err = fmt.Errorf("failed to start refresh scheduler: %w", err)
		return sb
	}

	return sb
}

func (sb *ServerBuilder) InitRouter() *ServerBuilder {
	if sb.err != nil {
		return sb
	}

	eventHandler := handlers.NewEventHandler(sb.processor, sb.eventQueue)
	reputationHandler := handlers.NewReputationHandler(sb.refresher)
	leaderboardHandler := handlers.NewLeaderboardHandler(sb.leaderboards)
	analyticsHandler := handlers.NewAnalyticsHandler(sb.analytics)

	router := api.NewRouter(
		eventHandler,
		reputationHandler,
		leaderboardHandler,
		analyticsHandler,
		sb.config.Server.Endpoint,
	)

	sb.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", sb.config.Server.Host, sb.config.Server.Port),
		Handler: router,
	}

	return sb
}

// Accessors for one-shot CLI commands that need the wired services
// without the HTTP server, queue, or scheduler.

func (sb *ServerBuilder) Err() error {
	return sb.err
}

func (sb *ServerBuilder) Processor() *services.EventProcessor {
	return sb.processor
}

func (sb *ServerBuilder) Leaderboards() *services.LeaderboardCalculator {
	return sb.leaderboards
}

func (sb *ServerBuilder) Analytics() *services.AnalyticsService {
	return sb.analytics
}

func (sb *ServerBuilder) DB() *db.DBManager {
	return sb.dbManager
}

func (sb *ServerBuilder) Build() (*Server, error) {
	if sb.err != nil {
		return nil, sb.err
	}

	return &Server{
		Config:      sb.config,
		HttpServer:  sb.httpServer,
		DBManager:   sb.dbManager,
		Cache:       sb.cache,
		EventQueue:  sb.eventQueue,
		Scheduler:   sb.scheduler,
		StopChannel: sb.stopChannel,
		queueCancel: sb.queueCancel,
	}, nil
}
