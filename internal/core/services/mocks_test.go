package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CrysisFangz/TheFinalMarket-sub014/internal/core/models"
)

// In-memory fakes for the repository and collaborator ports. All fakes
// are mutex-guarded because the processor fans out to goroutines.

type fakeEventRepo struct {
	mu     sync.Mutex
	events []*models.ReputationEvent

	sumByUserCalls  int
	latestTimeCalls int
	failSum         error
}

func (r *fakeEventRepo) add(events ...*models.ReputationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *fakeEventRepo) Append(ctx context.Context, event *models.ReputationEvent) error {
	r.add(event)
	return nil
}

func (r *fakeEventRepo) GetByIDAndType(ctx context.Context, id uuid.UUID, eventType models.EventType) (*models.ReputationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id && e.EventType == eventType {
			copied := *e
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEventRepo) SumPointsForUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSum != nil {
		return 0, r.failSum
	}
	var total int64
	for _, e := range r.events {
		if e.UserID == userID {
			total += e.PointsChange
		}
	}
	return total, nil
}

func (r *fakeEventRepo) ListForUserBetween(ctx context.Context, userID string, start, end time.Time) ([]*models.ReputationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReputationEvent
	for _, e := range r.events {
		if e.UserID == userID && !e.CreatedAt.Before(start) && !e.CreatedAt.After(end) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ListBetween(ctx context.Context, start, end time.Time) ([]*models.ReputationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ReputationEvent
	for _, e := range r.events {
		if !e.CreatedAt.Before(start) && !e.CreatedAt.After(end) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) SumPointsByUserBetween(ctx context.Context, start, end time.Time) ([]models.UserScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sumByUserCalls++
	totals := make(map[string]int64)
	for _, e := range r.events {
		if !e.CreatedAt.Before(start) && !e.CreatedAt.After(end) {
			totals[e.UserID] += e.PointsChange
		}
	}
	out := make([]models.UserScore, 0, len(totals))
	for userID, score := range totals {
		out = append(out, models.UserScore{UserID: userID, Score: score})
	}
	return out, nil
}

func (r *fakeEventRepo) LatestEventTimeBetween(ctx context.Context, start, end time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latestTimeCalls++
	var latest time.Time
	for _, e := range r.events {
		if !e.CreatedAt.Before(start) && !e.CreatedAt.After(end) && e.CreatedAt.After(latest) {
			latest = e.CreatedAt
		}
	}
	return latest, nil
}

func (r *fakeEventRepo) CountForUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.events {
		if e.UserID == userID {
			count++
		}
	}
	return count, nil
}

type fakeSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*models.UserReputationSummary
	saveCalls int
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{summaries: make(map[string]*models.UserReputationSummary)}
}

func (r *fakeSummaryRepo) GetByUserID(ctx context.Context, userID string) (*models.UserReputationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary, ok := r.summaries[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *summary
	return &copied, nil
}

func (r *fakeSummaryRepo) Save(ctx context.Context, summary *models.UserReputationSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	copied := *summary
	r.summaries[summary.UserID] = &copied
	return nil
}

func (r *fakeSummaryRepo) HealthStats(ctx context.Context) (*models.HealthMetrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	metrics := &models.HealthMetrics{
		LevelDistribution: make(map[models.ReputationLevel]int),
	}
	var sum int64
	for _, s := range r.summaries {
		metrics.TotalUsers++
		metrics.LevelDistribution[s.Level]++
		sum += s.TotalScore
	}
	if metrics.TotalUsers > 0 {
		metrics.AverageScore = float64(sum) / float64(metrics.TotalUsers)
	}
	return metrics, nil
}

type leaderboardKey struct {
	leaderboardType models.LeaderboardType
	periodStart     time.Time
}

type fakeLeaderboardRepo struct {
	mu          sync.Mutex
	rows        map[leaderboardKey]*models.ReputationLeaderboard
	updateCalls int
}

func newFakeLeaderboardRepo() *fakeLeaderboardRepo {
	return &fakeLeaderboardRepo{rows: make(map[leaderboardKey]*models.ReputationLeaderboard)}
}

func (r *fakeLeaderboardRepo) GetByTypeAndPeriod(ctx context.Context, leaderboardType models.LeaderboardType, periodStart time.Time) (*models.ReputationLeaderboard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[leaderboardKey{leaderboardType, periodStart}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (r *fakeLeaderboardRepo) Create(ctx context.Context, leaderboard *models.ReputationLeaderboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *leaderboard
	r.rows[leaderboardKey{leaderboard.LeaderboardType, leaderboard.PeriodStart}] = &copied
	return nil
}

func (r *fakeLeaderboardRepo) Update(ctx context.Context, leaderboard *models.ReputationLeaderboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	copied := *leaderboard
	r.rows[leaderboardKey{leaderboard.LeaderboardType, leaderboard.PeriodStart}] = &copied
	return nil
}

func (r *fakeLeaderboardRepo) ListAll(ctx context.Context) ([]*models.ReputationLeaderboard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ReputationLeaderboard, 0, len(r.rows))
	for _, row := range r.rows {
		copied := *row
		out = append(out, &copied)
	}
	return out, nil
}

type fakeAnalyticsRepo struct {
	mu          sync.Mutex
	snapshots   map[string]*models.AnalyticsSnapshot
	createCalls int
	updateCalls int
}

func newFakeAnalyticsRepo() *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{snapshots: make(map[string]*models.AnalyticsSnapshot)}
}

func dateKey(t time.Time) string {
	return models.SnapshotDay(t).Format("2006-01-02")
}

func copySnapshot(s *models.AnalyticsSnapshot) *models.AnalyticsSnapshot {
	copied := *s
	if s.UserDayStats != nil {
		copied.UserDayStats = make(map[string]models.UserDayStat, len(s.UserDayStats))
		for k, v := range s.UserDayStats {
			copied.UserDayStats[k] = v
		}
	}
	return &copied
}

func (r *fakeAnalyticsRepo) GetByDate(ctx context.Context, date time.Time) (*models.AnalyticsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot, ok := r.snapshots[dateKey(date)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return copySnapshot(snapshot), nil
}

func (r *fakeAnalyticsRepo) GetLatest(ctx context.Context) (*models.AnalyticsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.AnalyticsSnapshot
	for _, snapshot := range r.snapshots {
		if latest == nil || snapshot.SnapshotDate.After(latest.SnapshotDate) {
			latest = snapshot
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return copySnapshot(latest), nil
}

func (r *fakeAnalyticsRepo) Create(ctx context.Context, snapshot *models.AnalyticsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	r.snapshots[dateKey(snapshot.SnapshotDate)] = copySnapshot(snapshot)
	return nil
}

func (r *fakeAnalyticsRepo) Update(ctx context.Context, snapshot *models.AnalyticsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	r.snapshots[dateKey(snapshot.SnapshotDate)] = copySnapshot(snapshot)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.entries[key]
	return val, ok, nil
}

func (c *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

type recordingNotifier struct {
	mu           sync.Mutex
	gains        []string
	losses       []string
	resets       []string
	resetAdmins  []string
	levelChanges []string
	failWith     error
}

func (n *recordingNotifier) record(list *[]string, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	*list = append(*list, userID)
	return nil
}

func (n *recordingNotifier) NotifyGain(ctx context.Context, userID string, payload map[string]interface{}) error {
	return n.record(&n.gains, userID)
}

func (n *recordingNotifier) NotifyLoss(ctx context.Context, userID string, payload map[string]interface{}) error {
	return n.record(&n.losses, userID)
}

func (n *recordingNotifier) NotifyReset(ctx context.Context, userID, adminID string, payload map[string]interface{}) error {
	n.mu.Lock()
	n.resetAdmins = append(n.resetAdmins, adminID)
	n.mu.Unlock()
	return n.record(&n.resets, userID)
}

func (n *recordingNotifier) NotifyLevelChange(ctx context.Context, userID string, payload map[string]interface{}) error {
	return n.record(&n.levelChanges, userID)
}

type recordingModeration struct {
	mu      sync.Mutex
	tickets []string
}

func (m *recordingModeration) OpenTicket(ctx context.Context, userID string, severity models.Severity, details map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, userID)
	return nil
}

type recordingAchievements struct {
	mu     sync.Mutex
	checks []int64
}

func (a *recordingAchievements) CheckAndAward(ctx context.Context, userID string, score int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks = append(a.checks, score)
	return nil
}

type recordingFeatureGate struct {
	mu        sync.Mutex
	unlocks   [][]string
	restricts [][]string
}

func (g *recordingFeatureGate) Unlock(ctx context.Context, userID string, features []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocks = append(g.unlocks, features)
	return nil
}

func (g *recordingFeatureGate) Restrict(ctx context.Context, userID string, features []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restricts = append(g.restricts, features)
	return nil
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []string
}

func (a *recordingAlerts) Alert(ctx context.Context, component string, err error, details map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, component)
}

func gainEvent(userID string, points int64, at time.Time) *models.ReputationEvent {
	return &models.ReputationEvent{
		ID:           uuid.New(),
		UserID:       userID,
		EventType:    models.EventTypeGained,
		PointsChange: points,
		Reason:       "order_completed",
		CreatedAt:    at,
	}
}

func lossEvent(userID string, points int64, severity models.Severity, at time.Time) *models.ReputationEvent {
	return &models.ReputationEvent{
		ID:            uuid.New(),
		UserID:        userID,
		EventType:     models.EventTypeLost,
		PointsChange:  -points,
		Reason:        "policy_violation",
		ViolationType: "listing_abuse",
		Severity:      severity,
		CreatedAt:     at,
	}
}
