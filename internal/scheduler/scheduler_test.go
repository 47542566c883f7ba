package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/agents"
	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/internal/llm"
	"github.com/Aidin1998/energydesk/internal/marketfeeds"
	"github.com/Aidin1998/energydesk/internal/store"
	"github.com/Aidin1998/energydesk/internal/ws"
	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
	"github.com/Aidin1998/energydesk/pkg/validation"
)

type recordingChannel struct {
	mu   sync.Mutex
	msgs []json.RawMessage
}

func (c *recordingChannel) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, payload)
	return true
}

func (c *recordingChannel) Close() {}

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *recordingChannel) events(eventType string) []wireEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []wireEvent
	for _, m := range c.msgs {
		var ev wireEvent
		if err := json.Unmarshal(m, &ev); err == nil && ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   []string
	active  atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
}

func (a *fakeAnalyzer) RunAnalysis(_ context.Context, userID string) agents.Report {
	n := a.active.Add(1)
	defer a.active.Add(-1)
	for {
		prev := a.maxSeen.Load()
		if n <= prev || a.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	time.Sleep(a.delay)
	a.mu.Lock()
	a.calls = append(a.calls, userID)
	a.mu.Unlock()
	return agents.Report{UserID: userID}
}

func (a *fakeAnalyzer) called() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

// staleRegistry lists users that are no longer connected
type staleRegistry struct {
	listed    []string
	connected map[string]bool
}

func (r staleRegistry) ActiveUserIDs() []string { return r.listed }

func (r staleRegistry) Lookup(userID string) (ws.Channel, bool) {
	if !r.connected[userID] {
		return nil, false
	}
	return &recordingChannel{}, true
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		MarketInterval:      time.Hour,
		AnalysisInterval:    time.Minute,
		AnalysisConcurrency: 4,
		RecentInsights:      5,
	}
}

func gasFeed() marketfeeds.Feed {
	return marketfeeds.FeedFunc(func(context.Context) ([]models.Quote, error) {
		return []models.Quote{{
			Symbol:        "NATURAL_GAS",
			Price:         decimal.RequireFromString("2.82"),
			Change:        decimal.RequireFromString("0.07"),
			ChangePercent: decimal.RequireFromString("2.5"),
		}}, nil
	})
}

func newUser(t *testing.T, s *store.Store, username string) models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), models.NewUser{Username: username, Password: "pw", Name: username})
	require.NoError(t, err)
	return u
}

func TestMarketCycleBroadcastsAndPersists(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	registry := ws.NewRegistry()
	ch := &recordingChannel{}
	registry.Register("trader", ch)

	sched := New(testSchedulerConfig(), gasFeed(), s, &fakeAnalyzer{}, registry, ws.NewBroadcaster(registry, zap.NewNop()), zap.NewNop())
	require.NoError(t, sched.MarketCycle(ctx))

	updates := ch.events(ws.EventMarketUpdate)
	require.Len(t, updates, 1)
	var ticks []models.MarketTick
	require.NoError(t, json.Unmarshal(updates[0].Payload, &ticks))
	require.Len(t, ticks, 1)
	assert.Equal(t, "NATURAL_GAS", ticks[0].Symbol)
	assert.Equal(t, "2.82", ticks[0].Price.String())
	assert.Equal(t, "0.07", ticks[0].Change.String())
	assert.Equal(t, "2.5", ticks[0].ChangePercent.String())

	stored := s.ListMarketTicks(ctx, "NATURAL_GAS")
	require.Len(t, stored, 1)
	assert.Equal(t, ticks[0].ID, stored[0].ID)
}

func TestMarketCycleRepricesPositions(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	owner := newUser(t, s, "owner")
	other := newUser(t, s, "other")
	_, err := s.CreatePosition(ctx, models.NewPosition{
		UserID: owner.ID, Symbol: "NATURAL_GAS", Type: models.PositionLong,
		Quantity: decimal.NewFromInt(1000), EntryPrice: decimal.RequireFromString("2.75"),
		CurrentPrice: decimal.RequireFromString("2.80"),
	})
	require.NoError(t, err)

	registry := ws.NewRegistry()
	ownerCh, otherCh := &recordingChannel{}, &recordingChannel{}
	registry.Register(owner.ID, ownerCh)
	registry.Register(other.ID, otherCh)

	sched := New(testSchedulerConfig(), gasFeed(), s, &fakeAnalyzer{}, registry, ws.NewBroadcaster(registry, zap.NewNop()), zap.NewNop())
	require.NoError(t, sched.MarketCycle(ctx))

	updates := ownerCh.events(ws.EventPositionUpdate)
	require.Len(t, updates, 1)
	var p models.Position
	require.NoError(t, json.Unmarshal(updates[0].Payload, &p))
	assert.Equal(t, "2.82", p.CurrentPrice.String())
	assert.Equal(t, "70", p.UnrealizedPnl.String())

	assert.Empty(t, otherCh.events(ws.EventPositionUpdate))
	assert.Len(t, otherCh.events(ws.EventMarketUpdate), 1)
}

func TestMarketCycleFeedFailure(t *testing.T) {
	feed := marketfeeds.FeedFunc(func(context.Context) ([]models.Quote, error) {
		return nil, errors.FeedUnavailable.Explain("down")
	})
	registry := ws.NewRegistry()
	ch := &recordingChannel{}
	registry.Register("trader", ch)

	sched := New(testSchedulerConfig(), feed, store.New(), &fakeAnalyzer{}, registry, ws.NewBroadcaster(registry, zap.NewNop()), zap.NewNop())
	err := sched.MarketCycle(context.Background())
	assert.True(t, errors.Is(err, errors.FeedUnavailable))
	assert.Empty(t, ch.events(ws.EventMarketUpdate))
}

func TestMarketLoopSurvivesErrorsAndPanics(t *testing.T) {
	var calls atomic.Int32
	feed := marketfeeds.FeedFunc(func(ctx context.Context) ([]models.Quote, error) {
		switch calls.Add(1) {
		case 1:
			return nil, fmt.Errorf("connection reset")
		case 2:
			panic("decoder bug")
		}
		return gasFeed().FetchLatest(ctx)
	})
	registry := ws.NewRegistry()
	ch := &recordingChannel{}
	registry.Register("trader", ch)

	cfg := testSchedulerConfig()
	cfg.MarketInterval = 10 * time.Millisecond
	sched := New(cfg, feed, store.New(), &fakeAnalyzer{}, registry, ws.NewBroadcaster(registry, zap.NewNop()), zap.NewNop())

	require.NoError(t, sched.Start(context.Background()))
	assert.Error(t, sched.Start(context.Background()), "second start is rejected")

	require.Eventually(t, func() bool { return len(ch.events(ws.EventMarketUpdate)) > 0 }, 2*time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(stopCtx))
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestAnalysisCycleSkipsDisconnectedUsers(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	registry := staleRegistry{
		listed:    []string{"alice", "bob"},
		connected: map[string]bool{"alice": true},
	}
	pub := ws.NewBroadcaster(ws.NewRegistry(), zap.NewNop())

	sched := New(testSchedulerConfig(), gasFeed(), store.New(), analyzer, registry, pub, zap.NewNop())
	require.NoError(t, sched.AnalysisCycle(context.Background()))

	assert.Equal(t, []string{"alice"}, analyzer.called())
}

func TestAnalysisCycleBoundedConcurrency(t *testing.T) {
	registry := ws.NewRegistry()
	for i := range 8 {
		registry.Register(fmt.Sprintf("user-%d", i), &recordingChannel{})
	}
	analyzer := &fakeAnalyzer{delay: 20 * time.Millisecond}
	cfg := testSchedulerConfig()
	cfg.AnalysisConcurrency = 2

	sched := New(cfg, gasFeed(), store.New(), analyzer, registry, ws.NewBroadcaster(registry, zap.NewNop()), zap.NewNop())
	require.NoError(t, sched.AnalysisCycle(context.Background()))

	assert.Len(t, analyzer.called(), 8)
	assert.LessOrEqual(t, analyzer.maxSeen.Load(), int32(2))
}

func TestAnalysisCyclePushesRecentInsights(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now.Add(-2 * time.Minute)
	s := store.New(store.WithClock(func() time.Time { return clock }))
	quiet := newUser(t, s, "quiet")
	busy := newUser(t, s, "busy")

	_, err := s.CreateInsight(ctx, models.NewInsight{UserID: busy.ID, AgentType: "a", Title: "stale", Priority: "low", Category: "risk"})
	require.NoError(t, err)
	clock = now.Add(-10 * time.Second)
	_, err = s.CreateInsight(ctx, models.NewInsight{UserID: busy.ID, AgentType: "a", Title: "fresh", Priority: "high", Category: "alert"})
	require.NoError(t, err)

	registry := ws.NewRegistry()
	quietCh, busyCh := &recordingChannel{}, &recordingChannel{}
	registry.Register(quiet.ID, quietCh)
	registry.Register(busy.ID, busyCh)

	sched := New(testSchedulerConfig(), gasFeed(), s, &fakeAnalyzer{}, registry, ws.NewBroadcaster(registry, zap.NewNop()), zap.NewNop())
	sched.now = func() time.Time { return now }
	require.NoError(t, sched.AnalysisCycle(ctx))

	assert.Empty(t, quietCh.events(ws.EventNewInsights))
	pushed := busyCh.events(ws.EventNewInsights)
	require.Len(t, pushed, 1)
	var insights []models.Insight
	require.NoError(t, json.Unmarshal(pushed[0].Payload, &insights))
	require.Len(t, insights, 1)
	assert.Equal(t, "fresh", insights[0].Title)
}

// riskOnlyModel answers every analysis with a moderate risk assessment and no
// market insights
type riskOnlyModel struct{}

func (riskOnlyModel) Analyze(_ context.Context, _ llm.Prompt, out any) error {
	return json.Unmarshal([]byte(`{"varOneDay": 100, "varOneWeek": 250, "maxDrawdown": 400, "riskScore": 40, "insights": []}`), out)
}

func (riskOnlyModel) Complete(context.Context, llm.Prompt) (string, error) {
	return "", errors.ModelError.Explain("offline")
}

func TestAnalysisCycleCreatesRiskMetricOnce(t *testing.T) {
	ctx := context.Background()
	s := store.New()
	trader := newUser(t, s, "trader")

	_, ok := s.GetRiskMetric(ctx, trader.ID)
	assert.False(t, ok, "no risk metric before the first analysis")

	registry := ws.NewRegistry()
	registry.Register(trader.ID, &recordingChannel{})
	orch := agents.NewOrchestrator(s, gasFeed(), staticNews{}, staticWeather{}, riskOnlyModel{}, validation.NewValidator(), zap.NewNop())

	sched := New(testSchedulerConfig(), gasFeed(), s, orch, registry, ws.NewBroadcaster(registry, zap.NewNop()), zap.NewNop())
	require.NoError(t, sched.AnalysisCycle(ctx))

	first, ok := s.GetRiskMetric(ctx, trader.ID)
	require.True(t, ok)
	assert.Equal(t, 40, first.RiskScore)

	require.NoError(t, sched.AnalysisCycle(ctx))
	second, ok := s.GetRiskMetric(ctx, trader.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, second.ID)
}

type staticNews []models.NewsItem

func (n staticNews) FetchRecent(context.Context) []models.NewsItem { return n }

type staticWeather models.Weather

func (w staticWeather) FetchCurrent(context.Context) models.Weather { return models.Weather(w) }
