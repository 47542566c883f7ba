// Package scheduler runs the two periodic loops of the desk: the market refresh
// loop and the per-user agent analysis loop.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Aidin1998/energydesk/internal/agents"
	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/internal/marketfeeds"
	"github.com/Aidin1998/energydesk/internal/ws"
	"github.com/Aidin1998/energydesk/pkg/metrics"
	"github.com/Aidin1998/energydesk/pkg/models"
)

const (
	loopMarket   = "market"
	loopAnalysis = "analysis"
)

// Store is the subset of the data store the loops use
type Store interface {
	CreateMarketTick(ctx context.Context, tick models.MarketTick) models.MarketTick
	RepricePositions(ctx context.Context, symbol string, price decimal.Decimal) []models.Position
	ListInsightsSince(ctx context.Context, userID string, since time.Time, limit int) []models.Insight
}

// Analyzer runs the agent roster for one user
type Analyzer interface {
	RunAnalysis(ctx context.Context, userID string) agents.Report
}

// Registry reports which users currently have a push channel
type Registry interface {
	ActiveUserIDs() []string
	Lookup(userID string) (ws.Channel, bool)
}

// Publisher pushes events to connected users
type Publisher interface {
	SendToUser(userID string, ev ws.Event) bool
	SendToAll(ev ws.Event) int
}

// Scheduler owns the market and analysis loops. The loops are independent;
// neither waits for the other.
type Scheduler struct {
	cfg      config.SchedulerConfig
	feed     marketfeeds.Feed
	store    Store
	analyzer Analyzer
	registry Registry
	pub      Publisher
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler
func New(
	cfg config.SchedulerConfig,
	feed marketfeeds.Feed,
	store Store,
	analyzer Analyzer,
	registry Registry,
	pub Publisher,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		feed:     feed,
		store:    store,
		analyzer: analyzer,
		registry: registry,
		pub:      pub,
		logger:   logger.Named("scheduler"),
		tracer:   otel.Tracer("github.com/Aidin1998/energydesk/internal/scheduler"),
		now:      time.Now,
	}
}

// Start launches both loops. The market loop runs one cycle immediately; the
// analysis loop first runs after one interval.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler already running")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.run(loopMarket, s.cfg.MarketInterval, true, s.MarketCycle)
	go s.run(loopAnalysis, s.cfg.AnalysisInterval, false, s.AnalysisCycle)

	s.logger.Info("scheduler started",
		zap.Duration("market_interval", s.cfg.MarketInterval),
		zap.Duration("analysis_interval", s.cfg.AnalysisInterval),
		zap.Int("analysis_concurrency", s.cfg.AnalysisConcurrency))
	return nil
}

// Stop cancels both loops and waits for in-flight cycles to return
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.running.Store(false)
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(loop string, interval time.Duration, immediate bool, cycle func(context.Context) error) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if immediate {
		s.runCycle(loop, cycle)
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCycle(loop, cycle)
		}
	}
}

// runCycle executes one iteration; errors and panics are logged and the loop
// keeps going
func (s *Scheduler) runCycle(loop string, cycle func(context.Context) error) {
	ctx, span := s.tracer.Start(s.ctx, "scheduler."+loop)
	defer span.End()
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s cycle panicked: %v", loop, r)
				s.logger.Error("cycle panicked", zap.String("loop", loop), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()
		return cycle(ctx)
	}()

	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordSchedulerCycle(ctx, loop, "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("cycle failed", zap.String("loop", loop), zap.Error(err), zap.Duration("elapsed", elapsed))
		return
	}
	metrics.RecordSchedulerCycle(ctx, loop, "ok", elapsed)
	s.logger.Debug("cycle complete", zap.String("loop", loop), zap.Duration("elapsed", elapsed))
}

// MarketCycle fetches quotes, persists them as ticks, re-prices open
// positions and broadcasts the new ticks to every connected user
func (s *Scheduler) MarketCycle(ctx context.Context) error {
	quotes, err := s.feed.FetchLatest(ctx)
	if err != nil {
		if len(quotes) == 0 {
			return fmt.Errorf("fetch market data: %w", err)
		}
		s.logger.Warn("market feed returned partial data", zap.Error(err))
	}

	ticks := make([]models.MarketTick, 0, len(quotes))
	for _, q := range quotes {
		ticks = append(ticks, s.store.CreateMarketTick(ctx, models.MarketTick{
			Symbol:        q.Symbol,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Volume:        q.Volume,
		}))
	}

	for _, tick := range ticks {
		for _, p := range s.store.RepricePositions(ctx, tick.Symbol, tick.Price) {
			s.pub.SendToUser(p.UserID, ws.NewEvent(ws.EventPositionUpdate, p))
		}
	}

	delivered := s.pub.SendToAll(ws.NewEvent(ws.EventMarketUpdate, ticks))
	s.logger.Debug("market update broadcast", zap.Int("ticks", len(ticks)), zap.Int("delivered", delivered))
	return nil
}

// AnalysisCycle runs the agents for every connected user, at most
// AnalysisConcurrency users at a time, and pushes each user's fresh insights
func (s *Scheduler) AnalysisCycle(ctx context.Context) error {
	users := s.registry.ActiveUserIDs()
	if len(users) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.AnalysisConcurrency)
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s.analyzeUser(ctx, userID)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) analyzeUser(ctx context.Context, userID string) {
	if _, ok := s.registry.Lookup(userID); !ok {
		s.logger.Debug("user disconnected before analysis", zap.String("user_id", userID))
		return
	}

	report := s.analyzer.RunAnalysis(ctx, userID)
	if failed := report.Failed(); len(failed) > 0 {
		s.logger.Warn("agents failed", zap.String("user_id", userID), zap.Strings("agents", failed))
	}

	since := s.now().Add(-s.cfg.AnalysisInterval)
	recent := s.store.ListInsightsSince(ctx, userID, since, s.cfg.RecentInsights)
	if len(recent) == 0 {
		return
	}
	s.pub.SendToUser(userID, ws.NewEvent(ws.EventNewInsights, recent))
}
