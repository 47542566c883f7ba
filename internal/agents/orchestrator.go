package agents

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Aidin1998/energydesk/internal/llm"
	"github.com/Aidin1998/energydesk/internal/marketfeeds"
	"github.com/Aidin1998/energydesk/pkg/metrics"
	"github.com/Aidin1998/energydesk/pkg/models"
	"github.com/Aidin1998/energydesk/pkg/validation"
)

// Orchestrator gathers the analysis context for a user and runs every agent
// of its roster concurrently
type Orchestrator struct {
	store   Store
	feed    marketfeeds.Feed
	news    NewsSource
	weather WeatherSource
	roster  []Agent
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRoster replaces the default agents
func WithRoster(agents ...Agent) Option {
	return func(o *Orchestrator) {
		o.roster = agents
	}
}

// NewOrchestrator creates an orchestrator with the default roster: market
// analyzer, risk manager, news correlator and trade executor
func NewOrchestrator(
	store Store,
	feed marketfeeds.Feed,
	news NewsSource,
	weather WeatherSource,
	model llm.Model,
	validator *validation.Validator,
	logger *zap.Logger,
	opts ...Option,
) *Orchestrator {
	logger = logger.Named("agents")
	o := &Orchestrator{
		store:   store,
		feed:    feed,
		news:    news,
		weather: weather,
		logger:  logger,
		tracer:  otel.Tracer("github.com/Aidin1998/energydesk/internal/agents"),
		roster: []Agent{
			NewMarketAnalyzerAgent(store, model, validator, logger),
			NewRiskManagerAgent(store, model, logger),
			NewNewsCorrelatorAgent(store, model, logger),
			NewTradeExecutorAgent(store, logger),
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAnalysis runs one analysis cycle for userID. It never fails: errors and
// panics of individual agents are recorded in the report.
func (o *Orchestrator) RunAnalysis(ctx context.Context, userID string) Report {
	ctx, span := o.tracer.Start(ctx, "agents.RunAnalysis", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	report := Report{UserID: userID, StartedAt: time.Now()}
	ac := o.gather(ctx, userID)
	report.Quotes = len(ac.Quotes)

	results := make([]Result, len(o.roster))
	var g errgroup.Group
	for i, agent := range o.roster {
		g.Go(func() error {
			results[i] = o.runAgent(ctx, agent, ac)
			return nil
		})
	}
	_ = g.Wait()
	report.Results = results

	if failed := report.Failed(); len(failed) > 0 {
		span.SetAttributes(attribute.StringSlice("agents.failed", failed))
	}
	o.logger.Info("analysis complete",
		zap.String("user_id", userID),
		zap.Int("agents", len(results)),
		zap.Strings("failed", report.Failed()),
		zap.Duration("elapsed", time.Since(report.StartedAt)))
	return report
}

// gather loads positions and fetches quotes, news and weather. Quotes are
// persisted as market ticks.
func (o *Orchestrator) gather(ctx context.Context, userID string) *Context {
	ac := &Context{
		UserID:    userID,
		Positions: o.store.ListPositions(ctx, userID),
	}

	var g errgroup.Group
	g.Go(func() error {
		quotes, err := o.feed.FetchLatest(ctx)
		if err != nil {
			o.logger.Warn("market feed failed during analysis", zap.String("user_id", userID), zap.Error(err))
		}
		ac.Quotes = quotes
		return nil
	})
	g.Go(func() error {
		ac.News = o.news.FetchRecent(ctx)
		return nil
	})
	g.Go(func() error {
		ac.Weather = o.weather.FetchCurrent(ctx)
		return nil
	})
	_ = g.Wait()

	for _, q := range ac.Quotes {
		o.store.CreateMarketTick(ctx, models.MarketTick{
			Symbol:        q.Symbol,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Volume:        q.Volume,
		})
	}
	return ac
}

func (o *Orchestrator) runAgent(ctx context.Context, agent Agent, ac *Context) (res Result) {
	name := agent.Name()
	ctx, span := o.tracer.Start(ctx, "agent."+name, trace.WithAttributes(
		attribute.String("agent", name),
		attribute.String("user.id", ac.UserID),
	))
	start := time.Now()
	res.Agent = name

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("agent %s panicked: %v", name, r)
			res.Panicked = true
			o.logger.Error("agent panicked",
				zap.String("agent", name),
				zap.String("user_id", ac.UserID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
		res.Duration = time.Since(start)

		result := "ok"
		switch {
		case res.Panicked:
			result = "panic"
		case res.Err != nil:
			result = "error"
		}
		if res.Err != nil {
			res.Error = res.Err.Error()
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Error)
		}
		span.End()
		metrics.RecordAgentRun(ctx, name, result, res.Duration)
	}()

	if err := agent.Analyze(ctx, ac); err != nil {
		res.Err = err
		o.logger.Warn("agent failed",
			zap.String("agent", name),
			zap.String("user_id", ac.UserID),
			zap.Error(err))
	}
	return res
}
