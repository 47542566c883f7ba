// Package agents runs the roster of AI analysis agents for one user and
// persists what they produce.
package agents

import (
	"context"
	"time"

	"github.com/Aidin1998/energydesk/pkg/models"
)

// Agent names as recorded on insights
const (
	MarketAnalyzer = "market_analyzer"
	RiskManager    = "risk_manager"
	NewsCorrelator = "news_correlator"
	TradeExecutor  = "trade_executor"
)

// Agent analyzes one user's context and writes results to the store
type Agent interface {
	Name() string
	Analyze(ctx context.Context, ac *Context) error
}

// Context is the shared, read-only input of one analysis run
type Context struct {
	UserID    string
	Quotes    []models.Quote
	Positions []models.Position
	News      []models.NewsItem
	Weather   models.Weather
}

// Store is the subset of the data store the agents use
type Store interface {
	ListPositions(ctx context.Context, userID string) []models.Position
	CreateMarketTick(ctx context.Context, tick models.MarketTick) models.MarketTick
	CreateInsight(ctx context.Context, in models.NewInsight) (models.Insight, error)
	ListInsights(ctx context.Context, userID string, limit int) []models.Insight
	UpsertRiskMetric(ctx context.Context, userID string, in models.RiskMetricInput) (models.RiskMetric, error)
	CreateActivity(ctx context.Context, in models.NewActivity) (models.ActivityRecord, error)
}

// NewsSource supplies recent headlines; it never fails
type NewsSource interface {
	FetchRecent(ctx context.Context) []models.NewsItem
}

// WeatherSource supplies current weather; it never fails
type WeatherSource interface {
	FetchCurrent(ctx context.Context) models.Weather
}

// Result is the outcome of one agent within a run
type Result struct {
	Agent    string        `json:"agent"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Panicked bool          `json:"panicked,omitempty"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the agent completed without error
func (r Result) OK() bool {
	return r.Err == nil
}

// Report summarizes one RunAnalysis call
type Report struct {
	UserID    string    `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
	Quotes    int       `json:"quotes"`
	Results   []Result  `json:"results"`
}

// Failed returns the names of agents that did not complete
func (r Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res.Agent)
		}
	}
	return out
}
