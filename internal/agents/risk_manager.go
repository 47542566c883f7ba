package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/llm"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// HighRiskThreshold is the score above which the risk manager raises an insight
const HighRiskThreshold = 75

type riskAnalysis struct {
	VarOneDay       decimal.Decimal `json:"varOneDay"`
	VarOneWeek      decimal.Decimal `json:"varOneWeek"`
	MaxDrawdown     decimal.Decimal `json:"maxDrawdown"`
	RiskScore       float64         `json:"riskScore"`
	Recommendations []string        `json:"recommendations"`
}

// RiskManagerAgent refreshes the user's risk metrics
type RiskManagerAgent struct {
	store  Store
	model  llm.Model
	logger *zap.Logger
}

// NewRiskManagerAgent creates the risk manager
func NewRiskManagerAgent(store Store, model llm.Model, logger *zap.Logger) *RiskManagerAgent {
	return &RiskManagerAgent{store: store, model: model, logger: logger.Named(RiskManager)}
}

// Name implements Agent
func (a *RiskManagerAgent) Name() string { return RiskManager }

// Analyze implements Agent
func (a *RiskManagerAgent) Analyze(ctx context.Context, ac *Context) error {
	var analysis riskAnalysis
	if err := a.model.Analyze(ctx, riskAnalysisPrompt(ac), &analysis); err != nil {
		return err
	}

	score := clampScore(analysis.RiskScore)
	metric, err := a.store.UpsertRiskMetric(ctx, ac.UserID, models.RiskMetricInput{
		PortfolioValue: PortfolioValue(ac.Positions),
		VarOneDay:      analysis.VarOneDay,
		VarOneWeek:     analysis.VarOneWeek,
		MaxDrawdown:    analysis.MaxDrawdown,
		RiskScore:      score,
	})
	if err != nil {
		return err
	}
	a.logger.Debug("risk metrics updated", zap.String("user_id", ac.UserID), zap.Int("risk_score", metric.RiskScore))

	if score <= HighRiskThreshold {
		return nil
	}
	_, err = a.store.CreateInsight(ctx, models.NewInsight{
		UserID:      ac.UserID,
		AgentType:   RiskManager,
		Title:       "High Portfolio Risk Detected",
		Description: fmt.Sprintf("Portfolio risk score is %d%%. Recommendations: %s", score, strings.Join(analysis.Recommendations, ", ")),
		Priority:    models.PriorityHigh,
		Confidence:  95,
		Category:    models.CategoryRisk,
		Metadata: map[string]any{
			"riskScore":       score,
			"recommendations": analysis.Recommendations,
		},
	})
	return err
}

// PortfolioValue is the signed notional of positions: longs add, shorts subtract
func PortfolioValue(positions []models.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.Notional())
	}
	return total
}
