package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
)

const recentInsightWindow = 5

// TradeExecutorAgent simulates acting on high-priority opportunities. No
// order is routed anywhere; each trade is only recorded as activity.
type TradeExecutorAgent struct {
	store  Store
	logger *zap.Logger
}

// NewTradeExecutorAgent creates the trade executor
func NewTradeExecutorAgent(store Store, logger *zap.Logger) *TradeExecutorAgent {
	return &TradeExecutorAgent{store: store, logger: logger.Named(TradeExecutor)}
}

// Name implements Agent
func (a *TradeExecutorAgent) Name() string { return TradeExecutor }

// Analyze implements Agent
func (a *TradeExecutorAgent) Analyze(ctx context.Context, ac *Context) error {
	var errs []error
	for _, ins := range a.store.ListInsights(ctx, ac.UserID, recentInsightWindow) {
		if ins.Priority != models.PriorityHigh || ins.Category != models.CategoryOpportunity {
			continue
		}
		if _, err := a.store.CreateActivity(ctx, models.NewActivity{
			UserID:      ac.UserID,
			Type:        models.ActivityTrade,
			Description: "Auto-executed trade based on AI insight: " + ins.Title,
			Impact:      "Simulated",
		}); err != nil {
			errs = append(errs, err)
			continue
		}
		a.logger.Info("simulated trade", zap.String("user_id", ac.UserID), zap.String("insight_id", ins.ID))
	}
	return errors.Join(errs...)
}
