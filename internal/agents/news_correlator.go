package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/llm"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// NewsCorrelatorAgent relates recent headlines to the user's book
type NewsCorrelatorAgent struct {
	store  Store
	model  llm.Model
	logger *zap.Logger
}

// NewNewsCorrelatorAgent creates the news correlator
func NewNewsCorrelatorAgent(store Store, model llm.Model, logger *zap.Logger) *NewsCorrelatorAgent {
	return &NewsCorrelatorAgent{store: store, model: model, logger: logger.Named(NewsCorrelator)}
}

// Name implements Agent
func (a *NewsCorrelatorAgent) Name() string { return NewsCorrelator }

// Analyze implements Agent. Without news it writes nothing.
func (a *NewsCorrelatorAgent) Analyze(ctx context.Context, ac *Context) error {
	if len(ac.News) == 0 {
		return nil
	}
	correlation, err := a.model.Complete(ctx, newsCorrelationPrompt(ac))
	if err != nil {
		return err
	}
	_, err = a.store.CreateInsight(ctx, models.NewInsight{
		UserID:      ac.UserID,
		AgentType:   NewsCorrelator,
		Title:       "News-Market Correlation Analysis",
		Description: correlation,
		Priority:    models.PriorityMedium,
		Confidence:  85,
		Category:    models.CategoryAlert,
		Metadata:    map[string]any{"newsCount": len(ac.News)},
	})
	return err
}
