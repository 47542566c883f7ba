package agents

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/llm"
	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
	"github.com/Aidin1998/energydesk/pkg/validation"
)

type marketAnalysis struct {
	Insights []struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Priority    string  `json:"priority"`
		Confidence  float64 `json:"confidence"`
		Category    string  `json:"category"`
	} `json:"insights"`
	Recommendations []string `json:"recommendations"`
	RiskAssessment  struct {
		Level   string   `json:"level"`
		Factors []string `json:"factors"`
	} `json:"riskAssessment"`
}

// MarketAnalyzerAgent turns the model's market analysis into insights and
// raises an alert for each high-priority one
type MarketAnalyzerAgent struct {
	store     Store
	model     llm.Model
	validator *validation.Validator
	logger    *zap.Logger
}

// NewMarketAnalyzerAgent creates the market analyzer
func NewMarketAnalyzerAgent(store Store, model llm.Model, validator *validation.Validator, logger *zap.Logger) *MarketAnalyzerAgent {
	return &MarketAnalyzerAgent{store: store, model: model, validator: validator, logger: logger.Named(MarketAnalyzer)}
}

// Name implements Agent
func (a *MarketAnalyzerAgent) Name() string { return MarketAnalyzer }

// Analyze implements Agent
func (a *MarketAnalyzerAgent) Analyze(ctx context.Context, ac *Context) error {
	var analysis marketAnalysis
	if err := a.model.Analyze(ctx, marketAnalysisPrompt(ac), &analysis); err != nil {
		return err
	}

	var errs []error
	for _, ins := range analysis.Insights {
		in := models.NewInsight{
			UserID:      ac.UserID,
			AgentType:   MarketAnalyzer,
			Title:       ins.Title,
			Description: ins.Description,
			Priority:    ins.Priority,
			Confidence:  clampScore(ins.Confidence),
			Category:    ins.Category,
			Metadata:    map[string]any{"recommendations": analysis.Recommendations},
		}
		if err := a.validator.ValidateStruct(in); err != nil {
			a.logger.Warn("discarding malformed insight", zap.String("title", ins.Title), zap.Error(err))
			continue
		}
		if _, err := a.store.CreateInsight(ctx, in); err != nil {
			errs = append(errs, err)
			continue
		}

		if in.Priority != models.PriorityHigh {
			continue
		}
		impact := "Neutral"
		if in.Category == models.CategoryRisk {
			impact = "High Risk"
		}
		if _, err := a.store.CreateActivity(ctx, models.NewActivity{
			UserID:      ac.UserID,
			Type:        models.ActivityAlert,
			Description: in.Title,
			Impact:      impact,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// clampScore rounds a model-supplied score into 0..100
func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}
