package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/api/responses"
	"github.com/Aidin1998/energydesk/internal/ws"
	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// AnalysisSnapshot is the state pushed after an on-demand analysis
type AnalysisSnapshot struct {
	Insights   []models.Insight        `json:"insights"`
	RiskMetric *models.RiskMetric      `json:"riskMetric"`
	Activity   []models.ActivityRecord `json:"activity"`
}

// ListInsights returns a user's newest insights
func (h *Handler) ListInsights(c *gin.Context) {
	responses.Success(c, h.store.ListInsights(c.Request.Context(), c.Param("userId"), queryLimit(c, 10)))
}

// GetRisk returns the user's risk metric. A user never analysed gets an empty body.
func (h *Handler) GetRisk(c *gin.Context) {
	rm, ok := h.store.GetRiskMetric(c.Request.Context(), c.Param("userId"))
	if !ok {
		responses.Success(c, nil, "No risk metrics computed yet")
		return
	}
	responses.Success(c, rm)
}

// Analyze runs the agents for one user, then pushes the refreshed state
func (h *Handler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.Param("userId")
	if _, ok := h.store.GetUser(ctx, userID); !ok {
		responses.FromError(c, errors.NotFound.Explain("user %s not found", userID))
		return
	}

	report := h.analyzer.RunAnalysis(ctx, userID)

	snap := AnalysisSnapshot{
		Insights: h.store.ListInsights(ctx, userID, 10),
		Activity: h.store.ListActivity(ctx, userID, 10),
	}
	if rm, ok := h.store.GetRiskMetric(ctx, userID); ok {
		snap.RiskMetric = &rm
	}
	h.pub.SendToUser(userID, ws.NewEvent(ws.EventAnalysisComplete, snap))

	if failed := report.Failed(); len(failed) > 0 {
		h.logger.Warn("manual analysis finished with failures",
			zap.String("user_id", userID),
			zap.Strings("failed", failed))
	}
	responses.Success(c, gin.H{"failedAgents": report.Failed()}, "Analysis completed")
}
