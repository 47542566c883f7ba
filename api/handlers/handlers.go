package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/agents"
	"github.com/Aidin1998/energydesk/internal/chat"
	"github.com/Aidin1998/energydesk/internal/ws"
	"github.com/Aidin1998/energydesk/pkg/models"
	"github.com/Aidin1998/energydesk/pkg/validation"
)

// Store is the part of the data store the API reads and writes
type Store interface {
	GetUser(ctx context.Context, id string) (models.User, bool)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	LatestMarketTicks(ctx context.Context) []models.MarketTick
	LatestMarketTick(ctx context.Context, symbol string) (models.MarketTick, bool)
	ListMarketTicks(ctx context.Context, symbol string) []models.MarketTick
	ListPositions(ctx context.Context, userID string) []models.Position
	CreatePosition(ctx context.Context, in models.NewPosition) (models.Position, error)
	ListInsights(ctx context.Context, userID string, limit int) []models.Insight
	ListChatMessages(ctx context.Context, userID string, limit int) []models.ChatMessage
	GetRiskMetric(ctx context.Context, userID string) (models.RiskMetric, bool)
	ListActivity(ctx context.Context, userID string, limit int) []models.ActivityRecord
	UpdateActivityStatus(ctx context.Context, id, status string) (models.ActivityRecord, error)
}

// Analyzer runs an on-demand analysis cycle
type Analyzer interface {
	RunAnalysis(ctx context.Context, userID string) agents.Report
}

// Assistant answers chat messages
type Assistant interface {
	Send(ctx context.Context, userID, content string) (chat.Exchange, error)
}

// Publisher pushes events to a connected user
type Publisher interface {
	SendToUser(userID string, ev ws.Event) bool
}

// Handler serves the /api routes
type Handler struct {
	store     Store
	analyzer  Analyzer
	assistant Assistant
	pub       Publisher
	validator *validation.Validator
	logger    *zap.Logger
}

// New creates the API handler set
func New(store Store, analyzer Analyzer, assistant Assistant, pub Publisher, validator *validation.Validator, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		analyzer:  analyzer,
		assistant: assistant,
		pub:       pub,
		validator: validator,
		logger:    logger.Named("api"),
	}
}

// Register mounts every route on rg
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)

	rg.GET("/market-data", h.ListMarketData)
	rg.GET("/market-data/:symbol", h.GetMarketData)
	rg.GET("/market-data/:symbol/history", h.GetMarketHistory)

	rg.GET("/positions/:userId", h.ListPositions)
	rg.POST("/positions", h.CreatePosition)

	rg.GET("/insights/:userId", h.ListInsights)
	rg.GET("/risk/:userId", h.GetRisk)
	rg.POST("/analyze/:userId", h.Analyze)

	rg.GET("/chat/:userId", h.ListChat)
	rg.POST("/chat", h.PostChat)

	rg.GET("/activity/:userId", h.ListActivity)
	rg.PATCH("/activity/:id", h.UpdateActivity)
}

// queryLimit reads ?limit=, falling back to def when absent or not a positive integer
func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
