package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position directions
const (
	PositionLong  = "long"
	PositionShort = "short"
)

// Insight priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Insight categories
const (
	CategoryAlert       = "alert"
	CategoryOpportunity = "opportunity"
	CategoryRisk        = "risk"
)

// Chat message roles
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Activity kinds and statuses
const (
	ActivityAlert   = "alert"
	ActivityTrade   = "trade"
	ActivityInsight = "insight"

	ActivityUnread = "unread"
	ActivityRead   = "read"
	ActivityActed  = "acted"
)

// User represents a dashboard user
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"` // bcrypt hash
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// NewUser is the input for creating a user
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Password string `json:"password" validate:"required,min=1,max=128"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Role     string `json:"role" validate:"omitempty,max=50"`
}

// UserUpdate carries the mutable user fields; nil fields are left untouched
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Position is an open position held by a user
type Position struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Symbol        string          `json:"symbol"`
	Type          string          `json:"type"` // long, short
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entryPrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Notional returns the signed market value of the position, negative for shorts.
func (p Position) Notional() decimal.Decimal {
	value := p.Quantity.Mul(p.CurrentPrice)
	if p.Type == PositionShort {
		return value.Neg()
	}
	return value
}

// PnlAt returns the unrealized P&L of the position if marked at price.
func (p Position) PnlAt(price decimal.Decimal) decimal.Decimal {
	diff := price.Sub(p.EntryPrice)
	if p.Type == PositionShort {
		diff = diff.Neg()
	}
	return diff.Mul(p.Quantity)
}

// NewPosition is the input for opening a position
type NewPosition struct {
	UserID        string          `json:"userId" validate:"required"`
	Symbol        string          `json:"symbol" validate:"required,symbol"`
	Type          string          `json:"type" validate:"required,oneof=long short"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0"`
	EntryPrice    decimal.Decimal `json:"entryPrice" validate:"gt=0"`
	CurrentPrice  decimal.Decimal `json:"currentPrice" validate:"gt=0"`
	UnrealizedPnl decimal.Decimal `json:"unrealizedPnl"`
}

// PositionUpdate carries the mutable position fields; nil fields are left untouched
type PositionUpdate struct {
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"currentPrice,omitempty"`
	UnrealizedPnl *decimal.Decimal `json:"unrealizedPnl,omitempty"`
}

// MarketTick is one timestamped price observation
type MarketTick struct {
	ID            string           `json:"id"`
	Symbol        string           `json:"symbol"`
	Price         decimal.Decimal  `json:"price"`
	Change        decimal.Decimal  `json:"change"`
	ChangePercent decimal.Decimal  `json:"changePercent"`
	Volume        *decimal.Decimal `json:"volume,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Quote is a normalized price observation produced by a market feed
type Quote struct {
	Symbol        string           `json:"symbol"`
	Price         decimal.Decimal  `json:"price"`
	Change        decimal.Decimal  `json:"change"`
	ChangePercent decimal.Decimal  `json:"changePercent"`
	Volume        *decimal.Decimal `json:"volume,omitempty"`
}

// Insight is one unit of agent-produced advisory text
type Insight struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	AgentType   string         `json:"agentType"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    string         `json:"priority"`
	Confidence  int            `json:"confidence"`
	Category    string         `json:"category"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// NewInsight is the input for storing an insight
type NewInsight struct {
	UserID      string         `json:"userId" validate:"required"`
	AgentType   string         `json:"agentType" validate:"required"`
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	Priority    string         `json:"priority" validate:"required,oneof=high medium low"`
	Confidence  int            `json:"confidence" validate:"min=0,max=100"`
	Category    string         `json:"category" validate:"required,oneof=alert opportunity risk"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ChatMessage is one message in a user's assistant conversation
type ChatMessage struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      string         `json:"type"` // user, assistant
	Content   string         `json:"content"`
	AgentType string         `json:"agentType,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewChatMessage is the input for storing a chat message
type NewChatMessage struct {
	UserID    string         `json:"userId" validate:"required"`
	Type      string         `json:"type" validate:"required,oneof=user assistant"`
	Content   string         `json:"content" validate:"required,max=4000"`
	AgentType string         `json:"agentType,omitempty" validate:"omitempty,max=64"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RiskMetric is the live risk summary for a user's portfolio
type RiskMetric struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	PortfolioValue decimal.Decimal `json:"portfolioValue"`
	VarOneDay      decimal.Decimal `json:"varOneDay"`
	VarOneWeek     decimal.Decimal `json:"varOneWeek"`
	MaxDrawdown    decimal.Decimal `json:"maxDrawdown"`
	RiskScore      int             `json:"riskScore"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// RiskMetricInput is the input for replacing a user's risk metrics
type RiskMetricInput struct {
	PortfolioValue decimal.Decimal `json:"portfolioValue"`
	VarOneDay      decimal.Decimal `json:"varOneDay"`
	VarOneWeek     decimal.Decimal `json:"varOneWeek"`
	MaxDrawdown    decimal.Decimal `json:"maxDrawdown"`
	RiskScore      int             `json:"riskScore" validate:"min=0,max=100"`
}

// ActivityRecord is an alert or trade entry in the user's activity feed
type ActivityRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"` // alert, trade, insight
	Description string    `json:"description"`
	Impact      string    `json:"impact,omitempty"`
	Status      string    `json:"status"` // unread, read, acted
	CreatedAt   time.Time `json:"createdAt"`
}

// NewActivity is the input for storing an activity record
type NewActivity struct {
	UserID      string `json:"userId" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=alert trade insight"`
	Description string `json:"description" validate:"required"`
	Impact      string `json:"impact,omitempty"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=unread read acted"`
}

// NewsItem is a market-moving news headline
type NewsItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PublishedAt string `json:"publishedAt"`
	Source      string `json:"source"`
}

// Weather is the current weather at the reference trading hub
type Weather struct {
	Temperature float64 `json:"temperature"`
	Conditions  string  `json:"conditions"`
	WindSpeed   float64 `json:"windSpeed"`
}
