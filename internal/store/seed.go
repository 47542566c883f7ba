package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Aidin1998/energydesk/pkg/models"
)

// DemoUsername is the account created by SeedDemo
const DemoUsername = "trader"

// SeedDemo creates the demo trader with sample positions, insights and
// activity. It does nothing if the demo user already exists.
func (s *Store) SeedDemo(ctx context.Context) (models.User, error) {
	if u, ok := s.GetUserByUsername(ctx, DemoUsername); ok {
		return u, nil
	}

	u, err := s.CreateUser(ctx, models.NewUser{
		Username: DemoUsername,
		Password: "demo",
		Name:     "Alex Thompson",
		Role:     "senior_trader",
	})
	if err != nil {
		return models.User{}, err
	}

	positions := []models.NewPosition{
		{
			UserID:        u.ID,
			Symbol:        "NATURAL_GAS",
			Type:          models.PositionLong,
			Quantity:      decimal.NewFromInt(150000),
			EntryPrice:    decimal.RequireFromString("2.75"),
			CurrentPrice:  decimal.RequireFromString("2.82"),
			UnrealizedPnl: decimal.NewFromInt(10500),
		},
		{
			UserID:        u.ID,
			Symbol:        "CRUDE_OIL",
			Type:          models.PositionShort,
			Quantity:      decimal.NewFromInt(50000),
			EntryPrice:    decimal.RequireFromString("75.20"),
			CurrentPrice:  decimal.RequireFromString("74.00"),
			UnrealizedPnl: decimal.NewFromInt(60000),
		},
	}
	for _, p := range positions {
		if _, err := s.CreatePosition(ctx, p); err != nil {
			return models.User{}, err
		}
	}

	insights := []models.NewInsight{
		{
			UserID:      u.ID,
			AgentType:   "market_analyzer",
			Title:       "Volatility Spike Detected in Natural Gas",
			Description: "Unusual trading volume and price movements suggest potential supply disruption. Consider risk management measures.",
			Priority:    models.PriorityHigh,
			Confidence:  92,
			Category:    models.CategoryAlert,
		},
		{
			UserID:      u.ID,
			AgentType:   "risk_manager",
			Title:       "Portfolio Concentration Risk",
			Description: "Current positions show 65% exposure to energy commodities. Diversification recommended.",
			Priority:    models.PriorityMedium,
			Confidence:  87,
			Category:    models.CategoryRisk,
		},
	}
	for _, in := range insights {
		if _, err := s.CreateInsight(ctx, in); err != nil {
			return models.User{}, err
		}
	}

	activity := []models.NewActivity{
		{UserID: u.ID, Type: models.ActivityAlert, Description: "High volatility detected in Natural Gas futures", Impact: "Monitor closely"},
		{UserID: u.ID, Type: models.ActivityTrade, Description: "Auto-executed hedge trade on crude oil position", Impact: "+$15,300"},
	}
	for _, a := range activity {
		if _, err := s.CreateActivity(ctx, a); err != nil {
			return models.User{}, err
		}
	}
	return u, nil
}
