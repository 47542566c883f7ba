// Package chat implements the trading assistant conversation.
package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/agents"
	"github.com/Aidin1998/energydesk/internal/llm"
	"github.com/Aidin1998/energydesk/internal/ws"
	"github.com/Aidin1998/energydesk/pkg/models"
	"github.com/Aidin1998/energydesk/pkg/validation"
)

// AssistantAgent is the agent type recorded on assistant replies
const AssistantAgent = "trading_assistant"

// FallbackReply is stored when the model cannot answer
const FallbackReply = "I apologize, but I couldn't process your query at this time."

// Store is the subset of the data store the assistant uses
type Store interface {
	CreateChatMessage(ctx context.Context, in models.NewChatMessage) (models.ChatMessage, error)
	ListPositions(ctx context.Context, userID string) []models.Position
	LatestMarketTicks(ctx context.Context) []models.MarketTick
}

// Publisher pushes events to a connected user
type Publisher interface {
	SendToUser(userID string, ev ws.Event) bool
}

// Exchange is one question and its answer
type Exchange struct {
	UserMessage models.ChatMessage `json:"userMessage"`
	AIMessage   models.ChatMessage `json:"aiMessage"`
}

// Service answers trader questions with the language model
type Service struct {
	store     Store
	model     llm.Model
	validator *validation.Validator
	pub       Publisher
	logger    *zap.Logger
}

// NewService creates a chat service
func NewService(store Store, model llm.Model, validator *validation.Validator, pub Publisher, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		model:     model,
		validator: validator,
		pub:       pub,
		logger:    logger.Named("chat"),
	}
}

// Send stores the user's message, asks the model for a reply, stores it and
// pushes both messages to the user
func (s *Service) Send(ctx context.Context, userID, content string) (Exchange, error) {
	in := models.NewChatMessage{
		UserID:  userID,
		Type:    models.ChatRoleUser,
		Content: s.validator.SanitizeInput(content),
	}
	if err := s.validator.ValidateStruct(in); err != nil {
		return Exchange{}, err
	}

	userMsg, err := s.store.CreateChatMessage(ctx, in)
	if err != nil {
		return Exchange{}, err
	}

	reply, err := s.model.Complete(ctx, agents.QueryPrompt(in.Content, map[string]any{
		"positions":  s.store.ListPositions(ctx, userID),
		"marketData": s.store.LatestMarketTicks(ctx),
		"user":       userID,
	}))
	if err != nil {
		s.logger.Warn("assistant reply failed", zap.String("user_id", userID), zap.Error(err))
		reply = FallbackReply
	}

	aiMsg, err := s.store.CreateChatMessage(ctx, models.NewChatMessage{
		UserID:    userID,
		Type:      models.ChatRoleAssistant,
		Content:   reply,
		AgentType: AssistantAgent,
	})
	if err != nil {
		return Exchange{}, err
	}

	s.pub.SendToUser(userID, ws.NewEvent(ws.EventChatMessages, []models.ChatMessage{userMsg, aiMsg}))
	return Exchange{UserMessage: userMsg, AIMessage: aiMsg}, nil
}
