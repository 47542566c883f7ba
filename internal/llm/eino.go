package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	aclopenai "github.com/cloudwego/eino-ext/libs/acl/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/errors"
)

// ChatModel calls an eino chat model. Analyze goes to the JSON-mode model
// when one is set.
type ChatModel struct {
	chat     model.BaseChatModel
	jsonChat model.BaseChatModel
	timeout  time.Duration
	logger   *zap.Logger
}

// ChatOption configures a ChatModel
type ChatOption func(*ChatModel)

// WithJSONChat sets the model used by Analyze, normally the same model
// configured for JSON object responses
func WithJSONChat(chat model.BaseChatModel) ChatOption {
	return func(m *ChatModel) {
		m.jsonChat = chat
	}
}

// NewChatModel wraps an existing eino chat model
func NewChatModel(chat model.BaseChatModel, timeout time.Duration, logger *zap.Logger, opts ...ChatOption) *ChatModel {
	m := &ChatModel{chat: chat, jsonChat: chat, timeout: timeout, logger: logger.Named("llm")}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New builds the configured model: an OpenAI-compatible eino chat model when
// an API key is present, Offline otherwise.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Model, error) {
	if cfg.APIKey == "" {
		logger.Info("no language model API key configured, agents will run offline")
		return Offline{}, nil
	}
	chat, err := openai.NewChatModel(ctx, chatConfig(cfg, false))
	if err != nil {
		return nil, err
	}
	jsonChat, err := openai.NewChatModel(ctx, chatConfig(cfg, true))
	if err != nil {
		return nil, err
	}
	return NewChatModel(chat, cfg.RequestTimeout, logger, WithJSONChat(jsonChat)), nil
}

func chatConfig(cfg config.LLMConfig, jsonMode bool) *openai.ChatModelConfig {
	maxTokens := cfg.MaxTokens
	c := &openai.ChatModelConfig{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
		Timeout:   cfg.RequestTimeout,
	}
	if jsonMode {
		c.ResponseFormat = &aclopenai.ChatCompletionResponseFormat{
			Type: aclopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return c
}

func (m *ChatModel) generate(ctx context.Context, chat model.BaseChatModel, p Prompt) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	messages := []*schema.Message{
		schema.SystemMessage(p.System),
		schema.UserMessage(p.User),
	}
	start := time.Now()
	reply, err := chat.Generate(ctx, messages, model.WithTemperature(p.Temperature))
	if err != nil {
		return "", errors.ModelError.Explain("generate failed").Wrap(err)
	}
	if reply == nil || reply.Content == "" {
		return "", errors.ModelError.Explain("empty model reply")
	}
	m.logger.Debug("model reply",
		zap.Duration("latency", time.Since(start)),
		zap.Int("chars", len(reply.Content)))
	return reply.Content, nil
}

// Analyze implements Model
func (m *ChatModel) Analyze(ctx context.Context, p Prompt, out any) error {
	content, err := m.generate(ctx, m.jsonChat, p)
	if err != nil {
		return err
	}
	return decodeJSON(content, out)
}

// Complete implements Model
func (m *ChatModel) Complete(ctx context.Context, p Prompt) (string, error) {
	return m.generate(ctx, m.chat, p)
}
