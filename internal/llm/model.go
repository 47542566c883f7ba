// Package llm adapts chat-completion models to the two calls the agents need:
// schema-shaped JSON analysis and free-text completion.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Aidin1998/energydesk/pkg/errors"
)

// Prompt is one system + user exchange
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// Model is a language model. Every failure is reported as errors.ModelError.
type Model interface {
	// Analyze asks for a JSON object and decodes it into out
	Analyze(ctx context.Context, prompt Prompt, out any) error
	// Complete asks for free text
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Offline is the Model used when no credential is configured
type Offline struct{}

var errOffline = errors.ModelError.Explain("language model is not configured")

// Analyze always fails
func (Offline) Analyze(context.Context, Prompt, any) error {
	return errOffline
}

// Complete always fails
func (Offline) Complete(context.Context, Prompt) (string, error) {
	return "", errOffline
}

// decodeJSON extracts the JSON object from a model reply, tolerating markdown
// code fences and leading prose
func decodeJSON(content string, out any) error {
	body := strings.TrimSpace(content)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return errors.ModelError.Explain("model reply is not valid JSON").Wrap(err)
	}
	return nil
}
