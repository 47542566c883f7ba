package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Aidin1998/energydesk/internal/llm"
)

const (
	analystSystem = "You are an expert energy trading analyst specializing in market analysis, risk assessment, and trading strategies. Respond with valid JSON only."
	riskSystem    = "You are a quantitative risk analyst specializing in energy trading. Provide accurate risk calculations in JSON format."
	// AssistantSystem is the persona used for free-text answers
	AssistantSystem = "You are an AI trading assistant specializing in energy markets. Provide clear, actionable responses to trader queries. Focus on market analysis, risk management, and trading strategies."
)

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func marketAnalysisPrompt(ac *Context) llm.Prompt {
	user := fmt.Sprintf(`Analyze the following market data and provide insights.

Market Data: %s
Current Positions: %s
User Query: General market analysis
Context: News: %s, Weather: %s

Respond with a JSON object with:
1. insights: array of {title, description, priority (high|medium|low), confidence (0-100), category (alert|opportunity|risk)}
2. recommendations: array of actionable recommendations
3. riskAssessment: {level (low|medium|high|extreme), factors: array}

Focus on energy trading specifics like volatility, geopolitical factors, weather impacts, supply/demand, and regulatory changes.`,
		toJSON(ac.Quotes), toJSON(ac.Positions), toJSON(ac.News), toJSON(ac.Weather))
	return llm.Prompt{System: analystSystem, User: user, Temperature: 0.7}
}

func riskAnalysisPrompt(ac *Context) llm.Prompt {
	user := fmt.Sprintf(`Analyze the risk of this energy trading portfolio.

Positions: %s
Market Data: %s

Respond with a JSON object with:
1. varOneDay: 1-day Value at Risk in USD
2. varOneWeek: 1-week Value at Risk in USD
3. maxDrawdown: maximum potential drawdown in USD
4. riskScore: risk score from 0 to 100
5. recommendations: array of risk management recommendations

Consider energy market volatility, correlation breakdowns, margin requirements, and geopolitical factors.`,
		toJSON(ac.Positions), toJSON(ac.Quotes))
	return llm.Prompt{System: riskSystem, User: user, Temperature: 0.3}
}

func newsCorrelationPrompt(ac *Context) llm.Prompt {
	lines := make([]string, 0, len(ac.News))
	for _, n := range ac.News {
		lines = append(lines, n.Title+": "+n.Description)
	}
	return QueryPrompt(
		"Analyze how this news affects energy markets and correlate with current positions",
		map[string]any{
			"news":       strings.Join(lines, "\n"),
			"positions":  ac.Positions,
			"marketData": ac.Quotes,
		},
	)
}

// QueryPrompt builds an assistant prompt for a free-text question with
// supporting context
func QueryPrompt(query string, data any) llm.Prompt {
	return llm.Prompt{
		System:      AssistantSystem,
		User:        fmt.Sprintf("Query: %s\nContext: %s", query, toJSON(data)),
		Temperature: 0.7,
	}
}
