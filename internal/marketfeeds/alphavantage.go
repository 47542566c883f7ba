package marketfeeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// AlphaVantageFeed fetches GLOBAL_QUOTE data for each tracked symbol
type AlphaVantageFeed struct {
	client  *resty.Client
	apiKey  string
	symbols []config.SymbolConfig
	logger  *zap.Logger
}

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
	Note        string            `json:"Note"`
	Information string            `json:"Information"`
}

// NewAlphaVantageFeed creates a live feed. It returns nil when no API key is
// configured so callers fall back to synthetic data.
func NewAlphaVantageFeed(cfg config.FeedsConfig, logger *zap.Logger) *AlphaVantageFeed {
	if cfg.AlphaVantageAPIKey == "" {
		return nil
	}
	return &AlphaVantageFeed{
		client:  newClient(cfg.AlphaVantageURL, cfg),
		apiKey:  cfg.AlphaVantageAPIKey,
		symbols: cfg.Symbols,
		logger:  logger.Named("alphavantage"),
	}
}

// FetchLatest returns the quotes that could be fetched. If any symbol failed
// the error is a FeedUnavailable naming them, alongside the partial result.
func (f *AlphaVantageFeed) FetchLatest(ctx context.Context) ([]models.Quote, error) {
	quotes := make([]models.Quote, 0, len(f.symbols))
	var failed []string
	for _, sym := range f.symbols {
		q, err := f.fetchQuote(ctx, sym)
		if err != nil {
			f.logger.Warn("quote fetch failed", zap.String("symbol", sym.Symbol), zap.Error(err))
			failed = append(failed, sym.Symbol)
			continue
		}
		quotes = append(quotes, q)
	}
	if len(failed) > 0 {
		return quotes, errors.FeedUnavailable.Explain("no live quote for %s", strings.Join(failed, ", "))
	}
	return quotes, nil
}

func (f *AlphaVantageFeed) fetchQuote(ctx context.Context, sym config.SymbolConfig) (models.Quote, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   sym.ProviderSymbol,
			"apikey":   f.apiKey,
		}).
		Get("/query")
	if err != nil {
		return models.Quote{}, fmt.Errorf("request %s: %w", sym.ProviderSymbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return models.Quote{}, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	var body globalQuoteResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return models.Quote{}, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if len(body.GlobalQuote) == 0 {
		// rate limiting and unknown symbols both come back as 200 without a quote
		return models.Quote{}, fmt.Errorf("empty quote for %s: %s%s", sym.ProviderSymbol, body.Note, body.Information)
	}

	price, err := decimal.NewFromString(body.GlobalQuote["05. price"])
	if err != nil || !price.IsPositive() {
		return models.Quote{}, fmt.Errorf("invalid price %q for %s", body.GlobalQuote["05. price"], sym.ProviderSymbol)
	}
	q := models.Quote{
		Symbol:        sym.Symbol,
		Price:         price,
		Change:        parseDecimal(body.GlobalQuote["09. change"]),
		ChangePercent: parseDecimal(strings.TrimSuffix(body.GlobalQuote["10. change percent"], "%")),
	}
	if v, err := decimal.NewFromString(body.GlobalQuote["06. volume"]); err == nil && v.IsPositive() {
		q.Volume = &v
	}
	return q, nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
