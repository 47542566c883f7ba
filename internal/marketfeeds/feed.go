// Package marketfeeds adapts external market, news and weather data sources
// and provides the synthetic fallback used when they are unavailable.
package marketfeeds

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// Feed produces the latest quotes for the tracked symbols
type Feed interface {
	FetchLatest(ctx context.Context) ([]models.Quote, error)
}

// FeedFunc adapts a function to the Feed interface
type FeedFunc func(ctx context.Context) ([]models.Quote, error)

// FetchLatest calls f(ctx)
func (f FeedFunc) FetchLatest(ctx context.Context) ([]models.Quote, error) {
	return f(ctx)
}

func newClient(baseURL string, cfg config.FeedsConfig) *resty.Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeader("Accept", "application/json")
	return client
}

var hundred = decimal.NewFromInt(100)
