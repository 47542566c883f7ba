package marketfeeds

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/errors"
	"github.com/Aidin1998/energydesk/pkg/metrics"
	"github.com/Aidin1998/energydesk/pkg/models"
)

func testFeedsConfig(baseURL string) config.FeedsConfig {
	return config.FeedsConfig{
		AlphaVantageURL:    baseURL,
		AlphaVantageAPIKey: "test-key",
		NewsAPIURL:         baseURL,
		NewsAPIKey:         "news-key",
		NewsQuery:          "energy",
		OpenWeatherURL:     baseURL,
		OpenWeatherAPIKey:  "weather-key",
		WeatherCity:        "Houston,TX,US",
		RequestTimeout:     2 * time.Second,
		Symbols:            config.DefaultSymbols(),
	}
}

func assertWithinBand(t *testing.T, sym config.SymbolConfig, price decimal.Decimal) {
	t.Helper()
	base := decimal.NewFromFloat(sym.BasePrice)
	vol := decimal.NewFromFloat(sym.Volatility)
	lo := base.Mul(decimal.NewFromInt(1).Sub(vol))
	hi := base.Mul(decimal.NewFromInt(1).Add(vol))
	assert.Truef(t, price.GreaterThanOrEqual(lo) && price.LessThanOrEqual(hi),
		"%s price %s outside [%s, %s]", sym.Symbol, price, lo, hi)
}

func TestSyntheticFeedStaysWithinBand(t *testing.T) {
	symbols := config.DefaultSymbols()
	feed := NewSyntheticFeed(symbols, WithRand(rand.New(rand.NewPCG(1, 2))))

	for range 500 {
		quotes, err := feed.FetchLatest(context.Background())
		require.NoError(t, err)
		require.Len(t, quotes, len(symbols))
		for i, q := range quotes {
			assert.Equal(t, symbols[i].Symbol, q.Symbol)
			assertWithinBand(t, symbols[i], q.Price)
		}
	}
}

func TestSyntheticFeedChangeIsRelativeToPrevious(t *testing.T) {
	symbols := config.DefaultSymbols()[:1]
	feed := NewSyntheticFeed(symbols, WithRand(rand.New(rand.NewPCG(7, 7))))

	first, err := feed.Quote("NATURAL_GAS")
	require.NoError(t, err)
	second, err := feed.Quote("NATURAL_GAS")
	require.NoError(t, err)

	assert.True(t, second.Change.Equal(second.Price.Sub(first.Price)))
	assert.True(t, first.Change.Equal(first.Price.Sub(decimal.RequireFromString("2.8"))))

	_, err = feed.Quote("UNKNOWN")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestFallbackFeedSubstitutesFailedSymbols(t *testing.T) {
	symbols := config.DefaultSymbols()
	primary := FeedFunc(func(context.Context) ([]models.Quote, error) {
		return []models.Quote{
			{Symbol: "CRUDE_OIL", Price: decimal.RequireFromString("75.10")},
			{Symbol: "POWER_PRICE", Price: decimal.Zero},
		}, errors.FeedUnavailable.Explain("no live quote for NATURAL_GAS")
	})
	before := testutil.ToFloat64(metrics.FeedFallbacks.WithLabelValues("NATURAL_GAS"))

	feed := NewFallbackFeed(primary, NewSyntheticFeed(symbols), zap.NewNop())
	quotes, err := feed.FetchLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 4)

	for i, q := range quotes {
		assert.Equal(t, symbols[i].Symbol, q.Symbol)
	}
	assert.Equal(t, "75.1", quotes[1].Price.String(), "live quote is kept")
	assertWithinBand(t, symbols[0], quotes[0].Price)
	assertWithinBand(t, symbols[2], quotes[2].Price)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.FeedFallbacks.WithLabelValues("NATURAL_GAS")))
}

func TestFallbackFeedTotalFailure(t *testing.T) {
	symbols := config.DefaultSymbols()
	primary := FeedFunc(func(context.Context) ([]models.Quote, error) {
		return nil, fmt.Errorf("connection refused")
	})

	quotes, err := NewFallbackFeed(primary, NewSyntheticFeed(symbols), zap.NewNop()).FetchLatest(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, len(symbols))
	for i, q := range quotes {
		assertWithinBand(t, symbols[i], q.Price)
	}
}

func TestNewMarketFeedWithoutKeyIsSynthetic(t *testing.T) {
	cfg := testFeedsConfig("http://127.0.0.1:0")
	cfg.AlphaVantageAPIKey = ""

	feed := NewMarketFeed(cfg, zap.NewNop())
	assert.Nil(t, feed.primary)

	quotes, err := feed.FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Len(t, quotes, 4)
}

func TestAlphaVantageFeedPartialResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "NG":
			fmt.Fprint(w, `{"Global Quote":{"05. price":"2.8200","06. volume":"12000","09. change":"0.0700","10. change percent":"2.5000%"}}`)
		case "CL":
			fmt.Fprint(w, `{"Note":"API call frequency exceeded"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	feed := NewAlphaVantageFeed(testFeedsConfig(srv.URL), zap.NewNop())
	require.NotNil(t, feed)

	quotes, err := feed.FetchLatest(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.FeedUnavailable))
	assert.Contains(t, err.Error(), "CRUDE_OIL")

	require.Len(t, quotes, 1)
	q := quotes[0]
	assert.Equal(t, "NATURAL_GAS", q.Symbol)
	assert.Equal(t, "2.82", q.Price.String())
	assert.Equal(t, "0.07", q.Change.String())
	assert.Equal(t, "2.5", q.ChangePercent.String())
	require.NotNil(t, q.Volume)
	assert.Equal(t, "12000", q.Volume.String())
}

func TestAlphaVantageFeedRequiresKey(t *testing.T) {
	cfg := testFeedsConfig("http://127.0.0.1:0")
	cfg.AlphaVantageAPIKey = ""
	assert.Nil(t, NewAlphaVantageFeed(cfg, zap.NewNop()))
}

func TestNewsFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "news-key", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","articles":[{"title":"Storm hits Gulf","description":"Output cut","publishedAt":"2025-01-01T00:00:00Z","source":{"name":"Wire"}}]}`)
	}))
	defer srv.Close()

	items := NewNewsFeed(testFeedsConfig(srv.URL), zap.NewNop()).FetchRecent(context.Background())
	require.Len(t, items, 1)
	assert.Equal(t, models.NewsItem{
		Title:       "Storm hits Gulf",
		Description: "Output cut",
		PublishedAt: "2025-01-01T00:00:00Z",
		Source:      "Wire",
	}, items[0])
}

func TestNewsFeedFailuresReturnEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	items := NewNewsFeed(testFeedsConfig(srv.URL), zap.NewNop()).FetchRecent(context.Background())
	assert.NotNil(t, items)
	assert.Empty(t, items)

	cfg := testFeedsConfig(srv.URL)
	cfg.NewsAPIKey = ""
	assert.Empty(t, NewNewsFeed(cfg, zap.NewNop()).FetchRecent(context.Background()))
}

func TestWeatherFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"main":{"temp":31.5},"weather":[{"main":"Clouds"}],"wind":{}}`)
	}))
	defer srv.Close()

	got := NewWeatherFeed(testFeedsConfig(srv.URL), zap.NewNop()).FetchCurrent(context.Background())
	assert.Equal(t, models.Weather{Temperature: 31.5, Conditions: "Clouds", WindSpeed: 5}, got)
}

func TestWeatherFeedDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	assert.Equal(t, DefaultWeather, NewWeatherFeed(testFeedsConfig(srv.URL), zap.NewNop()).FetchCurrent(context.Background()))

	cfg := testFeedsConfig(srv.URL)
	cfg.OpenWeatherAPIKey = ""
	assert.Equal(t, DefaultWeather, NewWeatherFeed(cfg, zap.NewNop()).FetchCurrent(context.Background()))
}
