package marketfeeds

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/models"
)

// DefaultWeather is reported when live weather is unavailable
var DefaultWeather = models.Weather{Temperature: 25, Conditions: "Clear", WindSpeed: 5}

// WeatherFeed fetches current conditions at the reference trading hub
type WeatherFeed struct {
	client *resty.Client
	apiKey string
	city   string
	logger *zap.Logger
}

type weatherResponse struct {
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Wind struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

// NewWeatherFeed creates an OpenWeather client
func NewWeatherFeed(cfg config.FeedsConfig, logger *zap.Logger) *WeatherFeed {
	return &WeatherFeed{
		client: newClient(cfg.OpenWeatherURL, cfg),
		apiKey: cfg.OpenWeatherAPIKey,
		city:   cfg.WeatherCity,
		logger: logger.Named("weather_feed"),
	}
}

// FetchCurrent returns current weather, falling back to DefaultWeather per
// field and entirely when the credential is missing or the request fails
func (f *WeatherFeed) FetchCurrent(ctx context.Context) models.Weather {
	if f.apiKey == "" {
		return DefaultWeather
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     f.city,
			"appid": f.apiKey,
			"units": "metric",
		}).
		Get("/data/2.5/weather")
	if err != nil {
		f.logger.Warn("weather request failed", zap.Error(err))
		return DefaultWeather
	}
	if resp.StatusCode() != http.StatusOK {
		f.logger.Warn("weather API error", zap.Int("status", resp.StatusCode()))
		return DefaultWeather
	}

	var body weatherResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		f.logger.Warn("failed to parse weather response", zap.Error(err))
		return DefaultWeather
	}

	w := DefaultWeather
	if body.Main.Temp != nil {
		w.Temperature = *body.Main.Temp
	}
	if len(body.Weather) > 0 && body.Weather[0].Main != "" {
		w.Conditions = body.Weather[0].Main
	}
	if body.Wind.Speed != nil {
		w.WindSpeed = *body.Wind.Speed
	}
	return w
}
