package marketfeeds

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/internal/config"
	"github.com/Aidin1998/energydesk/pkg/models"
)

const newsPageSize = 10

// NewsFeed fetches recent energy-market headlines from NewsAPI
type NewsFeed struct {
	client *resty.Client
	apiKey string
	query  string
	logger *zap.Logger
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// NewNewsFeed creates a NewsAPI client
func NewNewsFeed(cfg config.FeedsConfig, logger *zap.Logger) *NewsFeed {
	return &NewsFeed{
		client: newClient(cfg.NewsAPIURL, cfg),
		apiKey: cfg.NewsAPIKey,
		query:  cfg.NewsQuery,
		logger: logger.Named("news_feed"),
	}
}

// FetchRecent returns the latest headlines, or an empty list when the
// credential is missing or the request fails
func (f *NewsFeed) FetchRecent(ctx context.Context) []models.NewsItem {
	items := []models.NewsItem{}
	if f.apiKey == "" {
		return items
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":        f.query,
			"sortBy":   "publishedAt",
			"pageSize": strconv.Itoa(newsPageSize),
			"apiKey":   f.apiKey,
		}).
		Get("/v2/everything")
	if err != nil {
		f.logger.Warn("news request failed", zap.Error(err))
		return items
	}
	if resp.StatusCode() != http.StatusOK {
		f.logger.Warn("news API error", zap.Int("status", resp.StatusCode()))
		return items
	}

	var body newsResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		f.logger.Warn("failed to parse news response", zap.Error(err))
		return items
	}
	for _, a := range body.Articles {
		items = append(items, models.NewsItem{
			Title:       a.Title,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
			Source:      a.Source.Name,
		})
	}
	return items
}
