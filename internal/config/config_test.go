package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.MarketInterval)
	assert.Equal(t, 60*time.Second, cfg.Scheduler.AnalysisInterval)
	assert.Equal(t, 4, cfg.Scheduler.AnalysisConcurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	require.Len(t, cfg.Feeds.Symbols, 4)
	assert.Equal(t, "NATURAL_GAS", cfg.Feeds.Symbols[0].Symbol)
	assert.Equal(t, "NG", cfg.Feeds.Symbols[0].ProviderSymbol)
	assert.InDelta(t, 2.80, cfg.Feeds.Symbols[0].BasePrice, 1e-9)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "av-test")
	t.Setenv("ENERGYDESK_SCHEDULER_MARKET_INTERVAL", "5s")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "av-test", cfg.Feeds.AlphaVantageAPIKey)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.MarketInterval)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "energydesk.yaml")
	content := `
log_level: debug
scheduler:
  analysis_interval: 2m
  analysis_concurrency: 2
feeds:
  symbols:
    - symbol: NATURAL_GAS
      provider_symbol: NG
      base_price: 3.1
      volatility: 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.AnalysisInterval)
	assert.Equal(t, 2, cfg.Scheduler.AnalysisConcurrency)
	require.Len(t, cfg.Feeds.Symbols, 1)
	assert.InDelta(t, 0.05, cfg.Feeds.Symbols[0].Volatility, 1e-9)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "zero market interval", mutate: func(c *Config) { c.Scheduler.MarketInterval = 0 }, wantErr: "market_interval"},
		{name: "no symbols", mutate: func(c *Config) { c.Feeds.Symbols = nil }, wantErr: "feeds.symbols"},
		{name: "duplicate symbol", mutate: func(c *Config) {
			c.Feeds.Symbols = append(c.Feeds.Symbols, c.Feeds.Symbols[0])
		}, wantErr: "duplicate"},
		{name: "volatility out of range", mutate: func(c *Config) { c.Feeds.Symbols[1].Volatility = 1.5 }, wantErr: "volatility"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 5000},
		WS:     WSConfig{SendQueueSize: 8},
		Scheduler: SchedulerConfig{
			MarketInterval:      time.Second,
			AnalysisInterval:    time.Second,
			AnalysisConcurrency: 1,
			RecentInsights:      5,
		},
		Feeds: FeedsConfig{Symbols: DefaultSymbols()},
	}
}
