package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimit       string        `mapstructure:"rate_limit"` // limiter format, e.g. "600-M"; empty disables
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WSConfig represents websocket push-channel configuration
type WSConfig struct {
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	SendQueueSize   int           `mapstructure:"send_queue_size"`
}

// SchedulerConfig represents the two periodic loops
type SchedulerConfig struct {
	MarketInterval      time.Duration `mapstructure:"market_interval"`
	AnalysisInterval    time.Duration `mapstructure:"analysis_interval"`
	AnalysisConcurrency int           `mapstructure:"analysis_concurrency"`
	RecentInsights      int           `mapstructure:"recent_insights"`
}

// SymbolConfig describes one tracked symbol and its synthetic fallback band
type SymbolConfig struct {
	Symbol         string  `mapstructure:"symbol"`
	ProviderSymbol string  `mapstructure:"provider_symbol"`
	BasePrice      float64 `mapstructure:"base_price"`
	Volatility     float64 `mapstructure:"volatility"`
}

// FeedsConfig represents external data feed configuration
type FeedsConfig struct {
	AlphaVantageURL    string         `mapstructure:"alpha_vantage_url"`
	AlphaVantageAPIKey string         `mapstructure:"alpha_vantage_api_key"`
	NewsAPIURL         string         `mapstructure:"news_api_url"`
	NewsAPIKey         string         `mapstructure:"news_api_key"`
	NewsQuery          string         `mapstructure:"news_query"`
	OpenWeatherURL     string         `mapstructure:"open_weather_url"`
	OpenWeatherAPIKey  string         `mapstructure:"open_weather_api_key"`
	WeatherCity        string         `mapstructure:"weather_city"`
	RequestTimeout     time.Duration  `mapstructure:"request_timeout"`
	Symbols            []SymbolConfig `mapstructure:"symbols"`
}

// LLMConfig represents the language model configuration
type LLMConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TelemetryConfig toggles OpenTelemetry export
type TelemetryConfig struct {
	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	ServiceName    string `mapstructure:"service_name"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// Config represents the application configuration
type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	SeedDemo  bool            `mapstructure:"seed_demo"`
	Server    ServerConfig    `mapstructure:"server"`
	WS        WSConfig        `mapstructure:"websocket"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Feeds     FeedsConfig     `mapstructure:"feeds"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// DefaultSymbols are the energy contracts tracked by the dashboard
func DefaultSymbols() []SymbolConfig {
	return []SymbolConfig{
		{Symbol: "NATURAL_GAS", ProviderSymbol: "NG", BasePrice: 2.80, Volatility: 0.02},
		{Symbol: "CRUDE_OIL", ProviderSymbol: "CL", BasePrice: 74.00, Volatility: 0.02},
		{Symbol: "POWER_PRICE", ProviderSymbol: "PWR", BasePrice: 45.00, Volatility: 0.02},
		{Symbol: "CARBON_CREDITS", ProviderSymbol: "CCF", BasePrice: 28.50, Volatility: 0.02},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("seed_demo", true)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", "600-M")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("websocket.read_buffer_size", 1024)
	v.SetDefault("websocket.write_buffer_size", 1024)
	v.SetDefault("websocket.ping_interval", 54*time.Second)
	v.SetDefault("websocket.pong_timeout", 60*time.Second)
	v.SetDefault("websocket.write_timeout", 10*time.Second)
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_queue_size", 64)

	v.SetDefault("scheduler.market_interval", 30*time.Second)
	v.SetDefault("scheduler.analysis_interval", 60*time.Second)
	v.SetDefault("scheduler.analysis_concurrency", 4)
	v.SetDefault("scheduler.recent_insights", 5)

	v.SetDefault("feeds.alpha_vantage_url", "https://www.alphavantage.co")
	v.SetDefault("feeds.news_api_url", "https://newsapi.org")
	v.SetDefault("feeds.news_query", "energy trading oil gas power")
	v.SetDefault("feeds.open_weather_url", "https://api.openweathermap.org")
	v.SetDefault("feeds.weather_city", "Houston,TX,US")
	v.SetDefault("feeds.request_timeout", 10*time.Second)
	symbols := make([]map[string]any, 0, len(DefaultSymbols()))
	for _, s := range DefaultSymbols() {
		symbols = append(symbols, map[string]any{
			"symbol":          s.Symbol,
			"provider_symbol": s.ProviderSymbol,
			"base_price":      s.BasePrice,
			"volatility":      s.Volatility,
		})
	}
	v.SetDefault("feeds.symbols", symbols)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.request_timeout", 45*time.Second)

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.metrics_enabled", false)
	v.SetDefault("telemetry.service_name", "energydesk")
}

// credential and legacy variable names honoured in addition to the
// automatic ENERGYDESK_* mapping
var envAliases = map[string][]string{
	"log_level":                   {"LOG_LEVEL"},
	"server.port":                 {"SERVER_PORT", "PORT"},
	"feeds.alpha_vantage_api_key": {"ALPHA_VANTAGE_API_KEY", "AV_API_KEY"},
	"feeds.news_api_key":          {"NEWS_API_KEY", "NEWSAPI_KEY"},
	"feeds.open_weather_api_key":  {"OPENWEATHER_API_KEY", "WEATHER_API_KEY"},
	"llm.api_key":                 {"OPENAI_API_KEY"},
	"llm.base_url":                {"OPENAI_BASE_URL"},
	"llm.model":                   {"OPENAI_MODEL"},
}

// LoadConfig loads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. An empty path searches
// ./config.yaml, ./config/config.yaml and /etc/energydesk/config.yaml.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/energydesk")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use default and environment values
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ENERGYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key, "ENERGYDESK_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Scheduler.MarketInterval <= 0 {
		problems = append(problems, "scheduler.market_interval must be positive")
	}
	if c.Scheduler.AnalysisInterval <= 0 {
		problems = append(problems, "scheduler.analysis_interval must be positive")
	}
	if c.Scheduler.AnalysisConcurrency <= 0 {
		problems = append(problems, "scheduler.analysis_concurrency must be positive")
	}
	if c.Scheduler.RecentInsights <= 0 {
		problems = append(problems, "scheduler.recent_insights must be positive")
	}
	if c.WS.SendQueueSize <= 0 {
		problems = append(problems, "websocket.send_queue_size must be positive")
	}
	if len(c.Feeds.Symbols) == 0 {
		problems = append(problems, "feeds.symbols must not be empty")
	}
	seen := make(map[string]bool, len(c.Feeds.Symbols))
	for _, s := range c.Feeds.Symbols {
		switch {
		case s.Symbol == "":
			problems = append(problems, "feeds.symbols entry without symbol")
		case seen[s.Symbol]:
			problems = append(problems, fmt.Sprintf("feeds.symbols duplicate %s", s.Symbol))
		case s.BasePrice <= 0:
			problems = append(problems, fmt.Sprintf("feeds.symbols %s base_price must be positive", s.Symbol))
		case s.Volatility < 0 || s.Volatility >= 1:
			problems = append(problems, fmt.Sprintf("feeds.symbols %s volatility must be in [0,1)", s.Symbol))
		}
		seen[s.Symbol] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
