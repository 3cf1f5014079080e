package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"VolSentinel/internal/calculator"
	"VolSentinel/internal/saver"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAlphaVantage = "alphavantage"
	ProviderFinnhub      = "finnhub"
	ProviderMock         = "mock"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider       string        `yaml:"provider"`
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		APIKeyFile     string        `yaml:"api_key_file"`
		EquityFunction string        `yaml:"equity_function"` // Alpha Vantage only
		RequestDelay   time.Duration `yaml:"request_delay"`
		CacheSize      uint          `yaml:"cache_size"`
	} `yaml:"data_source"`
	Symbols struct {
		Equity   string            `yaml:"equity"`
		VolIndex string            `yaml:"vol_index"`
		Aliases  map[string]string `yaml:"aliases"`
	} `yaml:"symbols"`
	Range struct {
		StartDate    string `yaml:"start_date"`
		EndDate      string `yaml:"end_date"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"range"`
	Output struct {
		DataDir string `yaml:"data_dir"`
		Format  string `yaml:"format"`
	} `yaml:"output"`
	Volatility struct {
		calculator.Params `yaml:",inline"`
		Estimators        []string `yaml:"estimators"`
		InputPath         string   `yaml:"input_path"`
		OutputPath        string   `yaml:"output_path"`
	} `yaml:"volatility"`
	Schedule struct {
		FetchCron string `yaml:"fetch_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads the optional .env file (ENV_FILE, default ".env"), then config
// from a YAML file, then applies environment variable overrides and defaults.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.DataSource.APIKey == "" && cfg.DataSource.APIKeyFile != "" {
		key, err := readAPIKeyFile(cfg.DataSource.APIKeyFile, cfg.DataSource.Provider)
		if err != nil {
			return nil, err
		}
		cfg.DataSource.APIKey = key
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	// Provider-specific keys, as the upstream services name them.
	provider := strings.ToLower(c.DataSource.Provider)
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" && (provider == "" || provider == ProviderAlphaVantage) {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" && provider == ProviderFinnhub {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("REQUEST_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DataSource.RequestDelay = d
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("START_DATE"); v != "" {
		c.Range.StartDate = v
	}
	if v := os.Getenv("END_DATE"); v != "" {
		c.Range.EndDate = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Output.DataDir = v
	}
	if v := os.Getenv("OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	if v := os.Getenv("ROLLING_WINDOW"); v != "" {
		var w int
		if _, err := fmt.Sscanf(v, "%d", &w); err == nil {
			c.Volatility.RollingWindow = w
		}
	}
	if v := os.Getenv("VOL_INPUT_PATH"); v != "" {
		c.Volatility.InputPath = v
	}
	if v := os.Getenv("VOL_OUTPUT_PATH"); v != "" {
		c.Volatility.OutputPath = v
	}
	if v := os.Getenv("CRON_FETCH"); v != "" {
		c.Schedule.FetchCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
}

func (c *Config) applyDefaults() {
	c.DataSource.Provider = strings.ToLower(strings.TrimSpace(c.DataSource.Provider))
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = ProviderAlphaVantage
	}
	if c.DataSource.RequestDelay == 0 {
		c.DataSource.RequestDelay = 12 * time.Second
	}
	if c.DataSource.CacheSize == 0 {
		c.DataSource.CacheSize = 16
	}
	if c.Symbols.Equity == "" {
		c.Symbols.Equity = "SPX"
	}
	if c.Symbols.VolIndex == "" {
		c.Symbols.VolIndex = "VIX"
	}
	if c.Range.LookbackDays == 0 {
		c.Range.LookbackDays = 365
	}
	if c.Output.DataDir == "" {
		c.Output.DataDir = "market data"
	}
	if c.Output.Format == "" {
		c.Output.Format = "csv"
	}

	def := calculator.DefaultParams()
	if c.Volatility.RollingWindow == 0 {
		c.Volatility.RollingWindow = def.RollingWindow
	}
	if c.Volatility.AnnualisationFactor == 0 {
		c.Volatility.AnnualisationFactor = def.AnnualisationFactor
	}
	if c.Volatility.RVWindow == 0 {
		c.Volatility.RVWindow = def.RVWindow
	}
	if c.Volatility.InputPath == "" {
		c.Volatility.InputPath = "market data/SPX_History.csv"
	}
	if c.Volatility.OutputPath == "" {
		c.Volatility.OutputPath = "spx_volatility_results.csv"
	}
}

// readAPIKeyFile reads a JSON settings file holding per-provider keys.
func readAPIKeyFile(path, provider string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read api key file: %w", err)
	}
	var keys struct {
		Finnhub      string `json:"finnhub_api_key"`
		AlphaVantage string `json:"alphavantage_api_key"`
	}
	if err := json.Unmarshal(data, &keys); err != nil {
		return "", fmt.Errorf("parse api key file %s: %w", path, err)
	}
	if provider == ProviderFinnhub {
		return keys.Finnhub, nil
	}
	return keys.AlphaVantage, nil
}

// Validate checks every section used by the fetcher and the calculator.
func (c *Config) Validate() error {
	if err := c.ValidateFetch(); err != nil {
		return err
	}
	return c.ValidateVolatility()
}

// ValidateFetch checks the data source, output, schedule and notifier settings.
func (c *Config) ValidateFetch() error {
	switch c.DataSource.Provider {
	case ProviderAlphaVantage, ProviderFinnhub:
		if c.DataSource.APIKey == "" {
			return fmt.Errorf("data_source.api_key (or api_key_file) is required for provider %q", c.DataSource.Provider)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("data_source.provider %q is not supported (use: alphavantage, finnhub, mock)", c.DataSource.Provider)
	}
	if c.DataSource.RequestDelay < 0 {
		return fmt.Errorf("data_source.request_delay must not be negative")
	}
	if saver.NewSaver(c.Output.Format) == nil {
		return fmt.Errorf("output.format %q is not supported (use: %s)", c.Output.Format, strings.Join(saver.Formats, ", "))
	}
	if c.Range.LookbackDays < 1 {
		return fmt.Errorf("range.lookback_days must be positive")
	}
	if _, _, err := c.DateRange(time.Now()); err != nil {
		return err
	}
	if c.Schedule.FetchCron != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Schedule.FetchCron); err != nil {
			return fmt.Errorf("schedule.fetch_cron: %w", err)
		}
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

// ValidateVolatility checks the calculator parameters and estimator names.
func (c *Config) ValidateVolatility() error {
	if _, err := calculator.New(c.Volatility.Params, c.Volatility.Estimators...); err != nil {
		return fmt.Errorf("volatility: %w", err)
	}
	if c.Volatility.InputPath == "" || c.Volatility.OutputPath == "" {
		return fmt.Errorf("volatility.input_path and volatility.output_path are required")
	}
	return nil
}

// DateRange returns the configured fetch interval. A missing end date is
// today; a missing start date is 365 days before the end.
func (c *Config) DateRange(now time.Time) (start, end time.Time, err error) {
	end = dateOnly(now)
	if c.Range.EndDate != "" {
		if end, err = time.Parse(time.DateOnly, c.Range.EndDate); err != nil {
			return start, end, fmt.Errorf("range.end_date: %w", err)
		}
	}
	start = end.AddDate(0, 0, -365)
	if c.Range.StartDate != "" {
		if start, err = time.Parse(time.DateOnly, c.Range.StartDate); err != nil {
			return start, end, fmt.Errorf("range.start_date: %w", err)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("range: end_date %s is before start_date %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

// LookbackRange is the trailing window used by scheduled fetches.
func (c *Config) LookbackRange(now time.Time) (start, end time.Time) {
	end = dateOnly(now)
	return end.AddDate(0, 0, -c.Range.LookbackDays), end
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
