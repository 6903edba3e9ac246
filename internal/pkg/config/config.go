package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Health     HealthConfig     `yaml:"health"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Retry      RetryConfig      `yaml:"retry"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Calculator CalculatorConfig `yaml:"calculator"`
	Aliases    AliasesConfig    `yaml:"aliases"`
	Parser     ParserConfig     `yaml:"parser"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // optional JSON log file next to stdout
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	AliasPrefix   string `yaml:"alias_prefix"` // hashes <prefix>:team:<book>, <prefix>:market
	ReportKey     string `yaml:"report_key"`   // list of unresolved events
	ReportMaxSize int64  `yaml:"report_max_size"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type PipelineConfig struct {
	Interval     time.Duration `yaml:"interval"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"` // shared fetch deadline
	EmitTimeout  time.Duration `yaml:"emit_timeout"`
	SharpBook    string        `yaml:"sharp_book"`
	TargetBooks  []string      `yaml:"target_books"`
	Leagues      []string      `yaml:"leagues"`
	MarketTypes  []string      `yaml:"market_types"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffUnit time.Duration `yaml:"backoff_unit"` // delay after attempt n is n*n*unit
}

type ResolverConfig struct {
	FuzzyThreshold float64       `yaml:"fuzzy_threshold"`
	FuzzyMargin    float64       `yaml:"fuzzy_margin"` // best must beat second best by more than this
	GameTolerance  time.Duration `yaml:"game_tolerance"`
	Bucket         time.Duration `yaml:"bucket"`
}

type CalculatorConfig struct {
	VigMethod        string  `yaml:"vig_method"` // multiplicative, additive, shin
	KellyFractionCap float64 `yaml:"kelly_fraction_cap"`
	MinEVThreshold   float64 `yaml:"min_ev_threshold"` // alerts only, every row is stored
}

type AliasesConfig struct {
	Path         string `yaml:"path"`
	RedisOverlay bool   `yaml:"redis_overlay"`
}

type ParserConfig struct {
	EnabledParsers []string          `yaml:"enabled_parsers"`
	UserAgent      string            `yaml:"user_agent"`
	Timeout        time.Duration     `yaml:"timeout"`
	Headers        map[string]string `yaml:"headers"`
	Pinnacle       PinnacleConfig    `yaml:"pinnacle"`
	CrabSports     CrabSportsConfig  `yaml:"crabsports"`
}

type PinnacleConfig struct {
	BaseURL           string           `yaml:"base_url"`
	APIKey            string           `yaml:"api_key"`
	LeagueIDs         map[string]int64 `yaml:"league_ids"` // league -> Arcadia league id
	RequestsPerSecond float64          `yaml:"requests_per_second"`
	Burst             int              `yaml:"burst"`
}

type CrabSportsConfig struct {
	URL               string            `yaml:"url"`
	Cookie            string            `yaml:"cookie"`
	URLKeys           map[string]string `yaml:"url_keys"` // league -> url_key fragment
	Timezone          string            `yaml:"timezone"`
	RequestsPerSecond float64           `yaml:"requests_per_second"`
	Burst             int               `yaml:"burst"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// applyEnv lets secrets stay out of committed configs.
func (c *Config) applyEnv() {
	setFromEnv(&c.Parser.Pinnacle.APIKey, "PINNACLE_API_KEY")
	setFromEnv(&c.Parser.CrabSports.Cookie, "CRABSPORTS_COOKIE")
	setFromEnv(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setFromEnv(&c.Postgres.DSN, "POSTGRES_DSN")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
}

func setFromEnv(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ApplyDefaults fills every zero value that has a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Redis.AliasPrefix == "" {
		c.Redis.AliasPrefix = "aliases"
	}
	if c.Redis.ReportKey == "" {
		c.Redis.ReportKey = "unresolved:events"
	}
	if c.Redis.ReportMaxSize <= 0 {
		c.Redis.ReportMaxSize = 10000
	}

	if c.Pipeline.Interval <= 0 {
		c.Pipeline.Interval = time.Minute
	}
	if c.Pipeline.CycleTimeout <= 0 {
		c.Pipeline.CycleTimeout = 45 * time.Second
	}
	if c.Pipeline.EmitTimeout <= 0 {
		c.Pipeline.EmitTimeout = 10 * time.Second
	}
	if c.Pipeline.SharpBook == "" {
		c.Pipeline.SharpBook = "pinnacle"
	}
	if len(c.Pipeline.MarketTypes) == 0 {
		c.Pipeline.MarketTypes = []string{"MONEYLINE", "SPREAD", "TOTAL"}
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 4
	}
	if c.Retry.BackoffUnit <= 0 {
		c.Retry.BackoffUnit = time.Second
	}

	if c.Resolver.FuzzyThreshold == 0 {
		c.Resolver.FuzzyThreshold = 0.90
	}
	if c.Resolver.GameTolerance <= 0 {
		c.Resolver.GameTolerance = 5 * time.Minute
	}
	if c.Resolver.Bucket <= 0 {
		c.Resolver.Bucket = 5 * time.Minute
	}

	if c.Calculator.VigMethod == "" {
		c.Calculator.VigMethod = "multiplicative"
	}
	if c.Calculator.KellyFractionCap == 0 {
		c.Calculator.KellyFractionCap = 0.01
	}
	if c.Calculator.MinEVThreshold == 0 {
		c.Calculator.MinEVThreshold = 0.01
	}

	if c.Parser.Timeout <= 0 {
		c.Parser.Timeout = 15 * time.Second
	}
}

// Validate rejects settings the pipeline cannot honour.
func (c *Config) Validate() error {
	if c.Pipeline.Interval <= 0 {
		return fmt.Errorf("pipeline.interval must be positive")
	}
	if c.Pipeline.CycleTimeout > c.Pipeline.Interval {
		return fmt.Errorf("pipeline.cycle_timeout (%s) must not exceed pipeline.interval (%s)", c.Pipeline.CycleTimeout, c.Pipeline.Interval)
	}
	sharp := strings.ToLower(strings.TrimSpace(c.Pipeline.SharpBook))
	for _, b := range c.Pipeline.TargetBooks {
		if strings.ToLower(strings.TrimSpace(b)) == sharp {
			return fmt.Errorf("pipeline.target_books must not contain the sharp book %q", c.Pipeline.SharpBook)
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Resolver.FuzzyThreshold <= 0 || c.Resolver.FuzzyThreshold > 1 {
		return fmt.Errorf("resolver.fuzzy_threshold must be in (0, 1], got %v", c.Resolver.FuzzyThreshold)
	}
	if c.Resolver.FuzzyMargin < 0 {
		return fmt.Errorf("resolver.fuzzy_margin must not be negative")
	}
	switch c.Calculator.VigMethod {
	case "multiplicative", "additive", "shin":
	default:
		return fmt.Errorf("calculator.vig_method %q is not one of multiplicative, additive, shin", c.Calculator.VigMethod)
	}
	if c.Calculator.KellyFractionCap < 0 {
		return fmt.Errorf("calculator.kelly_fraction_cap must not be negative")
	}
	return nil
}
