package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for the application.
type Config struct {
	Backtest Backtest `mapstructure:"backtest"`
	Oracle   Oracle   `mapstructure:"oracle"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Report   Report   `mapstructure:"report"`
}

// Backtest holds the simulation parameters. It is passed by value into the engine,
// so each run owns an immutable copy.
type Backtest struct {
	Symbols  []string `mapstructure:"symbols" json:"symbols"`
	Features []string `mapstructure:"features" json:"features"`

	TakerCommission float64 `mapstructure:"taker_commission" json:"taker_commission"`
	// MakerCommission is recorded with a run but every fill is charged as taker.
	MakerCommission     float64 `mapstructure:"maker_commission" json:"maker_commission"`
	Slippage            float64 `mapstructure:"slippage" json:"slippage"`
	TakeProfitPct       float64 `mapstructure:"take_profit_pct" json:"take_profit_pct"`
	StopLossPct         float64 `mapstructure:"stop_loss_pct" json:"stop_loss_pct"`
	Leverage            float64 `mapstructure:"leverage" json:"leverage"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" json:"confidence_threshold"`
	RiskPerTrade        float64 `mapstructure:"risk_per_trade" json:"risk_per_trade"`
	InitialBalance      float64 `mapstructure:"initial_balance" json:"initial_balance"`
	MinNotionalFloor    float64 `mapstructure:"min_notional_floor" json:"min_notional_floor"`
	SplitFraction       float64 `mapstructure:"train_test_split_fraction" json:"train_test_split_fraction"`
	RiskFreeRate        float64 `mapstructure:"risk_free_rate" json:"risk_free_rate"`
}

// Oracle holds the configuration of the signal source.
type Oracle struct {
	// Kind is "columns" (probabilities stored next to the features) or "http".
	Kind           string        `mapstructure:"kind"`
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Report holds output locations for exported results.
type Report struct {
	OutputDir string `mapstructure:"output_dir"`
}

// SetDefaults registers the default value of every recognized option.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backtest.symbols", []string{"ETH/USDT"})
	v.SetDefault("backtest.features", []string{})
	v.SetDefault("backtest.taker_commission", 0.0004)
	v.SetDefault("backtest.maker_commission", 0.0002)
	v.SetDefault("backtest.slippage", 0.0003)
	v.SetDefault("backtest.take_profit_pct", 0.03)
	v.SetDefault("backtest.stop_loss_pct", 0.015)
	v.SetDefault("backtest.leverage", 1.0)
	v.SetDefault("backtest.confidence_threshold", 0.65)
	v.SetDefault("backtest.risk_per_trade", 0.01)
	v.SetDefault("backtest.initial_balance", 500.0)
	v.SetDefault("backtest.min_notional_floor", 10.0)
	v.SetDefault("backtest.train_test_split_fraction", 0.85)
	v.SetDefault("backtest.risk_free_rate", 0.0)

	v.SetDefault("oracle.kind", "columns")
	v.SetDefault("oracle.url", "")
	v.SetDefault("oracle.timeout", 10*time.Second)
	v.SetDefault("oracle.rate_limit", 50)       // requests per second
	v.SetDefault("oracle.rate_limit_burst", 10) // burst size

	v.SetDefault("database.dsn", "market_data.db")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("report.output_dir", "")
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults and environment are enough to run.
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	err = config.Validate()
	return
}

// Validate checks the configuration for values the simulation cannot run with.
func (c Config) Validate() error {
	if err := c.Backtest.Validate(); err != nil {
		return err
	}
	switch c.Oracle.Kind {
	case "columns":
	case "http":
		if c.Oracle.URL == "" {
			return fmt.Errorf("%w: oracle.url is required for the http oracle", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown oracle kind %q", ErrInvalidConfig, c.Oracle.Kind)
	}
	return nil
}

// Validate checks the simulation parameters.
func (b Backtest) Validate() error {
	var problems []string
	if len(b.Symbols) == 0 {
		problems = append(problems, "at least one symbol is required")
	}
	if b.Leverage < 1 {
		problems = append(problems, fmt.Sprintf("leverage %v must be >= 1", b.Leverage))
	}
	if b.ConfidenceThreshold < 0 || b.ConfidenceThreshold > 1 {
		problems = append(problems, fmt.Sprintf("confidence_threshold %v must be in [0,1]", b.ConfidenceThreshold))
	}
	if b.StopLossPct <= 0 {
		problems = append(problems, fmt.Sprintf("stop_loss_pct %v must be positive", b.StopLossPct))
	}
	if b.TakeProfitPct <= 0 {
		problems = append(problems, fmt.Sprintf("take_profit_pct %v must be positive", b.TakeProfitPct))
	}
	if b.RiskPerTrade <= 0 || b.RiskPerTrade > 1 {
		problems = append(problems, fmt.Sprintf("risk_per_trade %v must be in (0,1]", b.RiskPerTrade))
	}
	if b.InitialBalance <= 0 {
		problems = append(problems, fmt.Sprintf("initial_balance %v must be positive", b.InitialBalance))
	}
	if b.SplitFraction <= 0 || b.SplitFraction >= 1 {
		problems = append(problems, fmt.Sprintf("train_test_split_fraction %v must be in (0,1)", b.SplitFraction))
	}
	if b.TakerCommission < 0 || b.MakerCommission < 0 || b.Slippage < 0 || b.MinNotionalFloor < 0 {
		problems = append(problems, "commission, slippage and min_notional_floor must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Default returns the configuration produced by the defaults alone.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return c
}
