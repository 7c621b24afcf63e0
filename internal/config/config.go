// Package config
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

/*
YAML config example:
mode: "backtest"
symbol: "EURUSD"
timeframe: "1h"
from: "2024-01-01"
to: "2024-06-01"
wallex_api_key: "..."
db_conn_str: "postgres://..."
results_dir: "results"
strategy:
  name: "ema-pullback"
  risk_to_reward: 2.0
  adx_threshold: 20
indicators:
  ema_fast: 20
  ema_slow: 50
  atr_period: 14
risk:
  risk_per_trade_usd: 50
  pip_size: 0.0001
  pip_value_per_lot: 10
*/

type StrategyConfig struct {
	Name              string  `yaml:"name"`
	RiskToReward      float64 `yaml:"risk_to_reward"`
	ADXThreshold      float64 `yaml:"adx_threshold"`
	ImpulseATRMult    float64 `yaml:"impulse_atr_mult"`
	StopATRMult       float64 `yaml:"stop_atr_mult"`
	KeltnerMult       float64 `yaml:"keltner_mult"`
	KeltnerStopBuffer float64 `yaml:"keltner_stop_buffer"`
	StructureLookback int     `yaml:"structure_lookback"`
}

type IndicatorConfig struct {
	EMAFast   int `yaml:"ema_fast"`
	EMASlow   int `yaml:"ema_slow"`
	ATRPeriod int `yaml:"atr_period"`
	EMALong   int `yaml:"ema_long"`
	ADXPeriod int `yaml:"adx_period"`
}

type RiskConfig struct {
	RiskPerTradeUSD float64 `yaml:"risk_per_trade_usd"`
	PipSize         float64 `yaml:"pip_size"`
	PipValuePerLot  float64 `yaml:"pip_value_per_lot"`
	MinLot          float64 `yaml:"min_lot"`
	MaxLot          float64 `yaml:"max_lot"`
	LotStep         float64 `yaml:"lot_step"`
	RejectBelowMin  bool    `yaml:"reject_below_min"`
}

type BrokerConfig struct {
	InitialBalance float64 `yaml:"initial_balance"`
	FeePerTrade    float64 `yaml:"fee_per_trade"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Mode         string          `yaml:"mode"`
	Symbol       string          `yaml:"symbol"`
	Timeframe    string          `yaml:"timeframe"`
	BacktestFrom time.Time       `yaml:"-"`
	BacktestTo   time.Time       `yaml:"-"`
	From         string          `yaml:"from"`
	To           string          `yaml:"to"`
	WallexAPIKey string          `yaml:"wallex_api_key"`
	DBConnStr    string          `yaml:"db_conn_str"`
	DBMaxOpen    int             `yaml:"db_max_open"`
	DBMaxIdle    int             `yaml:"db_max_idle"`
	ResultsDir   string          `yaml:"results_dir"`
	Strategy     StrategyConfig  `yaml:"strategy"`
	Indicators   IndicatorConfig `yaml:"indicators"`
	Risk         RiskConfig      `yaml:"risk"`
	Broker       BrokerConfig    `yaml:"broker"`
	Logging      LoggingConfig   `yaml:"logging"`
}

// Default returns a config with runnable defaults for every tunable.
func Default() Config {
	return Config{
		Mode:       "backtest",
		Symbol:     "BTCUSDT",
		Timeframe:  "1h",
		From:       time.Now().AddDate(-1, 0, 0).Format("2006-01-02"),
		To:         time.Now().Format("2006-01-02"),
		DBMaxOpen:  10,
		DBMaxIdle:  5,
		ResultsDir: "results",
		Strategy: StrategyConfig{
			Name:              "ema-pullback",
			RiskToReward:      2.0,
			ADXThreshold:      0,
			ImpulseATRMult:    1.5,
			StopATRMult:       0.5,
			KeltnerMult:       2.0,
			KeltnerStopBuffer: 0.25,
			StructureLookback: 3,
		},
		Indicators: IndicatorConfig{
			EMAFast:   20,
			EMASlow:   50,
			ATRPeriod: 14,
			EMALong:   200,
			ADXPeriod: 14,
		},
		Risk: RiskConfig{
			RiskPerTradeUSD: 50,
			PipSize:         0.0001,
			PipValuePerLot:  10,
			MinLot:          0.01,
			MaxLot:          100,
			LotStep:         0.01,
		},
		Broker: BrokerConfig{
			InitialBalance: 10000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load parses flags from args, reads the YAML file when -config is given, and
// resolves the backtest date range. Flags override file values.
func Load(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("trade-bot", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to YAML config file")
	mode := fs.String("mode", "", "Mode: backtest or live")
	symbol := fs.String("symbol", "", "Trading symbol")
	timeframe := fs.String("timeframe", "", "Candle timeframe")
	from := fs.String("from", "", "Backtest start date (YYYY-MM-DD)")
	to := fs.String("to", "", "Backtest end date (YYYY-MM-DD)")
	strategyName := fs.String("strategy", "", "Strategy: ema-pullback, keltner-pullback or structure-break")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if cfg.WallexAPIKey == "" {
		cfg.WallexAPIKey = os.Getenv("WALLEX_API_KEY")
	}
	if cfg.DBConnStr == "" {
		cfg.DBConnStr = os.Getenv("DB_CONN_STR")
	}

	if *mode != "" {
		cfg.Mode = *mode
	}
	if *symbol != "" {
		cfg.Symbol = *symbol
	}
	if *timeframe != "" {
		cfg.Timeframe = *timeframe
	}
	if *from != "" {
		cfg.From = *from
	}
	if *to != "" {
		cfg.To = *to
	}
	if *strategyName != "" {
		cfg.Strategy.Name = *strategyName
	}

	var err error
	cfg.BacktestFrom, err = time.Parse("2006-01-02", cfg.From)
	if err != nil {
		return Config{}, fmt.Errorf("parse from date %q: %w", cfg.From, err)
	}
	cfg.BacktestTo, err = time.Parse("2006-01-02", cfg.To)
	if err != nil {
		return Config{}, fmt.Errorf("parse to date %q: %w", cfg.To, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configs that would start a run with broken parameters.
func (c Config) Validate() error {
	if c.Mode != "backtest" && c.Mode != "live" {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol must not be empty")
	}
	if c.Timeframe == "" {
		return fmt.Errorf("timeframe must not be empty")
	}
	if !c.BacktestTo.After(c.BacktestFrom) {
		return fmt.Errorf("backtest range is empty: from %s to %s",
			c.BacktestFrom.Format("2006-01-02"), c.BacktestTo.Format("2006-01-02"))
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy name must not be empty")
	}
	if c.Strategy.RiskToReward <= 0 {
		return fmt.Errorf("risk to reward must be positive, got %v", c.Strategy.RiskToReward)
	}
	if c.Indicators.EMAFast <= 0 || c.Indicators.EMASlow <= 0 || c.Indicators.ATRPeriod <= 0 {
		return fmt.Errorf("indicator periods must be positive")
	}
	if c.Indicators.EMAFast >= c.Indicators.EMASlow {
		return fmt.Errorf("fast ema period %d must be below slow ema period %d",
			c.Indicators.EMAFast, c.Indicators.EMASlow)
	}
	if c.Risk.RiskPerTradeUSD <= 0 {
		return fmt.Errorf("risk per trade must be positive, got %v", c.Risk.RiskPerTradeUSD)
	}
	if c.Risk.PipSize <= 0 || c.Risk.PipValuePerLot <= 0 {
		return fmt.Errorf("pip size and pip value must be positive")
	}
	if c.Broker.InitialBalance <= 0 {
		return fmt.Errorf("initial balance must be positive, got %v", c.Broker.InitialBalance)
	}
	return nil
}
