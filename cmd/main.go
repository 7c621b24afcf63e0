package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/backtest"
	"github.com/aliirezaaa/trade-bot/internal/broker"
	"github.com/aliirezaaa/trade-bot/internal/config"
	"github.com/aliirezaaa/trade-bot/internal/db"
	"github.com/aliirezaaa/trade-bot/internal/exchange"
	"github.com/aliirezaaa/trade-bot/internal/journal"
	"github.com/aliirezaaa/trade-bot/internal/live"
	"github.com/aliirezaaa/trade-bot/internal/logging"
	"github.com/aliirezaaa/trade-bot/internal/notifier"
	"github.com/aliirezaaa/trade-bot/internal/report"
	"github.com/aliirezaaa/trade-bot/internal/risk"
	"github.com/aliirezaaa/trade-bot/internal/strategy"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trade-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := logging.Build(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}

	strat, err := strategy.New(cfg, logger)
	if err != nil {
		return err
	}

	sizer, err := risk.NewSizer(risk.Config{
		RiskPerTradeUSD: cfg.Risk.RiskPerTradeUSD,
		PipSize:         cfg.Risk.PipSize,
		PipValuePerLot:  cfg.Risk.PipValuePerLot,
		MinLot:          cfg.Risk.MinLot,
		MaxLot:          cfg.Risk.MaxLot,
		LotStep:         cfg.Risk.LotStep,
		RejectBelowMin:  cfg.Risk.RejectBelowMin,
	})
	if err != nil {
		return err
	}

	ex := exchange.NewWallexExchange(cfg.WallexAPIKey, logger)
	backfiller := exchange.NewBackfiller(ex, storage, logger)

	switch cfg.Mode {
	case "backtest":
		return runBacktest(ctx, cfg, backfiller, storage, strat, sizer, logger)
	case "live":
		return runLive(ctx, cfg, backfiller, ex, strat, sizer, logger)
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func openStorage(cfg config.Config, logger *zap.Logger) (db.Storage, error) {
	if cfg.DBConnStr == "" {
		logger.Warn("no database configured, candles will not be persisted across runs")
		return db.NewMemory(), nil
	}
	return db.NewPostgres(cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle)
}

func runBacktest(
	ctx context.Context,
	cfg config.Config,
	backfiller *exchange.Backfiller,
	storage db.Storage,
	strat strategy.Strategy,
	sizer *risk.Sizer,
	logger *zap.Logger,
) error {
	series, err := backfiller.LoadSeries(ctx, cfg.Symbol, cfg.Timeframe, cfg.BacktestFrom, cfg.BacktestTo)
	if err != nil {
		return err
	}

	ledger, err := broker.NewSimBroker(broker.SimConfig{
		InitialBalance: cfg.Broker.InitialBalance,
		PipSize:        cfg.Risk.PipSize,
		PipValuePerLot: cfg.Risk.PipValuePerLot,
		FeePerTrade:    cfg.Broker.FeePerTrade,
	}, logger)
	if err != nil {
		return err
	}

	engine, err := backtest.New(series, ledger, strat, sizer, logger)
	if err != nil {
		return err
	}
	res, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Print(res.Summary.String())
	fmt.Printf("Max drawdown:   %.2f%%\n", res.MaxDrawdown)

	if err := backtest.SaveResults(cfg.ResultsDir, res); err != nil {
		logger.Error("failed to save result files", zap.Error(err))
	}

	run := db.BacktestRun{
		ID:           uuid.NewString(),
		Strategy:     strat.Name(),
		Symbol:       cfg.Symbol,
		Timeframe:    cfg.Timeframe,
		From:         cfg.BacktestFrom,
		To:           cfg.BacktestTo,
		TotalTrades:  res.Summary.TotalTrades,
		WinRate:      res.Summary.WinRate,
		ProfitFactor: res.Summary.ProfitFactor,
		NetPnL:       res.Summary.NetPnL,
		MaxDrawdown:  res.MaxDrawdown,
		FinalBalance: res.Summary.FinalBalance,
		CreatedAt:    time.Now().UTC(),
	}
	if err := storage.SaveBacktestRun(ctx, run); err != nil {
		logger.Error("failed to persist backtest run", zap.Error(err))
	}
	return nil
}

func runLive(
	ctx context.Context,
	cfg config.Config,
	backfiller *exchange.Backfiller,
	ex exchange.Exchange,
	strat strategy.Strategy,
	sizer *risk.Sizer,
	logger *zap.Logger,
) error {
	bridge := exchange.NewLiveBridge(ex, exchange.BridgeConfig{
		Symbol:         cfg.Symbol,
		InitialBalance: cfg.Broker.InitialBalance,
		PipSize:        cfg.Risk.PipSize,
		PipValuePerLot: cfg.Risk.PipValuePerLot,
	}, logger)

	var notify notifier.Notifier = notifier.Noop{}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		notify = notifier.NewTelegramNotifier(token, os.Getenv("TELEGRAM_CHAT_ID"), logger)
	}

	jrnl, err := journal.NewFileJournal(filepath.Join(cfg.ResultsDir, "live_journal.jsonl"))
	if err != nil {
		return err
	}
	defer jrnl.Close()

	trader, err := live.NewTrader(backfiller, bridge, strat, sizer, notify, jrnl, logger)
	if err != nil {
		return err
	}

	err = trader.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	summary := report.Summarize(bridge.History(), bridge.Account())
	fmt.Print(summary.String())
	return err
}
