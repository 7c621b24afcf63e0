package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aliirezaaa/trade-bot/internal/config"
	"github.com/aliirezaaa/trade-bot/internal/indicator"
)

// New builds the strategy named in the config.
func New(cfg config.Config, logger *zap.Logger) (Strategy, error) {
	var (
		det SetupDetector
		err error
	)
	switch cfg.Strategy.Name {
	case "ema-pullback":
		det, err = NewEMADetector(cfg.Strategy.ImpulseATRMult, cfg.Strategy.StopATRMult)
	case "keltner-pullback":
		det, err = NewKeltnerDetector(cfg.Strategy.KeltnerMult, cfg.Strategy.KeltnerStopBuffer)
	case "structure-break":
		det, err = NewStructureDetector(cfg.Strategy.StructureLookback)
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Strategy.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s detector: %w", cfg.Strategy.Name, err)
	}

	snap := indicator.SnapshotConfig{
		EMAFastPeriod: cfg.Indicators.EMAFast,
		EMASlowPeriod: cfg.Indicators.EMASlow,
		ATRPeriod:     cfg.Indicators.ATRPeriod,
		EMALongPeriod: cfg.Indicators.EMALong,
		ADXPeriod:     cfg.Indicators.ADXPeriod,
	}
	return NewPullbackStrategy(det, PullbackOptions{
		Symbol:       cfg.Symbol,
		Timeframe:    cfg.Timeframe,
		Snapshot:     snap,
		RiskToReward: cfg.Strategy.RiskToReward,
		ADXThreshold: cfg.Strategy.ADXThreshold,
		Logger:       logger,
	})
}
