package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliirezaaa/trade-bot/internal/config"
)

func TestFactoryBuildsEachVariant(t *testing.T) {
	for _, name := range []string{"ema-pullback", "keltner-pullback", "structure-break"} {
		cfg := config.Default()
		cfg.Strategy.Name = name
		s, err := New(cfg, nil)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
		assert.Equal(t, cfg.Symbol, s.Symbol())
		assert.Positive(t, s.WarmupPeriod())
	}
}

func TestFactoryRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy.Name = "martingale"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}
