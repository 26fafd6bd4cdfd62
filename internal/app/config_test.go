package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/enstockapp/mono-stock/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 720*time.Hour, cfg.SessionTTL)
	require.False(t, cfg.StockAllowNegative)
	require.Equal(t, 5.0, cfg.LowStockThreshold)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsNegativeStockPolicy(t *testing.T) {
	t.Setenv("STOCK_ALLOW_NEGATIVE", "true")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.StockAllowNegative)
	require.True(t, cfg.IsProduction())
}

func TestInTestModeHonoursGuard(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}
