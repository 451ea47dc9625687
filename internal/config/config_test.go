package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "APP_ENV")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.DBDriver)
	require.Equal(t, time.Second, cfg.ESPNRateInterval)
	require.Equal(t, 2500*time.Millisecond, cfg.PFRRateInterval)
	require.Equal(t, 60*time.Second, cfg.RateMaxInterval)
	require.Equal(t, 0.0, cfg.AcceptRatio)
	require.Equal(t, 4, cfg.PipelineWorkers)
	require.Empty(t, cfg.Seasons)
	require.True(t, cfg.CacheEnabled)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoad_SQLiteDriverDefaultsDSN(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "nfl_fantasy.db", cfg.DBURL)
}

func TestLoad_SeasonsListAndRange(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SEASONS", "2019, 2021-2023, 2021")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []int{2019, 2021, 2022, 2023}, cfg.Seasons)
}

func TestLoad_SeasonsRejectsPreNFLYears(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SEASONS", "1919")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_SeasonsRejectsDescendingRange(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SEASONS", "2024-2020")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RatioMapOverrides(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("ACCEPT_RATIO", "0.9")
	t.Setenv("ACCEPT_RATIO_MAP", "games:0.95, stats:0.6")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 0.95, cfg.RatioFor("games"))
	require.Equal(t, 0.6, cfg.RatioFor("stats"))
	require.Equal(t, 0.9, cfg.RatioFor("teams"))
}

func TestLoad_RatioMapRejectsUnknownKind(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("ACCEPT_RATIO_MAP", "fixtures:0.5")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown entity kind")
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "UPTRACE_DSN")
}
