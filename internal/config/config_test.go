package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir stands in for testing.T.Chdir, which needs Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.RESTPort)
	assert.Equal(t, 15*time.Second, cfg.SportAppTimeout)
	assert.Equal(t, "0 3 * * *", cfg.ScheduleCron)
	assert.Empty(t, cfg.ScheduleGameIDs)

	rules := cfg.ConversionRules()
	assert.Equal(t, "PAT 5 yards", rules.OnePointDesc)
	assert.Equal(t, int64(40), rules.TwoPointSpot)
	assert.Equal(t, int64(10), rules.TwoPointDistance)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("REST_PORT", "9090")
	t.Setenv("SCHEDULE_GAME_IDS", "101, 102,,103,101")
	t.Setenv("ONE_POINT_SPOT", "47")
	t.Setenv("ONE_POINT_DISTANCE", "3")
	t.Setenv("RAW_CACHE_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.RESTPort)
	assert.Equal(t, []int{101, 102, 103}, cfg.ScheduleGameIDs)
	assert.Equal(t, int64(47), cfg.OnePointSpot)
	assert.Equal(t, int64(3), cfg.ConversionRules().OnePointDistance)
	assert.Equal(t, time.Hour, cfg.RawCacheTTL)
}

func TestParseGameIDs_Invalid(t *testing.T) {
	_, err := ParseGameIDs("12,abc")
	assert.Error(t, err)
}
