package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestParseDryRun(t *testing.T) {
	cases := map[string]bool{
		"":        true,
		"true":    true,
		"1":       true,
		"maybe":   true,
		"false":   false,
		" FALSE ": false,
		"0":       false,
		"no":      false,
		"off":     false,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseDryRun(raw), "DRY_RUN=%q", raw)
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"standard", "premium"}, ParseList(" Standard, premium,,standard "))
	assert.Empty(t, ParseList(""))
}

func TestFromViperDefaults(t *testing.T) {
	cfg := FromViper(newViper())

	assert.Equal(t, "relayplan", cfg.AppName)
	assert.True(t, cfg.Rebuild.DryRun)
	assert.Empty(t, cfg.Rebuild.RelayID)
	assert.Equal(t, DefaultThrottle, cfg.Rebuild.Throttle)
	assert.Equal(t, DefaultLockTTL, cfg.Rebuild.LockTTL)
	assert.Equal(t, []string{"standard", "premium"}, cfg.Rebuild.OrderTypes)
	assert.False(t, cfg.DBAutoMigrate)
}

func TestFromViperOverrides(t *testing.T) {
	v := newViper()
	v.Set("RELAY_ID", " relay-1 ")
	v.Set("DRY_RUN", "false")
	v.Set("REBUILD_THROTTLE", "2s")
	v.Set("PLAN_ORDER_TYPES", "premium")
	v.Set("DATABASE_TYPE", "SQLite")

	cfg := FromViper(v)

	assert.Equal(t, "relay-1", cfg.Rebuild.RelayID)
	assert.False(t, cfg.Rebuild.DryRun)
	assert.Equal(t, 2*time.Second, cfg.Rebuild.Throttle)
	assert.Equal(t, []string{"premium"}, cfg.Rebuild.OrderTypes)
	assert.Equal(t, "sqlite", cfg.DBType)
}

func TestFromViperInvalidThrottleFallsBack(t *testing.T) {
	v := viper.New()
	v.Set("REBUILD_THROTTLE", "soon")
	v.Set("RUN_LOCK_TTL", "-5m")

	cfg := FromViper(v)

	assert.Equal(t, DefaultThrottle, cfg.Rebuild.Throttle)
	assert.Equal(t, DefaultLockTTL, cfg.Rebuild.LockTTL)
	assert.True(t, cfg.Rebuild.DryRun)
}
