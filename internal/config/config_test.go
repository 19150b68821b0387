package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HELPER_ROLE_NAME", "")
	t.Setenv("FOLLOW_UP_DELAY", "")

	cfg := Load()

	assert.Equal(t, "helpers", cfg.HelperRoleName)
	assert.Equal(t, 48*time.Hour, cfg.FollowUpDelay)
	assert.Equal(t, 6*24*time.Hour, cfg.FollowUpPromptTTL)
	assert.Equal(t, 5*time.Minute, cfg.InitialPromptTTL)
	assert.Equal(t, 5*time.Minute, cfg.SuppressionWindow)
	assert.Equal(t, "@every 1h", cfg.SweepSchedule)
	assert.False(t, cfg.HardenedPrivacy)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HELPER_ROLE_NAME", "mentors")
	t.Setenv("FOLLOW_UP_DELAY", "24h")
	t.Setenv("HARDENED_PRIVACY", "yes")
	t.Setenv("ADMIN_RATE_RPS", "42")
	t.Setenv("DELETE_GRACE_DELAY", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "mentors", cfg.HelperRoleName)
	assert.Equal(t, 24*time.Hour, cfg.FollowUpDelay)
	assert.True(t, cfg.HardenedPrivacy)
	assert.Equal(t, 42, cfg.AdminRateRPS)
	assert.Equal(t, 5*time.Second, cfg.DeleteGraceDelay, "unparseable values fall back to the default")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty role":       func(c *Config) { c.HelperRoleName = "" },
		"zero delay":       func(c *Config) { c.FollowUpDelay = 0 },
		"negative grace":   func(c *Config) { c.DeleteGraceDelay = -time.Second },
		"bad schedule":     func(c *Config) { c.SweepSchedule = "every hour" },
		"unknown timezone": func(c *Config) { c.TimeZone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Load()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
