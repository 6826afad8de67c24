package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("ADMIN_ID", "42")

	cfg := LoadConfig()

	assert.Equal(t, int64(42), cfg.AdminID)
	assert.True(t, cfg.MinPayout.Equal(decimal.NewFromInt(1000)))
	assert.True(t, cfg.ReferralBonus.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 10.0, cfg.BroadcastRate)
	assert.Equal(t, time.Hour, cfg.ReminderInterval)
	assert.Len(t, cfg.OnboardingMessages, 3)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MIN_PAYOUT", "250.50")
	t.Setenv("BROADCAST_RATE", "2.5")
	t.Setenv("ONBOARDING_MESSAGES", "first|| second ||")
	t.Setenv("METRICS_ALLOWED_CIDRS", "10.0.0.0/8, 192.168.0.0/16")
	t.Setenv("PAYOUT_REMINDER_AGE", "90m")

	cfg := LoadConfig()

	assert.Equal(t, "250.5", cfg.MinPayout.String())
	assert.Equal(t, 2.5, cfg.BroadcastRate)
	assert.Equal(t, []string{"first", "second"}, cfg.OnboardingMessages)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, cfg.MetricsAllowedCIDRs)
	assert.Equal(t, 90*time.Minute, cfg.ReminderAge)
}

func TestValidateReportsMissingSettings(t *testing.T) {
	cfg := &Config{MinPayout: decimal.NewFromInt(1000), BroadcastRate: 1}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "ADMIN_ID")
}
