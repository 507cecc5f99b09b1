package status

import (
	"testing"
	"time"

	"github.com/bnema/volumebot/internal/application"
	"github.com/bnema/volumebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSingleIdleSession(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render([]application.SessionOverview{
		{
			ID:          101,
			Main:        "MainAddr111",
			Secondaries: []string{"SecA", "SecB"},
			Config:      domain.DefaultSessionConfig(),
			Awaiting:    "mint",
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 1")
	assert.Contains(t, output, "Session 101")
	assert.Contains(t, output, "[idle]")
	assert.Contains(t, output, "MainAddr111")
	assert.Contains(t, output, "mint: unset")
	assert.Contains(t, output, "rate: unset")
	assert.Contains(t, output, "2/5")
	assert.Contains(t, output, "[========------------]")
	assert.Contains(t, output, "awaiting: mint")
	assert.Contains(t, output, "last run: n/a")
	assert.NotContains(t, output, "SecA")
}

func TestRenderMultipleSessionsWithJobsAndStats(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render([]application.SessionOverview{
		{
			ID:           1,
			Main:         "MainOne",
			Secondaries:  []string{"SecOne"},
			Mint:         "MintOne",
			BuyRate:      20,
			Config:       domain.DefaultSessionConfig(),
			Awaiting:     "none",
			RunnerActive: true,
			Retired:      3,
			Stats:        &application.StatsOverview{InitialSOL: "0.6138", Actions: 12, StartedAt: now.Add(-3 * time.Hour)},
		},
		{
			ID:             2,
			Main:           "MainTwo",
			Config:         domain.DefaultSessionConfig(),
			Awaiting:       "none",
			WatcherActive:  true,
			WithdrawTarget: "TargetTwo",
			Stats: &application.StatsOverview{
				InitialSOL: "1",
				FinalSOL:   "0.8",
				SpentSOL:   "0.2",
				Actions:    1,
				StartedAt:  now.Add(-50 * time.Hour),
			},
		},
	}, RenderOptions{Now: now, ShowWallets: true})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 2  running: 1  waiting: 1")
	assert.Contains(t, output, "[running]")
	assert.Contains(t, output, "[waiting for deposit]")
	assert.Contains(t, output, "rate: 20 buys/min")
	assert.Contains(t, output, "• SecOne")
	assert.Contains(t, output, "retired: 3 wallets")
	assert.Contains(t, output, "12 trades, budget 0.6138 SOL, started 3 hours ago")
	assert.Contains(t, output, "[unfinished]")
	assert.Contains(t, output, "withdraw: TargetTwo")
	assert.Contains(t, output, "spent 0.2 SOL, started 2 days ago")
	assert.NotContains(t, output, "awaiting:")
}

func TestRenderEmptySessions(t *testing.T) {
	output, err := Render(nil, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "sessions: 0")
	assert.Contains(t, output, "No sessions stored.")
}

func TestRenderProgressBarClamps(t *testing.T) {
	s := newStyles()

	assert.Contains(t, renderProgressBar(9, 5, 10, s), "==========")
	assert.Contains(t, renderProgressBar(0, 0, 4, s), "----")
	assert.Empty(t, renderProgressBar(1, 1, 0, s))
}

func TestFormatStarted(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	assert.Equal(t, "started 1 minute ago", formatStarted(now.Add(-time.Minute), now))
	assert.Equal(t, "started 1 hour ago", formatStarted(now.Add(-90*time.Minute), now))
	assert.Equal(t, "started 2026-02-14T12:00:00Z", formatStarted(now.Add(time.Hour), now))
}
