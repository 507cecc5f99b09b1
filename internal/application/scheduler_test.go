package application

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type schedulerHarness struct {
	chain     *fakeChain
	repo      *inMemorySessionRepo
	registry  *Registry
	presenter *recordingPresenter
	scheduler *Scheduler
}

func testSchedulerConfig() SchedulerConfig {
	cfg := DefaultSchedulerConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.RefreshInterval = time.Hour
	cfg.Cycle.Pacing = domain.PacingCount
	return cfg
}

func newSchedulerHarness(t *testing.T) *schedulerHarness {
	t.Helper()
	return newSchedulerHarnessWithConfig(t, testSchedulerConfig())
}

func newSchedulerHarnessWithConfig(t *testing.T, cfg SchedulerConfig) *schedulerHarness {
	t.Helper()

	chain := newFakeChain()
	repo := newInMemorySessionRepo()
	registry := NewRegistry(repo)
	presenter := &recordingPresenter{}
	logger := newTestLogger()

	scheduler, err := NewScheduler(SchedulerDeps{
		Registry:  registry,
		Chain:     chain,
		Pool:      NewWalletPool(chain, testPlatform, logger),
		Runner:    NewRunner(chain, nil, logger),
		Presenter: presenter,
		Panels:    staticPanels{},
		Rand:      &fixedSource{values: []int{50}},
		Logger:    logger,
	}, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = scheduler.Shutdown(ctx)
	})

	return &schedulerHarness{chain: chain, repo: repo, registry: registry, presenter: presenter, scheduler: scheduler}
}

func (h *schedulerHarness) addSession(t *testing.T, id domain.SessionID, withMint bool, secondaries int) domain.Session {
	t.Helper()

	session := domain.NewSession(id, newWallet(t), time.Now())
	session.Awaiting = domain.AwaitingNone
	session.BuyRate = 10
	session.Config = domain.SessionConfig{MaxWallets: 5, BuyCycles: 1, DelayMs: 0}
	if withMint {
		mint := testMint
		session.TokenMint = &mint
	}
	for i := 0; i < secondaries; i++ {
		require.NoError(t, session.AddSecondary(newWallet(t)))
	}
	require.NoError(t, h.registry.Replace(context.Background(), session))
	return session
}

func (h *schedulerHarness) session(t *testing.T, id domain.SessionID) domain.Session {
	t.Helper()

	session, err := h.registry.Get(id)
	require.NoError(t, err)
	return session
}

func TestSchedulerWatcherFiresRunnerExactlyOnce(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	session := h.addSession(t, 1, true, 1)
	h.chain.script(session.Main.PublicKey(), 0, 0, 1_000_000_000)

	info, err := h.scheduler.ArmWatcher(1, false)
	require.NoError(t, err)
	assert.Equal(t, JobDepositWatcher, info.Kind)

	require.Eventually(t, func() bool {
		current := h.session(t, 1)
		_, active := h.scheduler.Active(1)
		return current.Stats != nil && current.Stats.Finished() && !active && !current.HasActiveJob()
	}, waitFor, tick)

	readsAfterRun := h.chain.reads(session.Main.PublicKey())
	time.Sleep(20 * testSchedulerConfig().PollInterval)

	assert.Equal(t, 1, h.presenter.count("✅ Deposit detected! Starting boost now."))
	assert.Equal(t, 1, h.presenter.count("✅ Volume run completed"))
	assert.Equal(t, readsAfterRun, h.chain.reads(session.Main.PublicKey()))

	var toPlatform []uint64
	for _, call := range h.chain.transferCalls() {
		if call.To.Equals(testPlatform) {
			toPlatform = append(toPlatform, call.Amount)
		}
	}
	assert.Equal(t, []uint64{380_000_000, 6_200_000}, toPlatform)

	stats := h.session(t, 1).Stats
	assert.Equal(t, uint64(613_800_000), stats.InitialBalance)
	assert.Equal(t, 4, stats.ActionCount)
	assert.Len(t, h.chain.swapCalls(), 4)
}

func TestSchedulerNewWatcherReplacesPrevious(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	h.addSession(t, 1, true, 1)

	first, err := h.scheduler.ArmWatcher(1, false)
	require.NoError(t, err)
	second, err := h.scheduler.ArmWatcher(1, false)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	active, ok := h.scheduler.Active(1)
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)
	require.Eventually(t, func() bool { return h.session(t, 1).DepositWatcherActive }, waitFor, tick)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.scheduler.Cancel(ctx, 1))

	_, ok = h.scheduler.Active(1)
	assert.False(t, ok)
	assert.False(t, h.session(t, 1).HasActiveJob())
	assert.Empty(t, h.chain.swapCalls())
}

func TestSchedulerCancelStopsRunnerAtLegBoundary(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	session := h.addSession(t, 1, true, 2)
	_, err := h.registry.Mutate(context.Background(), 1, func(next *domain.Session) error {
		next.Config.BuyCycles = 3
		next.Config.DelayMs = time.Hour.Milliseconds()
		return nil
	})
	require.NoError(t, err)
	h.chain.setBalance(session.Main.PublicKey(), 1_000_000_000)

	_, err = h.scheduler.ArmWatcher(1, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(h.chain.swapCalls()) == 1 }, waitFor, tick)
	require.True(t, h.session(t, 1).RunnerActive)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.scheduler.Cancel(ctx, 1))

	current := h.session(t, 1)
	assert.False(t, current.RunnerActive)
	require.NotNil(t, current.Stats)
	assert.Equal(t, 1, current.Stats.ActionCount)
	assert.True(t, current.Stats.Finished())
	assert.Len(t, h.chain.swapCalls(), 1)
	assert.Equal(t, 1, h.presenter.count("🛑 Volume stopped"))
}

func TestSchedulerRunnerWithoutMintFails(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	h.addSession(t, 1, false, 1)

	_, err := h.scheduler.ArmWatcher(1, true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.presenter.count("❌ Volume run failed: token mint not set") == 1
	}, waitFor, tick)
	require.Eventually(t, func() bool { return !h.session(t, 1).HasActiveJob() }, waitFor, tick)
	assert.Empty(t, h.chain.transferCalls())
}

func TestSchedulerResumeAndShutdown(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	watching := domain.NewSession(1, newWallet(t), time.Now())
	watching.DepositWatcherActive = true
	running := domain.NewSession(2, newWallet(t), time.Now())
	running.RunnerActive = true
	h.repo.sessions[1] = watching
	h.repo.sessions[2] = running
	require.NoError(t, h.registry.Load(context.Background()))

	require.NoError(t, h.scheduler.Resume(context.Background()))

	info, ok := h.scheduler.Active(1)
	require.True(t, ok)
	assert.Equal(t, JobDepositWatcher, info.Kind)
	assert.False(t, h.session(t, 2).RunnerActive)
	_, ok = h.scheduler.Active(2)
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.scheduler.Shutdown(ctx))

	assert.True(t, h.session(t, 1).DepositWatcherActive)
	_, err := h.scheduler.ArmWatcher(1, false)
	require.Error(t, err)
}

func TestSchedulerUnknownSession(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)

	_, err := h.scheduler.StartRunner(42)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.NoError(t, h.scheduler.Cancel(context.Background(), 42))
}

func TestSchedulerQuiesceRefusesJobsUntilReleased(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarness(t)
	h.addSession(t, 1, true, 1)
	h.addSession(t, 2, true, 1)
	_, err := h.scheduler.ArmWatcher(1, false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	releaseFirst, err := h.scheduler.Quiesce(ctx, 1)
	require.NoError(t, err)
	releaseSecond, err := h.scheduler.Quiesce(ctx, 1)
	require.NoError(t, err)

	_, active := h.scheduler.Active(1)
	assert.False(t, active)
	_, err = h.scheduler.ArmWatcher(1, false)
	require.ErrorIs(t, err, domain.ErrSessionBusy)
	_, err = h.scheduler.StartRunner(1)
	require.ErrorIs(t, err, domain.ErrSessionBusy)
	_, err = h.scheduler.ArmWatcher(2, false)
	require.NoError(t, err)

	releaseFirst()
	releaseFirst()
	_, err = h.scheduler.ArmWatcher(1, false)
	require.ErrorIs(t, err, domain.ErrSessionBusy)

	releaseSecond()
	_, err = h.scheduler.ArmWatcher(1, false)
	require.NoError(t, err)
}

func refreshConfig() SchedulerConfig {
	cfg := testSchedulerConfig()
	cfg.RefreshInterval = 5 * time.Millisecond
	return cfg
}

func TestSchedulerRefresherOnlyPushesWhileRunnerActive(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarnessWithConfig(t, refreshConfig())
	session := h.addSession(t, 1, true, 1)
	_, err := h.registry.Mutate(context.Background(), 1, func(next *domain.Session) error {
		next.Config.BuyCycles = 3
		next.Config.DelayMs = time.Hour.Milliseconds()
		return nil
	})
	require.NoError(t, err)

	_, err = h.scheduler.ArmWatcher(1, false)
	require.NoError(t, err)
	time.Sleep(10 * refreshConfig().RefreshInterval)
	assert.Zero(t, h.presenter.summaryCount())

	h.chain.setBalance(session.Main.PublicKey(), 1_000_000_000)
	require.Eventually(t, func() bool { return len(h.chain.swapCalls()) == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return h.presenter.summaryCount() >= 2 }, waitFor, tick)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.scheduler.Cancel(ctx, 1))

	pushed := h.presenter.summaryCount()
	time.Sleep(10 * refreshConfig().RefreshInterval)
	assert.Equal(t, pushed, h.presenter.summaryCount())
	assert.Equal(t, "panel", h.presenter.lastSummary())
}

func TestSchedulerRefresherStopsAfterSwapFailure(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarnessWithConfig(t, refreshConfig())
	session := h.addSession(t, 1, true, 1)
	h.chain.setBalance(session.Main.PublicKey(), 1_000_000_000)
	h.chain.failSwapAt = 2
	h.chain.onSwap = func(n int) {
		if n != 1 {
			return
		}
		deadline := time.Now().Add(waitFor)
		for h.presenter.summaryCount() < 2 && time.Now().Before(deadline) {
			time.Sleep(tick)
		}
	}

	_, err := h.scheduler.ArmWatcher(1, true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, active := h.scheduler.Active(1)
		return !active && h.presenter.hasPrefix("❌ Volume run failed")
	}, waitFor, tick)
	assert.GreaterOrEqual(t, h.presenter.summaryCount(), 2)

	pushed := h.presenter.summaryCount()
	time.Sleep(10 * refreshConfig().RefreshInterval)
	assert.Equal(t, pushed, h.presenter.summaryCount())
	assert.False(t, h.session(t, 1).RunnerActive)
}

func TestSchedulerRefresherStopsWhenRunCompletes(t *testing.T) {
	t.Parallel()

	h := newSchedulerHarnessWithConfig(t, refreshConfig())
	session := h.addSession(t, 1, true, 1)
	h.chain.setBalance(session.Main.PublicKey(), 1_000_000_000)
	h.chain.onSwap = func(n int) {
		if n != 1 {
			return
		}
		deadline := time.Now().Add(waitFor)
		for h.presenter.summaryCount() < 1 && time.Now().Before(deadline) {
			time.Sleep(tick)
		}
	}

	_, err := h.scheduler.ArmWatcher(1, true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.presenter.count("✅ Volume run completed") == 1
	}, waitFor, tick)
	require.Eventually(t, func() bool {
		_, active := h.scheduler.Active(1)
		return !active
	}, waitFor, tick)
	assert.GreaterOrEqual(t, h.presenter.summaryCount(), 1)

	pushed := h.presenter.summaryCount()
	time.Sleep(10 * refreshConfig().RefreshInterval)
	assert.Equal(t, pushed, h.presenter.summaryCount())
}
