package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultRefreshInterval = 30 * time.Second
	DefaultMinDeposit      = domain.LamportsPerSOL / 2
)

type JobKind string

const (
	JobDepositWatcher JobKind = "deposit_watcher"
	JobRunner         JobKind = "runner"
)

type JobInfo struct {
	ID        uuid.UUID
	Kind      JobKind
	SessionID domain.SessionID
	StartedAt time.Time
}

type SchedulerConfig struct {
	PollInterval    time.Duration
	RefreshInterval time.Duration
	MinDeposit      uint64
	StopRatio       decimal.Decimal
	Distribution    domain.DistributionPolicy
	Cycle           domain.CyclePolicy
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval:    DefaultPollInterval,
		RefreshInterval: DefaultRefreshInterval,
		MinDeposit:      DefaultMinDeposit,
		StopRatio:       domain.DefaultStopRatio,
		Distribution:    domain.DefaultDistributionPolicy(),
		Cycle:           domain.DefaultCyclePolicy(),
	}
}

func (c SchedulerConfig) Validate() error {
	if c.PollInterval <= 0 || c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: scheduler intervals must be positive", domain.ErrInvalidConfig)
	}
	if c.StopRatio.IsNegative() || c.StopRatio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: stop ratio must be in [0, 1], got %s", domain.ErrInvalidConfig, c.StopRatio)
	}
	if err := c.Distribution.Validate(); err != nil {
		return err
	}
	return c.Cycle.Validate()
}

// PanelSource renders the current summary of a session.
type PanelSource interface {
	Render(ctx context.Context, id domain.SessionID) (string, error)
}

type SchedulerDeps struct {
	Registry  *Registry
	Chain     ports.ChainClient
	Pool      *WalletPool
	Runner    *Runner
	Presenter ports.Presenter
	Panels    PanelSource
	Clock     ports.Clock
	Rand      domain.IntSource
	Logger    logrus.FieldLogger
}

type job struct {
	info   JobInfo
	bypass bool
	ctx    context.Context
	cancel context.CancelFunc
	stop   *StopSource
	done   chan struct{}
}

// signal asks the job to end. Watchers end at once, runners at the next
// leg boundary.
func (j *job) signal() {
	j.stop.Stop()
	if j.info.Kind == JobDepositWatcher {
		j.cancel()
	}
}

// Scheduler keeps at most one background job per session.
type Scheduler struct {
	deps SchedulerDeps
	cfg  SchedulerConfig

	baseCtx    context.Context
	baseCancel context.CancelFunc
	closing    atomic.Bool

	mu       sync.Mutex
	jobs     map[domain.SessionID]*job
	quiesced map[domain.SessionID]int
	wg       sync.WaitGroup
}

func NewScheduler(deps SchedulerDeps, cfg SchedulerConfig) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Rand == nil {
		deps.Rand = domain.DefaultIntSource
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		deps:       deps,
		cfg:        cfg,
		baseCtx:    ctx,
		baseCancel: cancel,
		jobs:       map[domain.SessionID]*job{},
		quiesced:   map[domain.SessionID]int{},
	}, nil
}

func (s *Scheduler) MinDeposit() uint64 {
	return s.cfg.MinDeposit
}

// ArmWatcher replaces any job of the session with a deposit watcher. With
// bypass the watcher fires on its first poll regardless of balance.
func (s *Scheduler) ArmWatcher(id domain.SessionID, bypass bool) (JobInfo, error) {
	return s.start(id, JobDepositWatcher, bypass)
}

// StartRunner replaces any job of the session with a trade runner.
func (s *Scheduler) StartRunner(id domain.SessionID) (JobInfo, error) {
	return s.start(id, JobRunner, false)
}

func (s *Scheduler) Active(id domain.SessionID) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return JobInfo{}, false
	}
	return j.info, true
}

// Stop signals the session's job without waiting for it.
func (s *Scheduler) Stop(id domain.SessionID) (JobInfo, bool) {
	j, ok := s.signalCurrent(id)
	if !ok {
		return JobInfo{}, false
	}
	return j.info, true
}

// Cancel signals the session's job and blocks until it has exited. A
// runner started by a firing watcher in the meantime is cancelled too.
func (s *Scheduler) Cancel(ctx context.Context, id domain.SessionID) error {
	for {
		j, ok := s.signalCurrent(id)
		if !ok {
			return nil
		}

		select {
		case <-j.done:
		case <-ctx.Done():
			return fmt.Errorf("wait for %s job: %w", j.info.Kind, ctx.Err())
		}
	}
}

// Quiesce cancels the session's job and refuses new jobs for it with
// domain.ErrSessionBusy until release is called. Calls nest.
func (s *Scheduler) Quiesce(ctx context.Context, id domain.SessionID) (release func(), err error) {
	s.mu.Lock()
	s.quiesced[id]++
	s.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.quiesced[id]--; s.quiesced[id] <= 0 {
				delete(s.quiesced, id)
			}
		})
	}

	if err := s.Cancel(ctx, id); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (s *Scheduler) signalCurrent(id domain.SessionID) (*job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if ok {
		j.signal()
	}
	return j, ok
}

// Resume re-arms deposit watchers persisted as active and clears runner
// flags left over from a previous process.
func (s *Scheduler) Resume(ctx context.Context) error {
	var errs []error
	for _, id := range s.deps.Registry.IDs() {
		session, err := s.deps.Registry.Get(id)
		if err != nil {
			continue
		}

		switch {
		case session.RunnerActive:
			if _, err := s.deps.Registry.Mutate(ctx, id, func(next *domain.Session) error {
				next.RunnerActive = false
				return nil
			}); err != nil {
				errs = append(errs, fmt.Errorf("clear runner flag of session %d: %w", id, err))
				continue
			}
			s.deps.Logger.WithField("session", id).Warn("cleared interrupted runner")
		case session.DepositWatcherActive:
			if _, err := s.ArmWatcher(id, false); err != nil {
				errs = append(errs, fmt.Errorf("re-arm watcher of session %d: %w", id, err))
				continue
			}
			s.deps.Logger.WithField("session", id).Info("re-armed deposit watcher")
		}
	}

	return errors.Join(errs...)
}

// Shutdown signals every job and waits for all of them. Persisted job
// flags are left as they are so Resume can pick them up.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.closing.Store(true)

	s.mu.Lock()
	for _, j := range s.jobs {
		j.signal()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.baseCancel()
		return nil
	case <-ctx.Done():
		s.baseCancel()
		<-done
		return fmt.Errorf("shutdown scheduler: %w", ctx.Err())
	}
}

func (s *Scheduler) start(id domain.SessionID, kind JobKind, bypass bool) (JobInfo, error) {
	if s.closing.Load() {
		return JobInfo{}, errors.New("scheduler is shutting down")
	}
	if !s.deps.Registry.Exists(id) {
		return JobInfo{}, domain.ErrSessionNotFound
	}

	s.mu.Lock()
	if s.quiesced[id] > 0 {
		s.mu.Unlock()
		return JobInfo{}, domain.ErrSessionBusy
	}
	prev := s.jobs[id]
	j := s.newJob(id, kind, bypass)
	s.jobs[id] = j
	s.wg.Add(1)
	s.mu.Unlock()

	if prev != nil {
		prev.signal()
	}
	go s.run(j, prev)

	return j.info, nil
}

func (s *Scheduler) newJob(id domain.SessionID, kind JobKind, bypass bool) *job {
	ctx, cancel := context.WithCancel(s.baseCtx)
	return &job{
		info: JobInfo{
			ID:        uuid.New(),
			Kind:      kind,
			SessionID: id,
			StartedAt: s.deps.Clock.Now(),
		},
		bypass: bypass,
		ctx:    ctx,
		cancel: cancel,
		stop:   NewStopSource(),
		done:   make(chan struct{}),
	}
}

func (s *Scheduler) run(j *job, prev *job) {
	defer s.wg.Done()
	defer close(j.done)
	defer j.cancel()
	defer s.release(j)

	logger := s.jobLogger(j)

	if prev != nil {
		select {
		case <-prev.done:
		case <-j.ctx.Done():
			return
		}
	}
	if j.stop.Token().Stopped() {
		return
	}

	if err := s.setFlags(j, true); err != nil {
		logger.WithError(err).Error("mark job active")
		return
	}
	defer func() {
		if s.closing.Load() {
			return
		}
		if err := s.setFlags(j, false); err != nil {
			logger.WithError(err).Error("mark job inactive")
		}
	}()

	logger.Info("job started")
	switch j.info.Kind {
	case JobDepositWatcher:
		s.watch(j)
	case JobRunner:
		if err := s.runTrades(j); err != nil {
			logger.WithError(err).Error("runner failed")
			s.notify(j, fmt.Sprintf("❌ Volume run failed: %v", err))
		}
	}
	logger.Info("job exited")
}

func (s *Scheduler) release(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jobs[j.info.SessionID] == j {
		delete(s.jobs, j.info.SessionID)
	}
}

func (s *Scheduler) setFlags(j *job, active bool) error {
	ctx := context.WithoutCancel(j.ctx)
	_, err := s.deps.Registry.Mutate(ctx, j.info.SessionID, func(next *domain.Session) error {
		switch j.info.Kind {
		case JobDepositWatcher:
			next.DepositWatcherActive = active
			if active {
				next.RunnerActive = false
			}
		case JobRunner:
			next.RunnerActive = active
			if active {
				next.DepositWatcherActive = false
			}
		}
		return nil
	})
	return err
}

func (s *Scheduler) watch(j *job) {
	logger := s.jobLogger(j)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if s.depositReady(j, logger) {
			s.fire(j)
			return
		}

		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) depositReady(j *job, logger logrus.FieldLogger) bool {
	if j.bypass {
		return true
	}

	session, err := s.deps.Registry.Get(j.info.SessionID)
	if err != nil {
		logger.WithError(err).Warn("load session for deposit poll")
		return false
	}
	balance, err := s.deps.Chain.Balance(j.ctx, session.Main.PublicKey())
	if err != nil {
		if j.ctx.Err() == nil {
			logger.WithError(err).Warn("poll main balance")
		}
		return false
	}

	return balance >= s.cfg.MinDeposit
}

// fire swaps the watcher for a runner. It is a no-op when the watcher has
// already been replaced.
func (s *Scheduler) fire(j *job) {
	s.mu.Lock()
	if s.jobs[j.info.SessionID] != j || j.stop.Token().Stopped() || s.closing.Load() || s.quiesced[j.info.SessionID] > 0 {
		s.mu.Unlock()
		return
	}
	runner := s.newJob(j.info.SessionID, JobRunner, false)
	s.jobs[j.info.SessionID] = runner
	s.wg.Add(1)
	s.mu.Unlock()

	s.notify(j, "✅ Deposit detected! Starting boost now.")
	go s.run(runner, j)
}

func (s *Scheduler) runTrades(j *job) error {
	ctx := j.ctx
	id := j.info.SessionID
	logger := s.jobLogger(j)

	session, err := s.deps.Registry.Get(id)
	if err != nil {
		return err
	}
	if session.TokenMint == nil {
		return domain.ErrMintNotSet
	}
	wallets := session.TradingWallets()
	if len(wallets) == 0 {
		return domain.ErrNoSecondaryWallets
	}
	pacing, err := s.cfg.Cycle.PacingFor(session)
	if err != nil {
		return err
	}
	if j.stop.Token().Stopped() {
		return nil
	}

	balance, err := s.deps.Chain.Balance(ctx, session.Main.PublicKey())
	if err != nil {
		return fmt.Errorf("read main balance: %w", err)
	}
	plan, err := domain.PlanDistribution(balance, s.cfg.Distribution, len(wallets), s.deps.Rand)
	if err != nil {
		return err
	}

	if err := s.deps.Pool.PayPlatform(ctx, session.Main, plan.Reserve); err != nil {
		return fmt.Errorf("extract reserve: %w", err)
	}
	if err := s.deps.Pool.PayPlatform(ctx, session.Main, plan.Fee); err != nil {
		return fmt.Errorf("pay fee: %w", err)
	}
	if err := s.deps.Pool.Fund(ctx, session.Main, wallets, plan.Shares); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"reserve":       plan.Reserve,
		"fee":           plan.Fee,
		"distributable": plan.Distributable,
		"wallets":       len(plan.Shares),
	}).Info("funds distributed")

	if _, err := s.deps.Registry.Mutate(ctx, id, func(next *domain.Session) error {
		next.Stats = domain.NewStats(plan.Distributable, s.deps.Clock.Now())
		return nil
	}); err != nil {
		return fmt.Errorf("init stats: %w", err)
	}

	budgets := make([]WalletBudget, len(wallets))
	for i, wallet := range wallets {
		budgets[i] = WalletBudget{Wallet: wallet, Budget: plan.Shares[i]}
	}

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		s.refresh(refreshCtx, id, logger)
	}()

	s.notify(j, "🚀 Volume started! Monitoring trades…")
	result, runErr := s.deps.Runner.Run(ctx, RunInput{
		Wallets:   budgets,
		Mint:      *session.TokenMint,
		Pacing:    pacing,
		Policy:    s.cfg.Cycle,
		StopRatio: s.cfg.StopRatio,
		OnAction: func(ctx context.Context) {
			if _, err := s.deps.Registry.Mutate(context.WithoutCancel(ctx), id, func(next *domain.Session) error {
				if next.Stats != nil {
					next.Stats.RecordAction()
				}
				return nil
			}); err != nil {
				logger.WithError(err).Error("persist action count")
			}
		},
	}, j.stop.Token())

	stopRefresh()
	<-refreshDone

	s.recordFinal(j, logger)
	logger.WithFields(logrus.Fields{"actions": result.Actions, "stopped": result.Stopped}).Info("runner finished")

	if runErr != nil {
		return runErr
	}
	if result.Stopped {
		s.notify(j, "🛑 Volume stopped")
		return nil
	}
	s.notify(j, "✅ Volume run completed")
	return nil
}

func (s *Scheduler) recordFinal(j *job, logger logrus.FieldLogger) {
	ctx := context.WithoutCancel(j.ctx)
	session, err := s.deps.Registry.Get(j.info.SessionID)
	if err != nil {
		logger.WithError(err).Error("load session for final balance")
		return
	}
	final, err := s.deps.Chain.Balance(ctx, session.Main.PublicKey())
	if err != nil {
		logger.WithError(err).Error("read final main balance")
		return
	}
	if _, err := s.deps.Registry.Mutate(ctx, j.info.SessionID, func(next *domain.Session) error {
		if next.Stats != nil {
			next.Stats.Finish(final, s.deps.Clock.Now())
		}
		return nil
	}); err != nil {
		logger.WithError(err).Error("persist final balance")
	}
}

func (s *Scheduler) refresh(ctx context.Context, id domain.SessionID, logger logrus.FieldLogger) {
	if s.deps.Panels == nil || s.deps.Presenter == nil {
		return
	}

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		text, err := s.deps.Panels.Render(ctx, id)
		if err != nil {
			logger.WithError(err).Warn("render status panel")
			continue
		}
		if err := s.deps.Presenter.PushSummary(ctx, id, text); err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("push status panel")
		}
	}
}

func (s *Scheduler) notify(j *job, text string) {
	if s.deps.Presenter == nil {
		return
	}
	ctx := context.WithoutCancel(j.ctx)
	if err := s.deps.Presenter.Prompt(ctx, j.info.SessionID, text, nil); err != nil {
		s.jobLogger(j).WithError(err).Warn("notify session")
	}
}

func (s *Scheduler) jobLogger(j *job) logrus.FieldLogger {
	return s.deps.Logger.WithFields(logrus.Fields{
		"session": j.info.SessionID,
		"job":     j.info.ID.String(),
		"kind":    j.info.Kind,
	})
}
