package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/sirupsen/logrus"
)

type Dispatcher struct {
	sessions  *SessionService
	registry  *Registry
	scheduler *Scheduler
	summaries *SummaryService
	oracle    ports.PriceOracle
	presenter ports.Presenter
	clock     ports.Clock
	admin     string
	logger    logrus.FieldLogger
}

type DispatcherDeps struct {
	Sessions  *SessionService
	Registry  *Registry
	Scheduler *Scheduler
	Summaries *SummaryService
	Oracle    ports.PriceOracle
	Presenter ports.Presenter
	Clock     ports.Clock
	Logger    logrus.FieldLogger
}

func NewDispatcher(deps DispatcherDeps, adminUsername string) *Dispatcher {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	return &Dispatcher{
		sessions:  deps.Sessions,
		registry:  deps.Registry,
		scheduler: deps.Scheduler,
		summaries: deps.Summaries,
		oracle:    deps.Oracle,
		presenter: deps.Presenter,
		clock:     deps.Clock,
		admin:     normalizeUsername(adminUsername),
		logger:    deps.Logger,
	}
}

// Handle routes one event. Input that does not match the session's
// pending expectation is dropped.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	logger := d.logger.WithField("session", ev.SessionID)

	var err error
	switch {
	case ev.Action != "":
		err = d.handleAction(ctx, ev)
	case strings.HasPrefix(strings.TrimSpace(ev.Text), "/"):
		err = d.handleCommand(ctx, ev)
	case strings.TrimSpace(ev.Text) != "":
		err = d.handleText(ctx, ev)
	}

	if err != nil {
		logger.WithError(err).Warn("handle event")
	}
	return err
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev Event) error {
	fields := strings.Fields(ev.Text)
	name := strings.SplitN(fields[0], "@", 2)[0]
	args := fields[1:]

	if name == "/start" {
		if _, _, err := d.sessions.Start(ctx, ev.SessionID); err != nil {
			return err
		}
		return d.say(ctx, ev.SessionID, "🚀 Welcome! Please send the *SPL token mint* to boost.")
	}

	if !d.registry.Exists(ev.SessionID) {
		return nil
	}

	var (
		apply func(n int64) error
		label string
	)
	switch name {
	case "/setMaxWallets":
		apply = func(n int64) error { return d.sessions.SetMaxWallets(ctx, ev.SessionID, clampInt(n)) }
		label = "maxWallets=%d"
	case "/setBuyCycles":
		apply = func(n int64) error { return d.sessions.SetBuyCycles(ctx, ev.SessionID, clampInt(n)) }
		label = "buyCycles=%d"
	case "/setDelayMs":
		apply = func(n int64) error { return d.sessions.SetDelayMs(ctx, ev.SessionID, n) }
		label = "delayMs=%d ms"
	default:
		return nil
	}

	if len(args) != 1 {
		return d.say(ctx, ev.SessionID, fmt.Sprintf("Usage: %s <n>", name))
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return d.say(ctx, ev.SessionID, fmt.Sprintf("❌ %q is not a number", args[0]))
	}
	if err := apply(n); err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			return d.say(ctx, ev.SessionID, "❌ "+err.Error())
		}
		return err
	}
	return d.say(ctx, ev.SessionID, "✅ "+fmt.Sprintf(label, n))
}

func (d *Dispatcher) handleText(ctx context.Context, ev Event) error {
	session, err := d.registry.Get(ev.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	switch session.Awaiting {
	case domain.AwaitingMint:
		return d.receiveMint(ctx, ev)
	case domain.AwaitingWithdrawAddress:
		return d.receiveWithdrawAddress(ctx, ev)
	default:
		return nil
	}
}

func (d *Dispatcher) receiveMint(ctx context.Context, ev Event) error {
	raw := strings.TrimSpace(ev.Text)

	outcome := domain.MintNotFound
	var info *domain.TokenInfo
	if mint, err := domain.ParseAddress(raw); err == nil {
		fetched, fetchErr := d.oracle.FetchMetadata(ctx, mint)
		switch {
		case fetchErr == nil:
			outcome = domain.MintVerified
			info = &fetched
		case errors.Is(fetchErr, domain.ErrTokenNotFound):
			outcome = domain.MintNotFound
		default:
			d.logger.WithError(fetchErr).WithField("session", ev.SessionID).Warn("token metadata unavailable")
			outcome = domain.MintUnverified
		}

		if _, err := d.registry.Mutate(ctx, ev.SessionID, func(next *domain.Session) error {
			return next.ResolveMint(mint, outcome, info, d.clock.Now())
		}); err != nil {
			if errors.Is(err, domain.ErrUnexpectedInput) {
				return nil
			}
			return err
		}
	}

	switch outcome {
	case domain.MintNotFound:
		return d.say(ctx, ev.SessionID, "❌ I couldn't verify that mint on the market data provider or on-chain. Please double-check the token address and send it again.")
	case domain.MintUnverified:
		if err := d.say(ctx, ev.SessionID, "⚠️ Unable to fetch token data right now. You can still use this mint, but data may be incomplete."); err != nil {
			return err
		}
	default:
		if err := d.say(ctx, ev.SessionID, tokenHeader(*info)); err != nil {
			return err
		}
	}

	return d.presenter.Prompt(ctx, ev.SessionID, "⏱️ How fast should I boost? Choose buys per minute:", RateChoices())
}

func (d *Dispatcher) receiveWithdrawAddress(ctx context.Context, ev Event) error {
	target, err := domain.ParseAddress(strings.TrimSpace(ev.Text))
	if err != nil {
		return d.say(ctx, ev.SessionID, "❌ That is not a valid address. Send the withdraw address again:")
	}

	if _, err := d.registry.Mutate(ctx, ev.SessionID, func(next *domain.Session) error {
		return next.ResolveWithdrawAddress(target)
	}); err != nil {
		if errors.Is(err, domain.ErrUnexpectedInput) {
			return nil
		}
		return err
	}

	if err := d.say(ctx, ev.SessionID, fmt.Sprintf("✅ Withdraw address set: `%s`", target)); err != nil {
		return err
	}
	return d.pushPanel(ctx, ev.SessionID)
}

func (d *Dispatcher) handleAction(ctx context.Context, ev Event) error {
	id := ev.SessionID

	if ev.Action == ActionCreate {
		if _, err := d.sessions.Reset(ctx, id); err != nil {
			return err
		}
		return d.pushPanel(ctx, id)
	}

	session, err := d.registry.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if strings.HasPrefix(ev.Action, rateActionPrefix) {
		return d.receiveRate(ctx, ev)
	}

	switch ev.Action {
	case ActionAdd:
		wallet, err := d.sessions.AddWallet(ctx, id)
		if errors.Is(err, domain.ErrWalletLimit) {
			return d.say(ctx, id, fmt.Sprintf("❌ Wallet limit reached (%d). Raise it with /setMaxWallets.", session.Config.MaxWallets))
		}
		if err != nil {
			return err
		}
		d.logger.WithFields(logrus.Fields{"session": id, "wallet": wallet.Address()}).Info("secondary wallet added")
		return d.pushPanel(ctx, id)
	case ActionSetMint:
		if err := d.sessions.BeginMintEntry(ctx, id); err != nil {
			return err
		}
		return d.say(ctx, id, "📝 Send new mint:")
	case ActionConfig:
		return d.say(ctx, id, "⚙️ /setMaxWallets /setBuyCycles /setDelayMs")
	case ActionRun:
		return d.arm(ctx, ev, session)
	case ActionStop:
		if _, ok := d.scheduler.Stop(id); !ok {
			return d.say(ctx, id, "ℹ️ No active run")
		}
		return d.say(ctx, id, "🛑 Stopping…")
	case ActionStatus:
		return d.say(ctx, id, statsText(session.Stats, d.clock))
	case ActionShowMain:
		balance, err := d.sessions.MainBalance(ctx, id)
		if err != nil {
			d.logger.WithError(err).WithField("session", id).Warn("main balance unavailable")
		}
		return d.say(ctx, id, mainWalletText(balance))
	case ActionSellAll:
		result, err := d.sessions.SellAll(ctx, id)
		switch {
		case errors.Is(err, domain.ErrMintNotSet):
			return d.say(ctx, id, "❌ Mint not set")
		case errors.Is(err, domain.ErrJobActive):
			return d.say(ctx, id, "❌ Stop the active run first")
		case err != nil:
			return d.say(ctx, id, fmt.Sprintf("⚠️ Sold %d wallets with errors: %v", result.Sold, err))
		}
		return d.say(ctx, id, "✅ Sold all & moved to main")
	case ActionSetWithdraw:
		if err := d.sessions.BeginWithdrawEntry(ctx, id); err != nil {
			return err
		}
		return d.say(ctx, id, "📝 Send withdraw addr:")
	case ActionConfirmWithdraw:
		result, err := d.sessions.Withdraw(ctx, id)
		switch {
		case errors.Is(err, domain.ErrWithdrawTargetUnset):
			return d.say(ctx, id, "❌ Withdraw address not set")
		case errors.Is(err, domain.ErrJobActive):
			return d.say(ctx, id, "❌ Stop the active run first")
		case err != nil:
			return err
		case result.Amount == 0:
			return d.say(ctx, id, "ℹ️ Main wallet is empty")
		}
		return d.say(ctx, id, fmt.Sprintf("✅ Sent %s SOL to `%s`", domain.SOL(result.Amount).StringFixed(4), result.Target))
	default:
		return nil
	}
}

func (d *Dispatcher) receiveRate(ctx context.Context, ev Event) error {
	rate, err := strconv.Atoi(strings.TrimPrefix(ev.Action, rateActionPrefix))
	if err != nil {
		return nil
	}

	session, err := d.registry.Mutate(ctx, ev.SessionID, func(next *domain.Session) error {
		return next.ResolveRate(rate)
	})
	switch {
	case errors.Is(err, domain.ErrUnexpectedInput):
		return nil
	case errors.Is(err, domain.ErrInvalidRate):
		return d.presenter.Prompt(ctx, ev.SessionID, "Choose one of the offered rates:", RateChoices())
	case err != nil:
		return err
	}

	if err := d.say(ctx, ev.SessionID, fmt.Sprintf("Set to %d buys/min", rate)); err != nil {
		return err
	}
	if err := d.pushPanel(ctx, ev.SessionID); err != nil {
		return err
	}
	return d.arm(ctx, ev, session)
}

func (d *Dispatcher) arm(ctx context.Context, ev Event, session domain.Session) error {
	if session.TokenMint == nil {
		return d.say(ctx, ev.SessionID, "❌ Token mint not set")
	}

	bypass := d.isAdmin(ev.Username)
	info, err := d.scheduler.ArmWatcher(ev.SessionID, bypass)
	if errors.Is(err, domain.ErrSessionBusy) {
		return d.say(ctx, ev.SessionID, "⏳ Session is being reset, try again in a moment")
	}
	if err != nil {
		return fmt.Errorf("arm deposit watcher: %w", err)
	}
	d.logger.WithFields(logrus.Fields{"session": ev.SessionID, "job": info.ID.String(), "bypass": bypass}).Info("deposit watcher armed")

	return d.say(ctx, ev.SessionID, fmt.Sprintf("⏳ Waiting for deposit of at least %s SOL to `%s`…",
		domain.SOL(d.scheduler.MinDeposit()).String(), session.Main.Address()))
}

func (d *Dispatcher) pushPanel(ctx context.Context, id domain.SessionID) error {
	text, err := d.summaries.Render(ctx, id)
	if err != nil {
		return fmt.Errorf("render panel: %w", err)
	}
	return d.presenter.PushSummary(ctx, id, text)
}

func (d *Dispatcher) say(ctx context.Context, id domain.SessionID, text string) error {
	return d.presenter.Prompt(ctx, id, text, nil)
}

func (d *Dispatcher) isAdmin(username string) bool {
	return d.admin != "" && normalizeUsername(username) == d.admin
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

func tokenHeader(info domain.TokenInfo) string {
	if info.OnChainOnly {
		return "✅ Token found on-chain (no market data yet)"
	}
	return fmt.Sprintf("🔎 *%s* (%s)\nRank: #%d  Price: $%.6f\nMCap: $%.0f  Vol24h: $%.0f",
		info.Name, info.Symbol, info.Rank, info.PriceUSD, info.MarketCapUSD, info.Volume24hUSD)
}

func statsText(stats *domain.Stats, clock ports.Clock) string {
	if stats == nil {
		return "ℹ️ No stats yet"
	}

	profit := "n/a"
	if spent, ok := stats.Spent(); ok {
		profit = domain.SignedSOL(spent).StringFixed(4)
	}
	return fmt.Sprintf("⏱%ds ⚡%d trades\n💹%s SOL", int64(stats.Elapsed(clock.Now()).Seconds()), stats.ActionCount, profit)
}

func mainWalletText(balance domain.WalletBalance) string {
	if !balance.Known {
		return fmt.Sprintf("🔑 *Main Wallet*\n`%s`\n\n💰 balance unavailable", balance.Address)
	}
	return fmt.Sprintf("🔑 *Main Wallet*\n`%s`\n\n💰 SOL:%s TOK:%s",
		balance.Address, domain.SOL(balance.Base).StringFixed(4), balance.Asset.Decimal().String())
}

func clampInt(n int64) int {
	switch {
	case n > math.MaxInt:
		return math.MaxInt
	case n < math.MinInt:
		return math.MinInt
	}
	return int(n)
}
