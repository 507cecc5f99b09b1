package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StopSource is the owning side of a cooperative stop signal.
type StopSource struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopSource() *StopSource {
	return &StopSource{ch: make(chan struct{})}
}

func (s *StopSource) Stop() {
	s.once.Do(func() { close(s.ch) })
}

func (s *StopSource) Token() StopToken {
	return StopToken{ch: s.ch}
}

// StopToken is checked by the runner at leg boundaries. The zero value
// never stops.
type StopToken struct {
	ch <-chan struct{}
}

func (t StopToken) Stopped() bool {
	if t.ch == nil {
		return false
	}
	select {
	case <-t.ch:
		return true
	default:
		return false
	}
}

func (t StopToken) Done() <-chan struct{} {
	return t.ch
}

type WalletBudget struct {
	Wallet domain.Wallet
	// Budget is the amount distributed to the wallet for this run. Zero
	// means the wallet's first balance reading is used as its original.
	Budget uint64
}

type RunInput struct {
	Wallets   []WalletBudget
	Mint      solana.PublicKey
	Pacing    domain.Pacing
	Policy    domain.CyclePolicy
	StopRatio decimal.Decimal
	// OnAction runs after every successful swap.
	OnAction func(ctx context.Context)
}

type WalletOutcome struct {
	Address solana.PublicKey
	Cycles  int
	Actions int
}

type RunResult struct {
	Actions int
	Wallets []WalletOutcome
	Stopped bool
}

type Runner struct {
	chain  ports.ChainClient
	rng    domain.IntSource
	logger logrus.FieldLogger
}

func NewRunner(chain ports.ChainClient, rng domain.IntSource, logger logrus.FieldLogger) *Runner {
	if rng == nil {
		rng = domain.DefaultIntSource
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Runner{chain: chain, rng: rng, logger: logger}
}

// Run trades every wallet in order until its balance drops to the stop
// threshold. A swap or balance error ends the run; the result still holds
// what was done up to that point.
func (r *Runner) Run(ctx context.Context, in RunInput, stop StopToken) (RunResult, error) {
	var result RunResult
	if err := in.Policy.Validate(); err != nil {
		return result, err
	}

	for _, budget := range in.Wallets {
		if stop.Stopped() {
			result.Stopped = true
			break
		}

		outcome, stopped, err := r.runWallet(ctx, in, budget, stop)
		result.Wallets = append(result.Wallets, outcome)
		result.Actions += outcome.Actions
		if err != nil {
			return result, fmt.Errorf("trade wallet %s: %w", budget.Wallet.Address(), err)
		}
		if stopped {
			result.Stopped = true
			break
		}
	}

	return result, nil
}

func (r *Runner) runWallet(ctx context.Context, in RunInput, budget WalletBudget, stop StopToken) (WalletOutcome, bool, error) {
	owner := budget.Wallet.PublicKey()
	outcome := WalletOutcome{Address: owner}
	logger := r.logger.WithField("wallet", owner.String())

	balance, err := r.chain.Balance(ctx, owner)
	if err != nil {
		return outcome, false, fmt.Errorf("read balance: %w", err)
	}

	original := budget.Budget
	if original == 0 {
		original = balance
	}
	threshold := domain.FloorPortion(original, in.StopRatio)

	for balance > threshold {
		legs := in.Policy.BuyLegs(balance, in.Pacing, r.rng)
		if sum(legs) == 0 {
			logger.WithField("balance", balance).Info("balance too small for a buy leg")
			break
		}

		var spent uint64
		for _, amount := range legs {
			if stop.Stopped() {
				return outcome, true, nil
			}
			if amount == 0 {
				continue
			}
			if err := r.swap(ctx, in, budget.Wallet, domain.BaseMint, in.Mint, amount); err != nil {
				return outcome, false, fmt.Errorf("buy leg: %w", err)
			}
			spent += amount
			outcome.Actions++
			ok, err := r.wait(ctx, in.Pacing.InterLegDelay, stop)
			if err != nil {
				return outcome, false, err
			}
			if !ok {
				return outcome, true, nil
			}
		}

		if stop.Stopped() {
			return outcome, true, nil
		}
		if sell := in.Policy.SellAmount(spent); sell > 0 {
			if err := r.swap(ctx, in, budget.Wallet, in.Mint, domain.BaseMint, sell); err != nil {
				return outcome, false, fmt.Errorf("sell leg: %w", err)
			}
			outcome.Actions++
		}
		outcome.Cycles++
		ok, err := r.wait(ctx, in.Pacing.InterLegDelay, stop)
		if err != nil {
			return outcome, false, err
		}
		if !ok {
			return outcome, true, nil
		}

		balance, err = r.chain.Balance(ctx, owner)
		if err != nil {
			return outcome, false, fmt.Errorf("read balance: %w", err)
		}
		logger.WithFields(logrus.Fields{"cycle": outcome.Cycles, "balance": balance}).Debug("cycle finished")
	}

	return outcome, false, nil
}

func (r *Runner) swap(ctx context.Context, in RunInput, signer domain.Wallet, input, output solana.PublicKey, amount uint64) error {
	if _, err := r.chain.Swap(ctx, ports.SwapRequest{
		InputMint:  input,
		OutputMint: output,
		Amount:     amount,
		Signer:     signer,
	}); err != nil {
		return err
	}
	if in.OnAction != nil {
		in.OnAction(ctx)
	}
	return nil
}

// wait sleeps for d. It reports false when the stop signal fires first.
func (r *Runner) wait(ctx context.Context, d time.Duration, stop StopToken) (bool, error) {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return !stop.Stopped(), nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-stop.Done():
		return false, nil
	case <-timer.C:
		return true, nil
	}
}

func sum(values []uint64) uint64 {
	var total uint64
	for _, v := range values {
		total += v
	}
	return total
}
