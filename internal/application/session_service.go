package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type SessionService struct {
	registry     *Registry
	pool         *WalletPool
	scheduler    *Scheduler
	chain        ports.ChainClient
	reserveRatio decimal.Decimal
	clock        ports.Clock
	logger       logrus.FieldLogger
}

func NewSessionService(registry *Registry, pool *WalletPool, scheduler *Scheduler, chain ports.ChainClient, reserveRatio decimal.Decimal, clock ports.Clock, logger logrus.FieldLogger) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &SessionService{
		registry:     registry,
		pool:         pool,
		scheduler:    scheduler,
		chain:        chain,
		reserveRatio: reserveRatio,
		clock:        clock,
		logger:       logger,
	}
}

// Start creates the session on first contact. An existing session is put
// back into mint entry.
func (s *SessionService) Start(ctx context.Context, id domain.SessionID) (domain.Session, bool, error) {
	if s.registry.Exists(id) {
		session, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
			next.BeginMintEntry()
			return nil
		})
		if err != nil {
			return domain.Session{}, false, fmt.Errorf("begin mint entry: %w", err)
		}
		return session, false, nil
	}

	main, err := s.pool.Generate()
	if err != nil {
		return domain.Session{}, false, err
	}
	session := domain.NewSession(id, main, s.clock.Now())
	if err := s.registry.Replace(ctx, session); err != nil {
		return domain.Session{}, false, fmt.Errorf("create session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"session": id, "main": main.Address()}).Info("session created")
	return session, true, nil
}

// Reset cancels the session's job, drains its wallets into main, extracts
// the platform reserve and replaces the session with a fresh one. No job
// can start for the session until the fresh one is stored. Network
// failures while draining are logged and skipped.
func (s *SessionService) Reset(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if !s.registry.Exists(id) {
		session, _, err := s.Start(ctx, id)
		return session, err
	}

	release, err := s.scheduler.Quiesce(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("cancel session jobs: %w", err)
	}
	defer release()

	old, err := s.registry.Get(id)
	if err != nil {
		return domain.Session{}, err
	}
	logger := s.logger.WithField("session", id)
	logger.Info("reset: collecting balances")

	collected := s.pool.Collect(ctx, old.Main.PublicKey(), old.Secondaries)
	if collected.Err != nil {
		logger.WithField("failed", collected.Failed).Warn("reset: some wallets were not collected")
	}
	reserve, err := s.pool.ExtractReserve(ctx, old.Main, s.reserveRatio)
	if err != nil {
		logger.WithError(err).Warn("reset: reserve extraction failed")
	} else if reserve > 0 {
		logger.WithField("sol", domain.SOL(reserve).String()).Info("reset: reserve extracted")
	}

	main, err := s.pool.Generate()
	if err != nil {
		return domain.Session{}, err
	}
	next := old.Successor(main, s.clock.Now())
	if err := s.registry.Replace(ctx, next); err != nil {
		return domain.Session{}, fmt.Errorf("replace session: %w", err)
	}

	logger.WithField("main", main.Address()).Info("session reset")
	return next, nil
}

func (s *SessionService) AddWallet(ctx context.Context, id domain.SessionID) (domain.Wallet, error) {
	wallet, err := s.pool.Generate()
	if err != nil {
		return domain.Wallet{}, err
	}

	if _, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
		return next.AddSecondary(wallet)
	}); err != nil {
		return domain.Wallet{}, err
	}
	return wallet, nil
}

func (s *SessionService) BeginMintEntry(ctx context.Context, id domain.SessionID) error {
	_, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
		next.BeginMintEntry()
		return nil
	})
	return err
}

func (s *SessionService) BeginWithdrawEntry(ctx context.Context, id domain.SessionID) error {
	_, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
		next.BeginWithdrawEntry()
		return nil
	})
	return err
}

func (s *SessionService) SetMaxWallets(ctx context.Context, id domain.SessionID, n int) error {
	_, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
		return next.SetMaxWallets(n)
	})
	return err
}

func (s *SessionService) SetBuyCycles(ctx context.Context, id domain.SessionID, n int) error {
	_, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
		return next.SetBuyCycles(n)
	})
	return err
}

func (s *SessionService) SetDelayMs(ctx context.Context, id domain.SessionID, n int64) error {
	_, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
		return next.SetDelayMs(n)
	})
	return err
}

type SellAllResult struct {
	Sold  int
	Swept uint64
}

// SellAll swaps every secondary's token balance back to base and sweeps the
// base balance into main. Per-wallet failures are joined into the error.
func (s *SessionService) SellAll(ctx context.Context, id domain.SessionID) (SellAllResult, error) {
	session, err := s.idleSession(id)
	if err != nil {
		return SellAllResult{}, err
	}
	if session.TokenMint == nil {
		return SellAllResult{}, domain.ErrMintNotSet
	}
	mint := *session.TokenMint

	var (
		result SellAllResult
		errs   []error
	)
	for _, wallet := range session.Secondaries {
		asset, err := s.chain.AssetBalance(ctx, wallet.PublicKey(), mint)
		if err != nil {
			errs = append(errs, fmt.Errorf("read token balance of %s: %w", wallet.Address(), err))
		} else if asset.Raw > 0 {
			if _, err := s.chain.Swap(ctx, ports.SwapRequest{InputMint: mint, OutputMint: domain.BaseMint, Amount: asset.Raw, Signer: wallet}); err != nil {
				errs = append(errs, fmt.Errorf("sell tokens of %s: %w", wallet.Address(), err))
			} else {
				result.Sold++
			}
		}

		swept, err := s.pool.Sweep(ctx, wallet, session.Main.PublicKey())
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", wallet.Address(), err))
			continue
		}
		result.Swept += swept
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.WithError(err).WithField("session", id).Warn("sell all finished with failures")
		return result, err
	}
	return result, nil
}

type WithdrawResult struct {
	Target    solana.PublicKey
	Amount    uint64
	Signature solana.Signature
}

// Withdraw moves main's whole base balance to the withdraw target.
func (s *SessionService) Withdraw(ctx context.Context, id domain.SessionID) (WithdrawResult, error) {
	session, err := s.idleSession(id)
	if err != nil {
		return WithdrawResult{}, err
	}
	if session.WithdrawTarget == nil {
		return WithdrawResult{}, domain.ErrWithdrawTargetUnset
	}

	result := WithdrawResult{Target: *session.WithdrawTarget}
	balance, err := s.chain.Balance(ctx, session.Main.PublicKey())
	if err != nil {
		return result, fmt.Errorf("read main balance: %w", err)
	}
	if balance == 0 {
		return result, nil
	}

	sig, err := s.chain.Transfer(ctx, session.Main, result.Target, balance)
	if err != nil {
		return result, fmt.Errorf("transfer to withdraw target: %w", err)
	}
	result.Amount = balance
	result.Signature = sig

	s.logger.WithFields(logrus.Fields{"session": id, "target": result.Target.String(), "sol": domain.SOL(balance).String()}).Info("withdrawal sent")
	return result, nil
}

func (s *SessionService) MainBalance(ctx context.Context, id domain.SessionID) (domain.WalletBalance, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return domain.WalletBalance{}, err
	}

	out := domain.WalletBalance{Address: session.Main.PublicKey()}
	base, err := s.chain.Balance(ctx, out.Address)
	if err != nil {
		return out, fmt.Errorf("read main balance: %w", err)
	}
	out.Base = base
	out.Known = true

	if session.TokenMint != nil {
		asset, err := s.chain.AssetBalance(ctx, out.Address, *session.TokenMint)
		if err != nil {
			s.logger.WithError(err).WithField("session", id).Debug("main token balance unavailable")
			return out, nil
		}
		out.Asset = asset
	}
	return out, nil
}

func (s *SessionService) Stats(id domain.SessionID) (*domain.Stats, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	return session.Stats, nil
}

func (s *SessionService) idleSession(id domain.SessionID) (domain.Session, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return domain.Session{}, err
	}
	if _, active := s.scheduler.Active(id); active || session.HasActiveJob() {
		return domain.Session{}, domain.ErrJobActive
	}
	return session, nil
}
