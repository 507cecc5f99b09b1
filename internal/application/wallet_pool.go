package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultCollectParallelism = 8

// WalletPool moves base funds between owned wallets and the platform wallet.
type WalletPool struct {
	chain       ports.ChainClient
	platform    solana.PublicKey
	parallelism int
	logger      logrus.FieldLogger
}

func NewWalletPool(chain ports.ChainClient, platform solana.PublicKey, logger logrus.FieldLogger) *WalletPool {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &WalletPool{
		chain:       chain,
		platform:    platform,
		parallelism: defaultCollectParallelism,
		logger:      logger,
	}
}

func (p *WalletPool) Generate() (domain.Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("generate keypair: %w", err)
	}
	return domain.WalletFromSecret(key)
}

type CollectResult struct {
	Moved     uint64
	Collected int
	Failed    int
	// Err joins every per-wallet failure. It is informational only.
	Err error
}

// Collect drains every wallet with a positive balance into dest. Failures
// are logged and reported in the result but never stop the other transfers.
func (p *WalletPool) Collect(ctx context.Context, dest solana.PublicKey, wallets []domain.Wallet) CollectResult {
	var (
		mu     sync.Mutex
		result CollectResult
		errs   []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			moved, err := p.Sweep(gctx, wallet, dest)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.WithError(err).WithField("wallet", wallet.Address()).Warn("collect wallet failed")
				result.Failed++
				errs = append(errs, fmt.Errorf("collect %s: %w", wallet.Address(), err))
				return nil
			}
			if moved > 0 {
				p.logger.WithFields(logrus.Fields{"wallet": wallet.Address(), "sol": domain.SOL(moved).String()}).Info("moved balance to main")
				result.Moved += moved
				result.Collected++
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Err = errors.Join(errs...)
	return result
}

// Sweep transfers the full base balance of from to dest. A zero balance is a no-op.
func (p *WalletPool) Sweep(ctx context.Context, from domain.Wallet, dest solana.PublicKey) (uint64, error) {
	balance, err := p.chain.Balance(ctx, from.PublicKey())
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	if balance == 0 {
		return 0, nil
	}
	if _, err := p.chain.Transfer(ctx, from, dest, balance); err != nil {
		return 0, fmt.Errorf("transfer balance: %w", err)
	}
	return balance, nil
}

// ExtractReserve sends floor(balance*ratio) of the wallet to the platform
// wallet and returns the amount moved.
func (p *WalletPool) ExtractReserve(ctx context.Context, wallet domain.Wallet, ratio decimal.Decimal) (uint64, error) {
	balance, err := p.chain.Balance(ctx, wallet.PublicKey())
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}

	reserve := domain.FloorPortion(balance, ratio)
	if err := p.PayPlatform(ctx, wallet, reserve); err != nil {
		return 0, err
	}
	return reserve, nil
}

func (p *WalletPool) PayPlatform(ctx context.Context, from domain.Wallet, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if _, err := p.chain.Transfer(ctx, from, p.platform, amount); err != nil {
		return fmt.Errorf("transfer to platform wallet: %w", err)
	}
	return nil
}

// Fund sends shares[i] from source to wallets[i], in order.
func (p *WalletPool) Fund(ctx context.Context, source domain.Wallet, wallets []domain.Wallet, shares []uint64) error {
	if len(shares) > len(wallets) {
		return fmt.Errorf("fund wallets: %d shares for %d wallets", len(shares), len(wallets))
	}

	for i, share := range shares {
		if share == 0 {
			continue
		}
		if _, err := p.chain.Transfer(ctx, source, wallets[i].PublicKey(), share); err != nil {
			return fmt.Errorf("fund wallet %s: %w", wallets[i].Address(), err)
		}
	}
	return nil
}
