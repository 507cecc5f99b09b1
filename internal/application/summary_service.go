package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/bnema/volumebot/internal/ports"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const summaryParallelism = 8

type SummaryService struct {
	registry *Registry
	chain    ports.ChainClient
	oracle   ports.PriceOracle
	renderer ports.SummaryRenderer
	clock    ports.Clock
	logger   logrus.FieldLogger
}

func NewSummaryService(registry *Registry, chain ports.ChainClient, oracle ports.PriceOracle, renderer ports.SummaryRenderer, clock ports.Clock, logger logrus.FieldLogger) *SummaryService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &SummaryService{
		registry: registry,
		chain:    chain,
		oracle:   oracle,
		renderer: renderer,
		clock:    clock,
		logger:   logger,
	}
}

// TokenInfo returns the session's token metadata, served from the price
// cache while it is fresh.
func (s *SummaryService) TokenInfo(ctx context.Context, id domain.SessionID) (domain.TokenInfo, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return domain.TokenInfo{}, err
	}
	if session.TokenMint == nil {
		return domain.TokenInfo{}, domain.ErrMintNotSet
	}
	mint := *session.TokenMint

	now := s.clock.Now()
	if session.PriceCache.FreshFor(mint, now) {
		return session.PriceCache.Info, nil
	}

	info, err := s.oracle.FetchMetadata(ctx, mint)
	if err != nil {
		return domain.TokenInfo{}, fmt.Errorf("fetch token metadata: %w", err)
	}

	if _, err := s.registry.Mutate(ctx, id, func(next *domain.Session) error {
		if next.TokenMint == nil || !next.TokenMint.Equals(mint) {
			return nil
		}
		next.PriceCache = &domain.PriceCache{Mint: mint, Timestamp: now, Info: info}
		return nil
	}); err != nil {
		s.logger.WithError(err).WithField("session", id).Warn("persist price cache")
	}

	return info, nil
}

// Build assembles the session summary. Lookup failures leave placeholders.
func (s *SummaryService) Build(ctx context.Context, id domain.SessionID) (domain.Summary, error) {
	session, err := s.registry.Get(id)
	if err != nil {
		return domain.Summary{}, err
	}

	summary := domain.Summary{
		SessionID:     id,
		Config:        session.Config,
		BuyRate:       session.BuyRate,
		Mint:          session.TokenMint,
		Stats:         session.Stats,
		Awaiting:      session.Awaiting,
		WatcherActive: session.DepositWatcherActive,
		RunnerActive:  session.RunnerActive,
		GeneratedAt:   s.clock.Now(),
	}
	if session.WithdrawTarget != nil {
		target := *session.WithdrawTarget
		summary.WithdrawTarget = &target
	}

	if session.TokenMint != nil {
		info, err := s.TokenInfo(ctx, id)
		switch {
		case err == nil:
			summary.Token = &info
			summary.TokenAvailable = true
		case errors.Is(err, domain.ErrTokenNotFound):
			s.logger.WithField("session", id).Debug("token metadata not found")
		default:
			s.logger.WithError(err).WithField("session", id).Warn("token metadata unavailable")
		}
	}

	summary.Main = s.walletBalance(ctx, session.Main.PublicKey(), session.TokenMint)
	summary.Secondaries = make([]domain.WalletBalance, len(session.Secondaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summaryParallelism)
	for i, wallet := range session.Secondaries {
		i, owner := i, wallet.PublicKey()
		g.Go(func() error {
			summary.Secondaries[i] = s.walletBalance(gctx, owner, session.TokenMint)
			return nil
		})
	}
	_ = g.Wait()

	return summary, nil
}

func (s *SummaryService) Render(ctx context.Context, id domain.SessionID) (string, error) {
	summary, err := s.Build(ctx, id)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(summary), nil
}

func (s *SummaryService) walletBalance(ctx context.Context, owner solana.PublicKey, mint *solana.PublicKey) domain.WalletBalance {
	out := domain.WalletBalance{Address: owner}

	base, err := s.chain.Balance(ctx, owner)
	if err != nil {
		s.logger.WithError(err).WithField("wallet", owner.String()).Debug("balance lookup failed")
		return out
	}
	out.Base = base
	out.Known = true

	if mint != nil {
		asset, err := s.chain.AssetBalance(ctx, owner, *mint)
		if err != nil {
			s.logger.WithError(err).WithField("wallet", owner.String()).Debug("asset balance lookup failed")
			return out
		}
		out.Asset = asset
	}

	return out
}
