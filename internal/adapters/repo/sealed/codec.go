package sealed

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/gagliardetto/solana-go"
)

func toSchema(s domain.Session) sessionSchema {
	out := sessionSchema{
		ID:          int64(s.ID),
		Main:        encodeWallet(s.Main),
		Secondaries: encodeWallets(s.Secondaries),
		Retired:     encodeWallets(s.Retired),
		BuyRate:     s.BuyRate,
		Config: configSchema{
			MaxWallets: s.Config.MaxWallets,
			BuyCycles:  s.Config.BuyCycles,
			DelayMs:    s.Config.DelayMs,
		},
		Awaiting:  s.Awaiting.String(),
		CreatedAt: formatTime(s.CreatedAt),

		DepositWatcherActive: s.DepositWatcherActive,
		RunnerActive:         s.RunnerActive,
	}
	if s.TokenMint != nil {
		out.TokenMint = s.TokenMint.String()
	}
	if s.WithdrawTarget != nil {
		out.WithdrawTarget = s.WithdrawTarget.String()
	}
	if s.Stats != nil {
		stats := &statsSchema{
			InitialBalance: s.Stats.InitialBalance,
			ActionCount:    s.Stats.ActionCount,
			StartTime:      formatTime(s.Stats.StartTime),
			FinishedAt:     formatTime(s.Stats.FinishedAt),
		}
		if s.Stats.FinalBalance != nil {
			final := *s.Stats.FinalBalance
			stats.FinalBalance = &final
		}
		out.Stats = stats
	}
	if s.PriceCache != nil {
		info := s.PriceCache.Info
		out.PriceCache = &priceCacheSchema{
			Mint:      s.PriceCache.Mint.String(),
			Timestamp: formatTime(s.PriceCache.Timestamp),
			Info: tokenInfoSchema{
				Name:              info.Name,
				Symbol:            info.Symbol,
				PriceUSD:          info.PriceUSD,
				MarketCapUSD:      info.MarketCapUSD,
				Volume24hUSD:      info.Volume24hUSD,
				CirculatingSupply: info.CirculatingSupply,
				TotalSupply:       info.TotalSupply,
				Change1h:          info.Change1h,
				Change24h:         info.Change24h,
				Change7d:          info.Change7d,
				Rank:              info.Rank,
				OnChainOnly:       info.OnChainOnly,
			},
		}
	}

	return out
}

func fromSchema(in sessionSchema) (domain.Session, error) {
	main, err := decodeWallet(in.Main)
	if err != nil {
		return domain.Session{}, fmt.Errorf("main wallet: %w", err)
	}
	secondaries, err := decodeWallets(in.Secondaries)
	if err != nil {
		return domain.Session{}, fmt.Errorf("secondary wallets: %w", err)
	}
	retired, err := decodeWallets(in.Retired)
	if err != nil {
		return domain.Session{}, fmt.Errorf("retired wallets: %w", err)
	}
	awaiting, err := domain.ParseAwaitingState(in.Awaiting)
	if err != nil {
		return domain.Session{}, err
	}
	createdAt, err := parseTime(in.CreatedAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("created_at: %w", err)
	}

	out := domain.Session{
		ID:          domain.SessionID(in.ID),
		Main:        main,
		Secondaries: secondaries,
		Retired:     retired,
		BuyRate:     in.BuyRate,
		Config: domain.SessionConfig{
			MaxWallets: in.Config.MaxWallets,
			BuyCycles:  in.Config.BuyCycles,
			DelayMs:    in.Config.DelayMs,
		},
		Awaiting:  awaiting,
		CreatedAt: createdAt,

		DepositWatcherActive: in.DepositWatcherActive,
		RunnerActive:         in.RunnerActive,
	}

	if in.TokenMint != "" {
		mint, err := domain.ParseAddress(in.TokenMint)
		if err != nil {
			return domain.Session{}, fmt.Errorf("token mint: %w", err)
		}
		out.TokenMint = &mint
	}
	if in.WithdrawTarget != "" {
		target, err := domain.ParseAddress(in.WithdrawTarget)
		if err != nil {
			return domain.Session{}, fmt.Errorf("withdraw target: %w", err)
		}
		out.WithdrawTarget = &target
	}
	if in.Stats != nil {
		start, err := parseTime(in.Stats.StartTime)
		if err != nil {
			return domain.Session{}, fmt.Errorf("stats start: %w", err)
		}
		finished, err := parseTime(in.Stats.FinishedAt)
		if err != nil {
			return domain.Session{}, fmt.Errorf("stats finish: %w", err)
		}
		stats := &domain.Stats{
			InitialBalance: in.Stats.InitialBalance,
			ActionCount:    in.Stats.ActionCount,
			StartTime:      start,
			FinishedAt:     finished,
		}
		if in.Stats.FinalBalance != nil {
			final := *in.Stats.FinalBalance
			stats.FinalBalance = &final
		}
		out.Stats = stats
	}
	if in.PriceCache != nil {
		mint, err := solana.PublicKeyFromBase58(in.PriceCache.Mint)
		if err != nil {
			return domain.Session{}, fmt.Errorf("price cache mint: %w", err)
		}
		ts, err := parseTime(in.PriceCache.Timestamp)
		if err != nil {
			return domain.Session{}, fmt.Errorf("price cache timestamp: %w", err)
		}
		info := in.PriceCache.Info
		out.PriceCache = &domain.PriceCache{
			Mint:      mint,
			Timestamp: ts,
			Info: domain.TokenInfo{
				Name:              info.Name,
				Symbol:            info.Symbol,
				PriceUSD:          info.PriceUSD,
				MarketCapUSD:      info.MarketCapUSD,
				Volume24hUSD:      info.Volume24hUSD,
				CirculatingSupply: info.CirculatingSupply,
				TotalSupply:       info.TotalSupply,
				Change1h:          info.Change1h,
				Change24h:         info.Change24h,
				Change7d:          info.Change7d,
				Rank:              info.Rank,
				OnChainOnly:       info.OnChainOnly,
			},
		}
	}

	return out, nil
}

func encodeWallet(w domain.Wallet) string {
	if w.IsZero() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(w.Secret())
}

func encodeWallets(in []domain.Wallet) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, w := range in {
		out = append(out, encodeWallet(w))
	}
	return out
}

func decodeWallet(raw string) (domain.Wallet, error) {
	secret, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("%w: %v", domain.ErrInvalidWallet, err)
	}
	return domain.WalletFromSecret(secret)
}

func decodeWallets(in []string) ([]domain.Wallet, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]domain.Wallet, 0, len(in))
	for i, raw := range in {
		w, err := decodeWallet(raw)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: %w", i, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
