package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
)

type SessionID int64

const (
	// MaxWalletsCeiling is the hard upper bound for SessionConfig.MaxWallets.
	MaxWalletsCeiling = 50

	DefaultMaxWallets = 5
	DefaultBuyCycles  = 3
	DefaultDelayMs    = 2000

	// MaxDelayMs is the largest delay that still fits a time.Duration.
	MaxDelayMs = int64(math.MaxInt64 / int64(time.Millisecond))
)

type SessionConfig struct {
	MaxWallets int
	BuyCycles  int
	DelayMs    int64
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxWallets: DefaultMaxWallets,
		BuyCycles:  DefaultBuyCycles,
		DelayMs:    DefaultDelayMs,
	}
}

func (c SessionConfig) Validate() error {
	if c.MaxWallets <= 0 || c.MaxWallets > MaxWalletsCeiling {
		return fmt.Errorf("%w: max wallets must be in (0, %d], got %d", ErrInvalidConfig, MaxWalletsCeiling, c.MaxWallets)
	}
	if c.BuyCycles <= 0 {
		return fmt.Errorf("%w: buy cycles must be positive, got %d", ErrInvalidConfig, c.BuyCycles)
	}
	if c.DelayMs < 0 || c.DelayMs > MaxDelayMs {
		return fmt.Errorf("%w: delay must be in [0, %d], got %d", ErrInvalidConfig, MaxDelayMs, c.DelayMs)
	}

	return nil
}

type Session struct {
	ID          SessionID
	Main        Wallet
	Secondaries []Wallet
	// Retired keeps the keys of wallets replaced by a reset so leftover
	// funds stay recoverable.
	Retired        []Wallet
	TokenMint      *solana.PublicKey
	BuyRate        int
	Config         SessionConfig
	Awaiting       AwaitingState
	WithdrawTarget *solana.PublicKey
	Stats          *Stats
	PriceCache     *PriceCache
	CreatedAt      time.Time

	DepositWatcherActive bool
	RunnerActive         bool
}

func NewSession(id SessionID, main Wallet, now time.Time) Session {
	return Session{
		ID:        id,
		Main:      main,
		Config:    DefaultSessionConfig(),
		Awaiting:  AwaitingMint,
		CreatedAt: now,
	}
}

// Successor returns the fresh session that replaces s on reset. The
// replaced wallets move to Retired.
func (s Session) Successor(main Wallet, now time.Time) Session {
	next := NewSession(s.ID, main, now)
	retired := make([]Wallet, 0, len(s.Retired)+1+len(s.Secondaries))
	for _, w := range s.Retired {
		retired = append(retired, w.clone())
	}
	if !s.Main.IsZero() {
		retired = append(retired, s.Main.clone())
	}
	for _, w := range s.Secondaries {
		retired = append(retired, w.clone())
	}
	next.Retired = retired

	return next
}

func (s Session) Validate() error {
	if s.Main.IsZero() {
		return fmt.Errorf("%w: main wallet is missing", ErrInvalidWallet)
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if len(s.Secondaries) > s.Config.MaxWallets {
		return fmt.Errorf("%w: %d secondary wallets exceed max %d", ErrInvalidConfig, len(s.Secondaries), s.Config.MaxWallets)
	}
	if !s.Awaiting.Valid() {
		return fmt.Errorf("%w: unknown awaiting state %d", ErrInvalidConfig, s.Awaiting)
	}
	if s.DepositWatcherActive && s.RunnerActive {
		return fmt.Errorf("%w: deposit watcher and runner both active", ErrInvalidConfig)
	}

	return nil
}

func (s Session) Clone() Session {
	out := s
	out.Main = s.Main.clone()
	out.Secondaries = cloneWallets(s.Secondaries)
	out.Retired = cloneWallets(s.Retired)
	if s.TokenMint != nil {
		mint := *s.TokenMint
		out.TokenMint = &mint
	}
	if s.WithdrawTarget != nil {
		target := *s.WithdrawTarget
		out.WithdrawTarget = &target
	}
	if s.Stats != nil {
		stats := *s.Stats
		out.Stats = &stats
	}
	if s.PriceCache != nil {
		cache := *s.PriceCache
		out.PriceCache = &cache
	}

	return out
}

func (s *Session) AddSecondary(w Wallet) error {
	if w.IsZero() {
		return fmt.Errorf("%w: secondary wallet is empty", ErrInvalidWallet)
	}
	if len(s.Secondaries) >= s.Config.MaxWallets {
		return fmt.Errorf("%w: %d/%d", ErrWalletLimit, len(s.Secondaries), s.Config.MaxWallets)
	}

	s.Secondaries = append(s.Secondaries, w)
	return nil
}

// TradingWallets returns the secondaries that take part in a run.
func (s Session) TradingWallets() []Wallet {
	n := len(s.Secondaries)
	if n > s.Config.MaxWallets {
		n = s.Config.MaxWallets
	}
	return s.Secondaries[:n]
}

func (s *Session) SetMaxWallets(n int) error {
	next := s.Config
	next.MaxWallets = n
	if err := next.Validate(); err != nil {
		return err
	}
	if n < len(s.Secondaries) {
		return fmt.Errorf("%w: session already holds %d secondary wallets", ErrInvalidConfig, len(s.Secondaries))
	}

	s.Config = next
	return nil
}

func (s *Session) SetBuyCycles(n int) error {
	next := s.Config
	next.BuyCycles = n
	if err := next.Validate(); err != nil {
		return err
	}

	s.Config = next
	return nil
}

func (s *Session) SetDelayMs(n int64) error {
	next := s.Config
	next.DelayMs = n
	if err := next.Validate(); err != nil {
		return err
	}

	s.Config = next
	return nil
}

func (s Session) HasActiveJob() bool {
	return s.DepositWatcherActive || s.RunnerActive
}

func cloneWallets(in []Wallet) []Wallet {
	if in == nil {
		return nil
	}
	out := make([]Wallet, len(in))
	for i, w := range in {
		out[i] = w.clone()
	}
	return out
}
