package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

type Choice struct {
	Label  string
	Action string
}

type WalletBalance struct {
	Address solana.PublicKey
	Base    uint64
	Asset   TokenAmount
	// Known is false when the balance lookup failed.
	Known bool
}

// Summary is the read model pushed to the presentation layer.
type Summary struct {
	SessionID      SessionID
	Config         SessionConfig
	BuyRate        int
	Mint           *solana.PublicKey
	Token          *TokenInfo
	TokenAvailable bool
	Main           WalletBalance
	Secondaries    []WalletBalance
	Stats          *Stats
	WithdrawTarget *solana.PublicKey
	Awaiting       AwaitingState
	WatcherActive  bool
	RunnerActive   bool
	GeneratedAt    time.Time
}
