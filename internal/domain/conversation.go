package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/gagliardetto/solana-go"
)

// AwaitingState is the single kind of input a session expects next.
type AwaitingState uint8

const (
	AwaitingNone AwaitingState = iota
	AwaitingMint
	AwaitingRate
	AwaitingWithdrawAddress
)

var awaitingNames = map[AwaitingState]string{
	AwaitingNone:            "none",
	AwaitingMint:            "mint",
	AwaitingRate:            "rate",
	AwaitingWithdrawAddress: "withdraw_address",
}

func (a AwaitingState) Valid() bool {
	_, ok := awaitingNames[a]
	return ok
}

func (a AwaitingState) String() string {
	if name, ok := awaitingNames[a]; ok {
		return name
	}
	return fmt.Sprintf("awaiting(%d)", uint8(a))
}

func ParseAwaitingState(raw string) (AwaitingState, error) {
	if raw == "" {
		return AwaitingNone, nil
	}
	for state, name := range awaitingNames {
		if name == raw {
			return state, nil
		}
	}
	return AwaitingNone, fmt.Errorf("%w: unknown awaiting state %q", ErrInvalidConfig, raw)
}

// RateChoices are the buy rates (cycles per minute) offered after a mint is set.
var RateChoices = []int{10, 20, 30, 40, 50}

func ValidRate(rate int) bool {
	return slices.Contains(RateChoices, rate)
}

// MintOutcome classifies the oracle verdict on a candidate mint.
type MintOutcome uint8

const (
	MintVerified MintOutcome = iota
	MintNotFound
	// MintUnverified means the oracle failed transiently; the mint is
	// accepted without pricing data.
	MintUnverified
)

// BeginMintEntry is used by /start and the set-mint action.
func (s *Session) BeginMintEntry() {
	s.Awaiting = AwaitingMint
}

func (s *Session) BeginWithdrawEntry() {
	s.Awaiting = AwaitingWithdrawAddress
}

// ResolveMint consumes the pending mint expectation. On MintNotFound the
// candidate is discarded and the session keeps awaiting a mint.
func (s *Session) ResolveMint(mint solana.PublicKey, outcome MintOutcome, info *TokenInfo, now time.Time) error {
	if s.Awaiting != AwaitingMint {
		return fmt.Errorf("%w: mint while %s", ErrUnexpectedInput, s.Awaiting)
	}

	switch outcome {
	case MintNotFound:
		s.TokenMint = nil
		s.PriceCache = nil
		return nil
	case MintVerified, MintUnverified:
	default:
		return fmt.Errorf("%w: unknown mint outcome %d", ErrUnexpectedInput, outcome)
	}

	committed := mint
	s.TokenMint = &committed
	s.PriceCache = nil
	if outcome == MintVerified && info != nil {
		s.PriceCache = &PriceCache{Mint: mint, Timestamp: now, Info: *info}
	}
	s.Awaiting = AwaitingRate

	return nil
}

func (s *Session) ResolveRate(rate int) error {
	if s.Awaiting != AwaitingRate {
		return fmt.Errorf("%w: rate while %s", ErrUnexpectedInput, s.Awaiting)
	}
	if !ValidRate(rate) {
		return fmt.Errorf("%w: %d", ErrInvalidRate, rate)
	}

	s.BuyRate = rate
	s.Awaiting = AwaitingNone
	return nil
}

func (s *Session) ResolveWithdrawAddress(target solana.PublicKey) error {
	if s.Awaiting != AwaitingWithdrawAddress {
		return fmt.Errorf("%w: withdraw address while %s", ErrUnexpectedInput, s.Awaiting)
	}

	committed := target
	s.WithdrawTarget = &committed
	s.Awaiting = AwaitingNone
	return nil
}
