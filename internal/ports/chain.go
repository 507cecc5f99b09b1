package ports

import (
	"context"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/gagliardetto/solana-go"
)

type SwapRequest struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	// Amount is in raw units of InputMint.
	Amount uint64
	Signer domain.Wallet
}

// ChainClient is everything the engine needs from the chain.
type ChainClient interface {
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	AssetBalance(ctx context.Context, owner, mint solana.PublicKey) (domain.TokenAmount, error)
	Transfer(ctx context.Context, from domain.Wallet, to solana.PublicKey, amount uint64) (solana.Signature, error)
	Swap(ctx context.Context, req SwapRequest) (solana.Signature, error)
}
