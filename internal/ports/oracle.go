package ports

import (
	"context"

	"github.com/bnema/volumebot/internal/domain"
	"github.com/gagliardetto/solana-go"
)

// PriceOracle returns domain.ErrTokenNotFound for unknown mints. Any other
// error is treated as transient.
type PriceOracle interface {
	FetchMetadata(ctx context.Context, mint solana.PublicKey) (domain.TokenInfo, error)
}
