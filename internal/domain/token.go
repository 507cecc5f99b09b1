package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// PriceCacheTTL is how long fetched token metadata stays fresh.
const PriceCacheTTL = 5 * time.Minute

type TokenInfo struct {
	Name              string
	Symbol            string
	PriceUSD          float64
	MarketCapUSD      float64
	Volume24hUSD      float64
	CirculatingSupply float64
	TotalSupply       float64
	Change1h          float64
	Change24h         float64
	Change7d          float64
	Rank              int
	// OnChainOnly marks metadata built from the on-chain supply because the
	// market data provider does not list the token.
	OnChainOnly bool
}

type PriceCache struct {
	Mint      solana.PublicKey
	Timestamp time.Time
	Info      TokenInfo
}

func (c *PriceCache) FreshFor(mint solana.PublicKey, now time.Time) bool {
	if c == nil || c.Timestamp.IsZero() || !c.Mint.Equals(mint) {
		return false
	}
	return now.Sub(c.Timestamp) < PriceCacheTTL
}

// TokenAmount is a raw SPL balance with the mint's decimals.
type TokenAmount struct {
	Raw      uint64
	Decimals uint8
}
