package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of base units in one SOL.
const LamportsPerSOL = 1_000_000_000

const solDecimals = 9

func SOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -solDecimals)
}

func SignedSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, -solDecimals)
}

func (a TokenAmount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(a.Raw), -int32(a.Decimals))
}
