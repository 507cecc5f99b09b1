package domain

import (
	"fmt"
	"math/big"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

const (
	minSplitWeight = 1
	maxSplitWeight = 100
)

var (
	DefaultReserveRatio = decimal.RequireFromString("0.38")
	DefaultFeeRatio     = decimal.RequireFromString("0.01")
)

// IntSource draws integers in [0, n). *rand.Rand satisfies it.
type IntSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultIntSource uses the process-wide math/rand/v2 generator.
var DefaultIntSource IntSource = globalSource{}

type FeePolicy struct {
	Enabled bool
	Ratio   decimal.Decimal
}

type DistributionPolicy struct {
	ReserveRatio decimal.Decimal
	Fee          FeePolicy
}

func DefaultDistributionPolicy() DistributionPolicy {
	return DistributionPolicy{
		ReserveRatio: DefaultReserveRatio,
		Fee:          FeePolicy{Enabled: true, Ratio: DefaultFeeRatio},
	}
}

func (p DistributionPolicy) Validate() error {
	if err := validateRatio("reserve ratio", p.ReserveRatio); err != nil {
		return err
	}
	if p.Fee.Enabled {
		if err := validateRatio("fee ratio", p.Fee.Ratio); err != nil {
			return err
		}
	}
	return nil
}

// Distribution is the outcome of the fixed extraction order:
// reserve, then the optional fee, then the split of what remains.
type Distribution struct {
	Balance       uint64
	Reserve       uint64
	Fee           uint64
	Distributable uint64
	Shares        []uint64
}

// Undistributed is the flooring remainder that stays with the distributing wallet.
func (d Distribution) Undistributed() uint64 {
	var sum uint64
	for _, share := range d.Shares {
		sum += share
	}
	return d.Distributable - sum
}

func PlanDistribution(balance uint64, policy DistributionPolicy, wallets int, src IntSource) (Distribution, error) {
	if wallets < 1 {
		return Distribution{}, ErrNoSecondaryWallets
	}
	if err := policy.Validate(); err != nil {
		return Distribution{}, err
	}

	plan := Distribution{Balance: balance}
	plan.Reserve = FloorPortion(balance, policy.ReserveRatio)
	remainder := balance - plan.Reserve
	if policy.Fee.Enabled {
		plan.Fee = FloorPortion(remainder, policy.Fee.Ratio)
	}
	plan.Distributable = remainder - plan.Fee
	plan.Shares = Split(plan.Distributable, wallets, src)

	return plan, nil
}

// FloorPortion returns floor(amount * ratio) for ratio in [0, 1].
func FloorPortion(amount uint64, ratio decimal.Decimal) uint64 {
	if amount == 0 || !ratio.IsPositive() {
		return 0
	}
	portion := units(amount).Mul(ratio).Floor()
	if portion.GreaterThanOrEqual(units(amount)) {
		return amount
	}
	return portion.BigInt().Uint64()
}

// Split draws n weights uniformly from [1, 100) and splits total
// proportionally. Shares are floored so their sum never exceeds total.
func Split(total uint64, n int, src IntSource) []uint64 {
	if n < 1 {
		return nil
	}
	if src == nil {
		src = DefaultIntSource
	}

	weights := make([]uint64, n)
	for i := range weights {
		weights[i] = uint64(minSplitWeight + src.IntN(maxSplitWeight-minSplitWeight))
	}

	return SplitWeights(total, weights)
}

// SplitWeights computes floor(total * w_i / sum(w)) for every weight.
func SplitWeights(total uint64, weights []uint64) []uint64 {
	shares := make([]uint64, len(weights))

	var sum uint64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 || total == 0 {
		return shares
	}

	denominator := units(sum)
	for i, w := range weights {
		quotient, _ := units(total).Mul(units(w)).QuoRem(denominator, 0)
		shares[i] = quotient.BigInt().Uint64()
	}

	return shares
}

func validateRatio(name string, ratio decimal.Decimal) error {
	if ratio.IsNegative() || ratio.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s must be in [0, 1], got %s", ErrInvalidConfig, name, ratio)
	}
	return nil
}

func units(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
