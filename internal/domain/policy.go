package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PacingMode selects how many buy legs a cycle has and how long to wait
// between legs.
type PacingMode string

const (
	// PacingRate runs BuyRate legs per cycle, 60000/BuyRate ms apart.
	PacingRate PacingMode = "rate"
	// PacingCount runs Config.BuyCycles legs per cycle, Config.DelayMs apart.
	PacingCount PacingMode = "count"
)

// BuySizing selects how a cycle's buy budget is cut into legs.
type BuySizing string

const (
	SizingUniform       BuySizing = "uniform"
	SizingRandomTwoLegs BuySizing = "random_two_legs"
)

var (
	DefaultSpendFraction = decimal.RequireFromString("0.8")
	DefaultSellFraction  = decimal.RequireFromString("0.8")
	DefaultStopRatio     = decimal.RequireFromString("0.4")
)

type CyclePolicy struct {
	Pacing        PacingMode
	Sizing        BuySizing
	SpendFraction decimal.Decimal
	SellFraction  decimal.Decimal
}

func DefaultCyclePolicy() CyclePolicy {
	return CyclePolicy{
		Pacing:        PacingRate,
		Sizing:        SizingUniform,
		SpendFraction: DefaultSpendFraction,
		SellFraction:  DefaultSellFraction,
	}
}

func ParsePacingMode(raw string) (PacingMode, error) {
	switch mode := PacingMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case PacingRate, PacingCount:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: unknown pacing mode %q", ErrInvalidConfig, raw)
	}
}

func ParseBuySizing(raw string) (BuySizing, error) {
	switch sizing := BuySizing(strings.ToLower(strings.TrimSpace(raw))); sizing {
	case SizingUniform, SizingRandomTwoLegs:
		return sizing, nil
	default:
		return "", fmt.Errorf("%w: unknown buy sizing %q", ErrInvalidConfig, raw)
	}
}

func (p CyclePolicy) Validate() error {
	if _, err := ParsePacingMode(string(p.Pacing)); err != nil {
		return err
	}
	if _, err := ParseBuySizing(string(p.Sizing)); err != nil {
		return err
	}
	if err := validateRatio("spend fraction", p.SpendFraction); err != nil {
		return err
	}
	return validateRatio("sell fraction", p.SellFraction)
}

// Pacing is the resolved per-session leg count and inter-leg delay.
type Pacing struct {
	LegsPerCycle  int
	InterLegDelay time.Duration
}

func (p CyclePolicy) PacingFor(s Session) (Pacing, error) {
	var pacing Pacing
	switch p.Pacing {
	case PacingRate:
		if s.BuyRate <= 0 {
			return Pacing{}, ErrRateNotSet
		}
		pacing = Pacing{
			LegsPerCycle:  s.BuyRate,
			InterLegDelay: time.Minute / time.Duration(s.BuyRate),
		}
	case PacingCount:
		if err := s.Config.Validate(); err != nil {
			return Pacing{}, err
		}
		pacing = Pacing{
			LegsPerCycle:  s.Config.BuyCycles,
			InterLegDelay: time.Duration(s.Config.DelayMs) * time.Millisecond,
		}
	default:
		return Pacing{}, fmt.Errorf("%w: unknown pacing mode %q", ErrInvalidConfig, p.Pacing)
	}

	if p.Sizing == SizingRandomTwoLegs {
		pacing.LegsPerCycle = 2
	}

	return pacing, nil
}

// BuyLegs sizes the buy legs of one cycle for the given wallet balance.
// The legs never sum to more than floor(balance * SpendFraction).
func (p CyclePolicy) BuyLegs(balance uint64, pacing Pacing, src IntSource) []uint64 {
	budget := FloorPortion(balance, p.SpendFraction)
	if budget == 0 || pacing.LegsPerCycle < 1 {
		return nil
	}

	if p.Sizing == SizingRandomTwoLegs {
		return Split(budget, 2, src)
	}

	leg := budget / uint64(pacing.LegsPerCycle)
	legs := make([]uint64, pacing.LegsPerCycle)
	for i := range legs {
		legs[i] = leg
	}
	return legs
}

func (p CyclePolicy) SellAmount(spent uint64) uint64 {
	return FloorPortion(spent, p.SellFraction)
}
