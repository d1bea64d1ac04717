package lending

import "fmt"

// LiquidationMode selects the payout policy applied when closing unsafe
// positions.
type LiquidationMode string

const (
	// LiquidationFull repays the entire outstanding debt and seizes the
	// entire collateral balance, regardless of the amount passed.
	LiquidationFull LiquidationMode = "full"
	// LiquidationPartial repays up to the requested amount and seizes
	// collateral 1:1 with the repaid debt, capped at the collateral balance.
	LiquidationPartial LiquidationMode = "partial"
)

// Params groups the governance controlled risk constants of the ledger.
type Params struct {
	// CollateralFactorBps is the loan-to-value cap in basis points.
	CollateralFactorBps uint64
	// LiquidationThresholdBps is the health boundary below which positions
	// may be forcibly closed, in basis points. Always strictly below the
	// collateral factor.
	LiquidationThresholdBps uint64
	// BaseInterestRateBps is the annualized simple interest rate charged on
	// outstanding debt, in basis points.
	BaseInterestRateBps uint64
	// ReserveShareBps is the slice of every repayment routed to the shared
	// depositor yield reserve, in basis points. Zero disables depositor yield.
	ReserveShareBps uint64
	// Mode selects the liquidation payout policy.
	Mode LiquidationMode
	// Paused halts deposit, withdraw and borrow flows. Repay, interest claims
	// and liquidations stay open so positions can only de-risk.
	Paused bool
}

const maxBps = 10_000

// Validate checks the parameter invariants. A violating set is rejected, never
// clamped.
func (p *Params) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil parameters", ErrInvalidParameters)
	}
	if p.CollateralFactorBps > maxBps {
		return fmt.Errorf("%w: collateral factor %d exceeds %d bps", ErrInvalidParameters, p.CollateralFactorBps, maxBps)
	}
	if p.LiquidationThresholdBps >= p.CollateralFactorBps {
		return fmt.Errorf("%w: liquidation threshold %d must be below collateral factor %d", ErrInvalidParameters, p.LiquidationThresholdBps, p.CollateralFactorBps)
	}
	if p.BaseInterestRateBps > maxBps {
		return fmt.Errorf("%w: base interest rate %d exceeds %d bps", ErrInvalidParameters, p.BaseInterestRateBps, maxBps)
	}
	if p.ReserveShareBps > maxBps {
		return fmt.Errorf("%w: reserve share %d exceeds %d bps", ErrInvalidParameters, p.ReserveShareBps, maxBps)
	}
	switch p.Mode {
	case LiquidationFull, LiquidationPartial:
	default:
		return fmt.Errorf("%w: unknown liquidation mode %q", ErrInvalidParameters, p.Mode)
	}
	return nil
}

// Clone returns a copy of the parameter set.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// DefaultParams is the genesis parameter set used when no configuration is
// supplied: 75% loan-to-value, 65% liquidation threshold, 5% APR, partial
// liquidations, depositor yield disabled.
func DefaultParams() *Params {
	return &Params{
		CollateralFactorBps:     7_500,
		LiquidationThresholdBps: 6_500,
		BaseInterestRateBps:     500,
		ReserveShareBps:         0,
		Mode:                    LiquidationPartial,
	}
}

// Flow names used with the pause guard.
const (
	flowDeposit  = "lending.deposit"
	flowWithdraw = "lending.withdraw"
	flowBorrow   = "lending.borrow"
)

// pauseView adapts the persisted pause flag to the guard interface. Only the
// risk-increasing flows are blocked while paused.
type pauseView struct {
	paused bool
}

func (v pauseView) IsPaused(flow string) bool {
	if !v.paused {
		return false
	}
	switch flow {
	case flowDeposit, flowWithdraw, flowBorrow:
		return true
	}
	return false
}
