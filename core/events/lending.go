package events

import (
	"math/big"
	"strconv"

	"lendledger/core/types"
	"lendledger/crypto"
)

const (
	// TypeLendingDeposited captures collateral locked into the ledger.
	TypeLendingDeposited = "lending.deposited"
	// TypeLendingWithdrawn captures collateral released back to the holder.
	TypeLendingWithdrawn = "lending.withdrawn"
	// TypeLendingBorrowed captures a new draw against collateral.
	TypeLendingBorrowed = "lending.borrowed"
	// TypeLendingRepaid captures debt repayment, capped at the outstanding amount.
	TypeLendingRepaid = "lending.repaid"
	// TypeLendingInterestClaimed captures a depositor claiming reserve yield.
	TypeLendingInterestClaimed = "lending.interestClaimed"
	// TypeLendingLiquidated captures a third-party close-out of an unsafe position.
	TypeLendingLiquidated = "lending.liquidated"
	// TypeLendingParamsUpdated is emitted when the admin changes risk parameters.
	TypeLendingParamsUpdated = "lending.paramsUpdated"
	// TypeLendingPauseChanged is emitted when the circuit breaker toggles.
	TypeLendingPauseChanged = "lending.pauseChanged"
	// TypeLendingAdminTransferred is emitted when the admin identity rotates.
	TypeLendingAdminTransferred = "lending.adminTransferred"
)

// CollateralDeposited records collateral entering an account.
type CollateralDeposited struct {
	Account        crypto.Address
	Amount         *big.Int
	TotalDeposited *big.Int
}

func (CollateralDeposited) EventType() string { return TypeLendingDeposited }

// Event converts the structured payload into a broadcastable event.
func (e CollateralDeposited) Event() *types.Event {
	return &types.Event{Type: TypeLendingDeposited, Attributes: map[string]string{
		"account":        e.Account.String(),
		"amount":         formatAmount(e.Amount),
		"totalDeposited": formatAmount(e.TotalDeposited),
	}}
}

// CollateralWithdrawn records collateral leaving an account.
type CollateralWithdrawn struct {
	Account   crypto.Address
	Amount    *big.Int
	Remaining *big.Int
}

func (CollateralWithdrawn) EventType() string { return TypeLendingWithdrawn }

func (e CollateralWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeLendingWithdrawn, Attributes: map[string]string{
		"account":   e.Account.String(),
		"amount":    formatAmount(e.Amount),
		"remaining": formatAmount(e.Remaining),
	}}
}

// LoanDrawn records new debt issued against a collateral position.
type LoanDrawn struct {
	Account  crypto.Address
	Amount   *big.Int
	Borrowed *big.Int
}

func (LoanDrawn) EventType() string { return TypeLendingBorrowed }

func (e LoanDrawn) Event() *types.Event {
	return &types.Event{Type: TypeLendingBorrowed, Attributes: map[string]string{
		"account":  e.Account.String(),
		"amount":   formatAmount(e.Amount),
		"borrowed": formatAmount(e.Borrowed),
	}}
}

// LoanRepaid records a repayment. Repaid reflects the capped amount actually
// charged; ReserveShare is the slice routed to the depositor yield reserve.
type LoanRepaid struct {
	Account      crypto.Address
	Repaid       *big.Int
	Remaining    *big.Int
	ReserveShare *big.Int
}

func (LoanRepaid) EventType() string { return TypeLendingRepaid }

func (e LoanRepaid) Event() *types.Event {
	attrs := map[string]string{
		"account":   e.Account.String(),
		"repaid":    formatAmount(e.Repaid),
		"remaining": formatAmount(e.Remaining),
	}
	if e.ReserveShare != nil && e.ReserveShare.Sign() > 0 {
		attrs["reserveShare"] = formatAmount(e.ReserveShare)
	}
	return &types.Event{Type: TypeLendingRepaid, Attributes: attrs}
}

// InterestClaimed records a depositor collecting accrued reserve yield.
type InterestClaimed struct {
	Account crypto.Address
	Amount  *big.Int
}

func (InterestClaimed) EventType() string { return TypeLendingInterestClaimed }

func (e InterestClaimed) Event() *types.Event {
	return &types.Event{Type: TypeLendingInterestClaimed, Attributes: map[string]string{
		"account": e.Account.String(),
		"amount":  formatAmount(e.Amount),
	}}
}

// PositionLiquidated records a third party repaying unsafe debt and seizing
// collateral under the configured liquidation mode.
type PositionLiquidated struct {
	Liquidator crypto.Address
	Target     crypto.Address
	Repaid     *big.Int
	Seized     *big.Int
	Mode       string
}

func (PositionLiquidated) EventType() string { return TypeLendingLiquidated }

func (e PositionLiquidated) Event() *types.Event {
	return &types.Event{Type: TypeLendingLiquidated, Attributes: map[string]string{
		"liquidator": e.Liquidator.String(),
		"target":     e.Target.String(),
		"repaid":     formatAmount(e.Repaid),
		"seized":     formatAmount(e.Seized),
		"mode":       e.Mode,
	}}
}

// ParametersUpdated records an accepted admin risk-parameter change.
type ParametersUpdated struct {
	CollateralFactorBps     uint64
	LiquidationThresholdBps uint64
}

func (ParametersUpdated) EventType() string { return TypeLendingParamsUpdated }

func (e ParametersUpdated) Event() *types.Event {
	return &types.Event{Type: TypeLendingParamsUpdated, Attributes: map[string]string{
		"collateralFactorBps":     strconv.FormatUint(e.CollateralFactorBps, 10),
		"liquidationThresholdBps": strconv.FormatUint(e.LiquidationThresholdBps, 10),
	}}
}

// PauseChanged records the circuit breaker toggling.
type PauseChanged struct {
	Paused bool
}

func (PauseChanged) EventType() string { return TypeLendingPauseChanged }

func (e PauseChanged) Event() *types.Event {
	return &types.Event{Type: TypeLendingPauseChanged, Attributes: map[string]string{
		"paused": strconv.FormatBool(e.Paused),
	}}
}

// AdminTransferred records a rotation of the admin identity.
type AdminTransferred struct {
	Previous crypto.Address
	Next     crypto.Address
}

func (AdminTransferred) EventType() string { return TypeLendingAdminTransferred }

func (e AdminTransferred) Event() *types.Event {
	return &types.Event{Type: TypeLendingAdminTransferred, Attributes: map[string]string{
		"previous": e.Previous.String(),
		"next":     e.Next.String(),
	}}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
