package lending

import (
	"errors"
	"fmt"

	nativecommon "lendledger/native/common"
)

var (
	errNilState = errors.New("lending engine: state not configured")
	errNilToken = errors.New("lending engine: token collaborators not configured")

	// ErrInvalidAmount rejects nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("lending engine: amount must be positive")
	// ErrInsufficientBalance rejects withdrawals exceeding the deposited
	// collateral.
	ErrInsufficientBalance = errors.New("lending engine: insufficient collateral balance")
	// ErrInsufficientCollateral rejects borrows that would push debt past the
	// collateral factor limit.
	ErrInsufficientCollateral = errors.New("lending engine: borrow exceeds collateral limit")
	// ErrCollateralBreach rejects withdrawals that would leave the remaining
	// collateral unable to cover the outstanding debt.
	ErrCollateralBreach = errors.New("lending engine: withdrawal would breach collateral requirement")
	// ErrNoOutstandingDebt rejects repayments against a debt-free position.
	ErrNoOutstandingDebt = errors.New("lending engine: no outstanding debt")
	// ErrNothingToClaim rejects interest claims when no yield is credited.
	ErrNothingToClaim = errors.New("lending engine: nothing to claim")
	// ErrPositionHealthy rejects liquidation of positions at or above the
	// liquidation threshold.
	ErrPositionHealthy = errors.New("lending engine: position is healthy")
	// ErrTransferFailed wraps failures reported by the external asset boundary.
	ErrTransferFailed = errors.New("lending engine: token transfer failed")
	// ErrReentrantCall rejects calls arriving while an operation is in flight.
	ErrReentrantCall = errors.New("lending engine: reentrant call")
	// ErrInvalidParameters rejects risk parameter sets violating an invariant.
	ErrInvalidParameters = errors.New("lending engine: invalid parameters")
	// ErrUnauthorized rejects admin operations from non-admin callers.
	ErrUnauthorized = errors.New("lending engine: caller is not the admin")
	// ErrProtocolPaused rejects risk-increasing flows while the circuit breaker
	// is engaged.
	ErrProtocolPaused = fmt.Errorf("lending engine: %w", nativecommon.ErrModulePaused)
)

func transferFailed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransferFailed, err)
}
