package lending

import (
	"lendledger/core/events"
	"lendledger/crypto"
)

// Admin returns the identity currently holding the admin capability.
func (e *Engine) Admin() (crypto.Address, error) {
	if e == nil || e.state == nil {
		return crypto.Address{}, errNilState
	}
	return e.state.LendingAdmin()
}

// Pause engages the circuit breaker: deposit, withdraw and borrow are
// rejected until Unpause. Repay, interest claims and liquidations remain
// available so open positions can still de-risk.
func (e *Engine) Pause(caller crypto.Address) error {
	return e.setPaused(caller, true)
}

// Unpause releases the circuit breaker.
func (e *Engine) Unpause(caller crypto.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller crypto.Address, paused bool) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	if e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	params, err := e.loadParams()
	if err != nil {
		return err
	}
	params.Paused = paused
	if err := e.state.PutLendingParams(params); err != nil {
		return err
	}
	e.emitter.Emit(events.PauseChanged{Paused: paused})
	return nil
}

// UpdateParameters replaces the collateral factor and liquidation threshold.
// The update is rejected, not clamped, when the new pair violates the
// threshold-below-factor invariant. Account and totals state are untouched.
func (e *Engine) UpdateParameters(caller crypto.Address, collateralFactorBps, liquidationThresholdBps uint64) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	if e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	params, err := e.loadParams()
	if err != nil {
		return err
	}
	params.CollateralFactorBps = collateralFactorBps
	params.LiquidationThresholdBps = liquidationThresholdBps
	if err := params.Validate(); err != nil {
		return err
	}
	if err := e.state.PutLendingParams(params); err != nil {
		return err
	}
	e.emitter.Emit(events.ParametersUpdated{
		CollateralFactorBps:     collateralFactorBps,
		LiquidationThresholdBps: liquidationThresholdBps,
	})
	return nil
}

// TransferAdmin hands the admin capability to a new identity. A zero identity
// is rejected so the capability can never be burned by accident.
func (e *Engine) TransferAdmin(caller, next crypto.Address) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	if e.state == nil {
		return errNilState
	}
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	if next.IsZero() {
		return ErrInvalidParameters
	}
	previous, err := e.state.LendingAdmin()
	if err != nil {
		return err
	}
	if err := e.state.PutLendingAdmin(next); err != nil {
		return err
	}
	e.emitter.Emit(events.AdminTransferred{Previous: previous, Next: next})
	return nil
}

func (e *Engine) requireAdmin(caller crypto.Address) error {
	admin, err := e.state.LendingAdmin()
	if err != nil {
		return err
	}
	if admin.IsZero() || !caller.Equal(admin) {
		return ErrUnauthorized
	}
	return nil
}
