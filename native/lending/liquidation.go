package lending

import (
	"math/big"

	"lendledger/core/events"
	"lendledger/crypto"
)

// Liquidate lets any account repay an unsafe position's debt in exchange for
// its collateral. The payout policy follows the configured liquidation mode:
//
//   - LiquidationFull: the entire outstanding debt is repaid and the entire
//     collateral balance is seized, regardless of repayAmount — a one-shot
//     close-out.
//   - LiquidationPartial: the liquidator repays up to repayAmount (capped at
//     the outstanding debt) and seizes collateral 1:1 with the repaid debt,
//     capped at the collateral balance. The residual position stays open and
//     may remain under-collateralized.
//
// The debt asset is pulled from the liquidator first; only after that succeeds
// are balances mutated and collateral pushed out. Liquidation stays available
// while paused so positions can de-risk.
func (e *Engine) Liquidate(liquidator, target crypto.Address, repayAmount *big.Int) (repaid, seized *big.Int, err error) {
	release, err := e.guard.enter()
	if err != nil {
		return nil, nil, err
	}
	defer release()

	if err := e.ready(); err != nil {
		return nil, nil, err
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, nil, err
	}

	pos, totals, prevPos, prevTotals, err := e.loadAccruedWithSnapshot(target, params)
	if err != nil {
		return nil, nil, err
	}
	if !liquidatable(pos, params) {
		return nil, nil, ErrPositionHealthy
	}

	switch params.Mode {
	case LiquidationFull:
		repaid = new(big.Int).Set(pos.Borrowed)
		seized = new(big.Int).Set(pos.Deposited)
	default:
		if repayAmount == nil || repayAmount.Sign() <= 0 {
			return nil, nil, ErrInvalidAmount
		}
		repaid = new(big.Int).Set(repayAmount)
		if repaid.Cmp(pos.Borrowed) > 0 {
			repaid.Set(pos.Borrowed)
		}
		seized = new(big.Int).Set(repaid)
		if seized.Cmp(pos.Deposited) > 0 {
			seized.Set(pos.Deposited)
		}
	}

	// Pull the debt asset from the liquidator before touching any balance.
	if err := e.debt.BurnFrom(liquidator, repaid); err != nil {
		return nil, nil, transferFailed(err)
	}

	pos.Borrowed.Sub(pos.Borrowed, repaid)
	pos.Deposited.Sub(pos.Deposited, seized)
	totals.TotalBorrowed.Sub(totals.TotalBorrowed, repaid)
	totals.TotalDeposited.Sub(totals.TotalDeposited, seized)

	send := func() error {
		if seized.Sign() == 0 {
			return nil
		}
		return e.collateral.Transfer(e.moduleAddress, liquidator, seized)
	}
	undo := func() error { return e.debt.Mint(liquidator, repaid) }
	if err := e.persistThenSend(pos, totals, prevPos, prevTotals, send, undo); err != nil {
		return nil, nil, err
	}

	e.emitter.Emit(events.PositionLiquidated{
		Liquidator: liquidator,
		Target:     target,
		Repaid:     new(big.Int).Set(repaid),
		Seized:     new(big.Int).Set(seized),
		Mode:       string(params.Mode),
	})
	return repaid, seized, nil
}

// liquidatable reports whether the position's health has fallen below the
// liquidation threshold. The ratio is computed at basis-point scale with a
// single truncating division so thresholds between whole percents resolve
// exactly. A debt-free position is never liquidatable.
func liquidatable(pos *Position, params *Params) bool {
	if pos == nil || pos.Borrowed == nil || pos.Borrowed.Sign() == 0 {
		return false
	}
	if pos.Deposited == nil || pos.Deposited.Sign() == 0 {
		return true
	}
	health := new(big.Int).Mul(pos.Deposited, basisPoints)
	health.Quo(health, pos.Borrowed)
	return health.Cmp(new(big.Int).SetUint64(params.LiquidationThresholdBps)) < 0
}
