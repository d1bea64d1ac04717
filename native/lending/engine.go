package lending

import (
	"errors"
	"math/big"
	"time"

	"lendledger/core/events"
	"lendledger/crypto"
	nativecommon "lendledger/native/common"
	"lendledger/native/token"
)

// engineState is the persistence boundary for the ledger's accounting records.
type engineState interface {
	LendingPosition(addr crypto.Address) (*Position, error)
	PutLendingPosition(pos *Position) error
	LendingTotals() (*ProtocolTotals, error)
	PutLendingTotals(totals *ProtocolTotals) error
	LendingParams() (*Params, error)
	PutLendingParams(params *Params) error
	LendingAdmin() (crypto.Address, error)
	PutLendingAdmin(addr crypto.Address) error
}

// Engine orchestrates the state transitions of the collateralized lending
// ledger. Operations execute as a strictly serialized sequence supplied by the
// caller; the engine's own concurrency concern is rejecting reentrant calls
// arriving through the external asset boundary.
type Engine struct {
	state         engineState
	collateral    token.Token
	debt          token.Token
	moduleAddress crypto.Address
	emitter       events.Emitter
	guard         callGuard
	nowFn         func() uint64
}

// ModuleAddress derives the well-known treasury address of the lending module.
func ModuleAddress() crypto.Address {
	return crypto.ModuleAddress("lending")
}

// NewEngine constructs a lending engine holding assets in the module treasury
// address.
func NewEngine(moduleAddr crypto.Address) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		emitter:       events.NoopEmitter{},
		nowFn:         func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokens configures the collateral and debt asset collaborators.
func (e *Engine) SetTokens(collateral, debt token.Token) {
	e.collateral = collateral
	e.debt = debt
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the ledger time source. Primarily intended for tests to
// provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// ModuleAddress returns the treasury address holding ledger assets.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// Deposit locks collateral for the caller. The incoming transfer is the first
// side effect so balances are never credited for value not actually received.
func (e *Engine) Deposit(caller crypto.Address, amount *big.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	params, err := e.loadParams()
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(pauseView{paused: params.Paused}, flowDeposit); err != nil {
		return ErrProtocolPaused
	}

	pos, totals, err := e.loadAccrued(caller, params)
	if err != nil {
		return err
	}

	if err := e.collateral.TransferFrom(caller, e.moduleAddress, amount); err != nil {
		return transferFailed(err)
	}

	pos.Deposited.Add(pos.Deposited, amount)
	totals.TotalDeposited.Add(totals.TotalDeposited, amount)

	if err := e.persist(pos, totals); err != nil {
		return err
	}
	e.emitter.Emit(events.CollateralDeposited{
		Account:        caller,
		Amount:         new(big.Int).Set(amount),
		TotalDeposited: new(big.Int).Set(pos.Deposited),
	})
	return nil
}

// Withdraw releases collateral back to the caller, provided the remaining
// balance still covers the outstanding debt under the collateral factor.
// Balances are updated and persisted before the outgoing transfer so a
// reentrant observer sees consistent post-state; a failed transfer rolls the
// records back.
func (e *Engine) Withdraw(caller crypto.Address, amount *big.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	params, err := e.loadParams()
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(pauseView{paused: params.Paused}, flowWithdraw); err != nil {
		return ErrProtocolPaused
	}

	pos, totals, prevPos, prevTotals, err := e.loadAccruedWithSnapshot(caller, params)
	if err != nil {
		return err
	}
	if pos.Deposited.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	remaining := new(big.Int).Sub(pos.Deposited, amount)
	if !withinBorrowLimit(pos.Borrowed, remaining, params.CollateralFactorBps) {
		return ErrCollateralBreach
	}

	pos.Deposited = remaining
	totals.TotalDeposited.Sub(totals.TotalDeposited, amount)

	send := func() error { return e.collateral.Transfer(e.moduleAddress, caller, amount) }
	if err := e.persistThenSend(pos, totals, prevPos, prevTotals, send, nil); err != nil {
		return err
	}
	e.emitter.Emit(events.CollateralWithdrawn{
		Account:   caller,
		Amount:    new(big.Int).Set(amount),
		Remaining: new(big.Int).Set(pos.Deposited),
	})
	return nil
}

// Borrow draws debt against the caller's collateral, minting the IOU-style
// debt asset to them as the final side effect.
func (e *Engine) Borrow(caller crypto.Address, amount *big.Int) error {
	release, err := e.guard.enter()
	if err != nil {
		return err
	}
	defer release()

	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	params, err := e.loadParams()
	if err != nil {
		return err
	}
	if err := nativecommon.Guard(pauseView{paused: params.Paused}, flowBorrow); err != nil {
		return ErrProtocolPaused
	}

	pos, totals, prevPos, prevTotals, err := e.loadAccruedWithSnapshot(caller, params)
	if err != nil {
		return err
	}
	projected := new(big.Int).Add(pos.Borrowed, amount)
	if !withinBorrowLimit(projected, pos.Deposited, params.CollateralFactorBps) {
		return ErrInsufficientCollateral
	}

	pos.Borrowed = projected
	totals.TotalBorrowed.Add(totals.TotalBorrowed, amount)

	send := func() error { return e.debt.Mint(caller, amount) }
	if err := e.persistThenSend(pos, totals, prevPos, prevTotals, send, nil); err != nil {
		return err
	}
	e.emitter.Emit(events.LoanDrawn{
		Account:  caller,
		Amount:   new(big.Int).Set(amount),
		Borrowed: new(big.Int).Set(pos.Borrowed),
	})
	return nil
}

// Repay retires debt for the caller, capped at the outstanding amount so the
// caller is never charged more than owed. Repay stays available while paused.
// A configurable slice of every repayment funds the depositor yield reserve;
// the remainder is burned out of circulation.
func (e *Engine) Repay(caller crypto.Address, amount *big.Int) (*big.Int, error) {
	release, err := e.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}

	pos, totals, err := e.loadAccrued(caller, params)
	if err != nil {
		return nil, err
	}
	if pos.Borrowed.Sign() == 0 {
		return nil, ErrNoOutstandingDebt
	}

	repaid := new(big.Int).Set(amount)
	if repaid.Cmp(pos.Borrowed) > 0 {
		repaid.Set(pos.Borrowed)
	}
	reserveShare := new(big.Int).Mul(repaid, new(big.Int).SetUint64(params.ReserveShareBps))
	reserveShare.Quo(reserveShare, basisPoints)
	burned := new(big.Int).Sub(repaid, reserveShare)

	// Pull the full repayment into the treasury first, then retire the burned
	// portion from the treasury's own balance. The reserve slice stays in the
	// treasury to back future interest claims.
	if err := e.debt.TransferFrom(caller, e.moduleAddress, repaid); err != nil {
		return nil, transferFailed(err)
	}
	if burned.Sign() > 0 {
		if err := e.debt.BurnFrom(e.moduleAddress, burned); err != nil {
			refundErr := e.debt.Transfer(e.moduleAddress, caller, repaid)
			return nil, errors.Join(transferFailed(err), refundErr)
		}
	}

	pos.Borrowed.Sub(pos.Borrowed, repaid)
	totals.TotalBorrowed.Sub(totals.TotalBorrowed, repaid)
	if reserveShare.Sign() > 0 {
		totals.InterestReserve.Add(totals.InterestReserve, reserveShare)
	}

	// A failed persist must not keep the caller's tokens: re-issue the burned
	// portion to the treasury and send the full pull back.
	if err := e.persist(pos, totals); err != nil {
		errs := []error{err}
		if burned.Sign() > 0 {
			if mintErr := e.debt.Mint(e.moduleAddress, burned); mintErr != nil {
				errs = append(errs, mintErr)
			}
		}
		if refundErr := e.debt.Transfer(e.moduleAddress, caller, repaid); refundErr != nil {
			errs = append(errs, refundErr)
		}
		return nil, errors.Join(errs...)
	}
	e.emitter.Emit(events.LoanRepaid{
		Account:      caller,
		Repaid:       new(big.Int).Set(repaid),
		Remaining:    new(big.Int).Set(pos.Borrowed),
		ReserveShare: new(big.Int).Set(reserveShare),
	})
	return repaid, nil
}

// ClaimInterest pays out the caller's credited reserve yield. Available while
// paused.
func (e *Engine) ClaimInterest(caller crypto.Address) (*big.Int, error) {
	release, err := e.guard.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.ready(); err != nil {
		return nil, err
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}

	pos, totals, prevPos, prevTotals, err := e.loadAccruedWithSnapshot(caller, params)
	if err != nil {
		return nil, err
	}
	if pos.InterestOwed.Sign() == 0 {
		return nil, ErrNothingToClaim
	}

	claimed := new(big.Int).Set(pos.InterestOwed)
	pos.InterestOwed = big.NewInt(0)

	send := func() error { return e.debt.Transfer(e.moduleAddress, caller, claimed) }
	if err := e.persistThenSend(pos, totals, prevPos, prevTotals, send, nil); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.InterestClaimed{
		Account: caller,
		Amount:  claimed,
	})
	return claimed, nil
}

// Position returns the caller's position brought current to ledger time
// in-memory. The stored record is untouched; health and accrued interest are
// derived, not stored.
func (e *Engine) Position(addr crypto.Address) (*Position, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	pos, totals, err := e.loadAccrued(addr, params)
	if err != nil {
		return nil, err
	}
	_ = totals
	return pos, nil
}

// Totals returns a copy of the ledger-wide accounting state.
func (e *Engine) Totals() (*ProtocolTotals, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.loadTotals()
}

// Parameters returns a copy of the active risk parameters.
func (e *Engine) Parameters() (*Params, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.loadParams()
}

// HealthFactor evaluates the derived health of the address at current ledger
// time: MaxHealthFactor when debt is zero, otherwise deposited * 100 /
// borrowed with truncating division.
func (e *Engine) HealthFactor(addr crypto.Address) (*big.Int, error) {
	pos, err := e.Position(addr)
	if err != nil {
		return nil, err
	}
	return healthFactor(pos), nil
}

// --- internals ---

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.collateral == nil || e.debt == nil {
		return errNilToken
	}
	return nil
}

func (e *Engine) now() uint64 { return e.nowFn() }

func (e *Engine) loadParams() (*Params, error) {
	params, err := e.state.LendingParams()
	if err != nil {
		return nil, err
	}
	if params == nil {
		return DefaultParams(), nil
	}
	return params.Clone(), nil
}

func (e *Engine) loadTotals() (*ProtocolTotals, error) {
	totals, err := e.state.LendingTotals()
	if err != nil {
		return nil, err
	}
	if totals == nil {
		totals = &ProtocolTotals{}
	} else {
		totals = totals.Clone()
	}
	totals.ensureDefaults()
	return totals, nil
}

func (e *Engine) loadPosition(addr crypto.Address) (*Position, error) {
	pos, err := e.state.LendingPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = &Position{Address: addr}
	} else {
		pos = pos.Clone()
	}
	pos.ensureDefaults()
	return pos, nil
}

// loadAccrued loads working copies of the position and totals and brings the
// position current. Nothing is persisted until the surrounding operation
// succeeds.
func (e *Engine) loadAccrued(addr crypto.Address, params *Params) (*Position, *ProtocolTotals, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return nil, nil, err
	}
	totals, err := e.loadTotals()
	if err != nil {
		return nil, nil, err
	}
	accrue(pos, totals, params, e.now())
	return pos, totals, nil
}

// loadAccruedWithSnapshot additionally captures the stored (pre-accrual)
// records for rollback when a later outgoing transfer fails.
func (e *Engine) loadAccruedWithSnapshot(addr crypto.Address, params *Params) (pos *Position, totals *ProtocolTotals, prevPos *Position, prevTotals *ProtocolTotals, err error) {
	prevPos, err = e.loadPosition(addr)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	prevTotals, err = e.loadTotals()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	pos = prevPos.Clone()
	totals = prevTotals.Clone()
	accrue(pos, totals, params, e.now())
	return pos, totals, prevPos, prevTotals, nil
}

func (e *Engine) persist(pos *Position, totals *ProtocolTotals) error {
	if err := e.state.PutLendingPosition(pos); err != nil {
		return err
	}
	return e.state.PutLendingTotals(totals)
}

// persistThenSend persists the mutated records and then performs the outgoing
// transfer as the last side effect. If the transfer fails, the stored records
// are restored and, when the operation pulled assets in earlier, undo reverses
// that pull, so the failure leaves no partial state change.
func (e *Engine) persistThenSend(pos *Position, totals *ProtocolTotals, prevPos *Position, prevTotals *ProtocolTotals, send func() error, undo func() error) error {
	if err := e.persist(pos, totals); err != nil {
		return err
	}
	sendErr := send()
	if sendErr == nil {
		return nil
	}
	errs := []error{transferFailed(sendErr)}
	if err := e.state.PutLendingPosition(prevPos); err != nil {
		errs = append(errs, err)
	}
	if err := e.state.PutLendingTotals(prevTotals); err != nil {
		errs = append(errs, err)
	}
	if undo != nil {
		if err := undo(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// maxHealthFactor is the sentinel health of a debt-free position (MAX_UINT).
var maxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// MaxHealthFactor returns the health sentinel reported for debt-free
// positions.
func MaxHealthFactor() *big.Int { return new(big.Int).Set(maxHealthFactor) }

var hundred = big.NewInt(100)

func healthFactor(pos *Position) *big.Int {
	if pos == nil || pos.Borrowed == nil || pos.Borrowed.Sign() == 0 {
		return MaxHealthFactor()
	}
	if pos.Deposited == nil || pos.Deposited.Sign() == 0 {
		return big.NewInt(0)
	}
	health := new(big.Int).Mul(pos.Deposited, hundred)
	return health.Quo(health, pos.Borrowed)
}

// withinBorrowLimit reports whether debt stays at or below
// deposited * collateralFactorBps / 10000 with truncating division.
func withinBorrowLimit(borrowed, deposited *big.Int, collateralFactorBps uint64) bool {
	if borrowed == nil || borrowed.Sign() == 0 {
		return true
	}
	if deposited == nil || deposited.Sign() == 0 {
		return false
	}
	limit := new(big.Int).Mul(deposited, new(big.Int).SetUint64(collateralFactorBps))
	limit.Quo(limit, basisPoints)
	return borrowed.Cmp(limit) <= 0
}
