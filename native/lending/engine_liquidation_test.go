package lending

import (
	"errors"
	"math/big"
	"testing"

	"lendledger/crypto"
)

// seedUnsafePosition stores a position already below the liquidation
// threshold: 100 collateral against 118 debt is 84% health, under the 85%
// threshold used by these tests.
func seedUnsafePosition(tl *testLedger, target crypto.Address) {
	tl.state.positions[tl.state.key(target)] = &Position{
		Address:   target,
		Deposited: big.NewInt(100),
		Borrowed:  big.NewInt(118),
	}
	tl.state.totals = &ProtocolTotals{
		TotalDeposited: big.NewInt(100),
		TotalBorrowed:  big.NewInt(118),
	}
	tl.collateral.setBalance(tl.module, 100)
}

func liquidationParams(mode LiquidationMode) *Params {
	return &Params{
		CollateralFactorBps:     9_000,
		LiquidationThresholdBps: 8_500,
		Mode:                    mode,
	}
}

func TestLiquidateRejectsHealthyPosition(t *testing.T) {
	tl := newTestLedger(liquidationParams(LiquidationPartial))
	alice := makeAddress(0x01)
	bob := makeAddress(0x02)
	tl.collateral.setBalance(alice, 1_000)

	if err := tl.engine.Deposit(alice, big.NewInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := tl.engine.Borrow(alice, big.NewInt(500)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	if _, _, err := tl.engine.Liquidate(bob, alice, big.NewInt(100)); !errors.Is(err, ErrPositionHealthy) {
		t.Fatalf("got %v, want ErrPositionHealthy", err)
	}
	// Debt-free positions are never liquidatable either.
	if _, _, err := tl.engine.Liquidate(bob, bob, big.NewInt(100)); !errors.Is(err, ErrPositionHealthy) {
		t.Fatalf("debt-free target: got %v, want ErrPositionHealthy", err)
	}
}

func TestLiquidatePartialMode(t *testing.T) {
	tl := newTestLedger(liquidationParams(LiquidationPartial))
	alice := makeAddress(0x01)
	bob := makeAddress(0x02)
	seedUnsafePosition(tl, alice)
	tl.debt.setBalance(bob, 200)

	repaid, seized, err := tl.engine.Liquidate(bob, alice, big.NewInt(50))
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if repaid.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected repaid: %s", repaid)
	}
	if seized.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected seized: %s", seized)
	}

	pos := tl.state.positions[tl.state.key(alice)]
	if pos.Borrowed.Cmp(big.NewInt(68)) != 0 {
		t.Fatalf("unexpected remaining debt: %s", pos.Borrowed)
	}
	if pos.Deposited.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("unexpected remaining collateral: %s", pos.Deposited)
	}
	if bal := tl.collateral.balance(bob); bal.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("collateral not paid to liquidator: %s", bal)
	}
	if bal := tl.debt.balance(bob); bal.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("debt asset not burned from liquidator: %s", bal)
	}
}

func TestLiquidatePartialCapsRepayAndSeizure(t *testing.T) {
	tl := newTestLedger(liquidationParams(LiquidationPartial))
	alice := makeAddress(0x01)
	bob := makeAddress(0x02)
	seedUnsafePosition(tl, alice)
	tl.debt.setBalance(bob, 500)

	// Repay is capped at the 118 outstanding; seizure at the 100 collateral.
	repaid, seized, err := tl.engine.Liquidate(bob, alice, big.NewInt(400))
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if repaid.Cmp(big.NewInt(118)) != 0 {
		t.Fatalf("unexpected repaid: %s", repaid)
	}
	if seized.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected seized: %s", seized)
	}

	pos := tl.state.positions[tl.state.key(alice)]
	if pos.Borrowed.Sign() != 0 || pos.Deposited.Sign() != 0 {
		t.Fatalf("position not closed: deposited %s borrowed %s", pos.Deposited, pos.Borrowed)
	}
}

func TestLiquidatePartialRequiresAmount(t *testing.T) {
	tl := newTestLedger(liquidationParams(LiquidationPartial))
	alice := makeAddress(0x01)
	bob := makeAddress(0x02)
	seedUnsafePosition(tl, alice)

	if _, _, err := tl.engine.Liquidate(bob, alice, nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}
}

func TestLiquidateFullMode(t *testing.T) {
	tl := newTestLedger(liquidationParams(LiquidationFull))
	alice := makeAddress(0x01)
	bob := makeAddress(0x02)
	seedUnsafePosition(tl, alice)
	tl.debt.setBalance(bob, 200)

	// Full mode ignores the passed amount and closes the whole position.
	repaid, seized, err := tl.engine.Liquidate(bob, alice, nil)
	if err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if repaid.Cmp(big.NewInt(118)) != 0 {
		t.Fatalf("unexpected repaid: %s", repaid)
	}
	if seized.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected seized: %s", seized)
	}

	pos := tl.state.positions[tl.state.key(alice)]
	if pos.Borrowed.Sign() != 0 || pos.Deposited.Sign() != 0 {
		t.Fatalf("position not closed: deposited %s borrowed %s", pos.Deposited, pos.Borrowed)
	}
	if tl.state.totals.TotalBorrowed.Sign() != 0 || tl.state.totals.TotalDeposited.Sign() != 0 {
		t.Fatalf("totals not cleared: %+v", tl.state.totals)
	}
	if bal := tl.debt.balance(bob); bal.Cmp(big.NewInt(82)) != 0 {
		t.Fatalf("unexpected liquidator debt balance: %s", bal)
	}
}

func TestLiquidateRemintsWhenPayoutFails(t *testing.T) {
	tl := newTestLedger(liquidationParams(LiquidationPartial))
	alice := makeAddress(0x01)
	bob := makeAddress(0x02)
	seedUnsafePosition(tl, alice)
	tl.debt.setBalance(bob, 200)
	tl.collateral.transferErr = errors.New("payout rejected")

	if _, _, err := tl.engine.Liquidate(bob, alice, big.NewInt(50)); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("got %v, want ErrTransferFailed", err)
	}

	// The burned repayment was minted back and the stored position restored.
	if bal := tl.debt.balance(bob); bal.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("repayment not reminted: %s", bal)
	}
	pos := tl.state.positions[tl.state.key(alice)]
	if pos.Borrowed.Cmp(big.NewInt(118)) != 0 || pos.Deposited.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("position not restored: deposited %s borrowed %s", pos.Deposited, pos.Borrowed)
	}
}

func TestLiquidationThresholdResolvesSubPercent(t *testing.T) {
	// With a threshold between whole percents the cutoff must fall exactly at
	// the basis-point ratio, not at the nearest whole percent below it.
	params := &Params{
		CollateralFactorBps:     9_000,
		LiquidationThresholdBps: 8_450,
		Mode:                    LiquidationPartial,
	}

	// 169 / 200 is exactly 8450 bps: at the threshold, still safe.
	atThreshold := &Position{
		Address:   makeAddress(0x01),
		Deposited: big.NewInt(169),
		Borrowed:  big.NewInt(200),
	}
	if liquidatable(atThreshold, params) {
		t.Fatalf("position at the threshold must not be liquidatable")
	}

	// 168 / 200 is 8400 bps: one step under, unsafe.
	below := &Position{
		Address:   makeAddress(0x02),
		Deposited: big.NewInt(168),
		Borrowed:  big.NewInt(200),
	}
	if !liquidatable(below, params) {
		t.Fatalf("position below the threshold must be liquidatable")
	}
}

func TestLiquidateAvailableWhilePaused(t *testing.T) {
	params := liquidationParams(LiquidationPartial)
	params.Paused = true
	tl := newTestLedger(params)
	alice := makeAddress(0x01)
	bob := makeAddress(0x02)
	seedUnsafePosition(tl, alice)
	tl.debt.setBalance(bob, 200)

	if _, _, err := tl.engine.Liquidate(bob, alice, big.NewInt(50)); err != nil {
		t.Fatalf("liquidate while paused: %v", err)
	}
}
