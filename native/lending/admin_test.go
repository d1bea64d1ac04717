package lending

import (
	"errors"
	"math/big"
	"testing"
)

func TestAdminGateRejectsNonAdmin(t *testing.T) {
	tl := newTestLedger(DefaultParams())
	admin := makeAddress(0x0a)
	mallory := makeAddress(0x0b)
	tl.state.admin = admin

	if err := tl.engine.Pause(mallory); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("pause: got %v, want ErrUnauthorized", err)
	}
	if err := tl.engine.UpdateParameters(mallory, 8_000, 7_000); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("update: got %v, want ErrUnauthorized", err)
	}
	if err := tl.engine.TransferAdmin(mallory, mallory); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("transfer: got %v, want ErrUnauthorized", err)
	}
}

func TestAdminGateRejectsWhenUnset(t *testing.T) {
	tl := newTestLedger(DefaultParams())
	anyone := makeAddress(0x0b)

	// A zero stored admin means the capability was never initialised; nobody
	// passes the gate.
	if err := tl.engine.Pause(anyone); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestPauseRoundTrip(t *testing.T) {
	tl := newTestLedger(DefaultParams())
	admin := makeAddress(0x0a)
	alice := makeAddress(0x01)
	tl.state.admin = admin
	tl.collateral.setBalance(alice, 100)

	if err := tl.engine.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !tl.state.params.Paused {
		t.Fatalf("pause flag not persisted")
	}
	if err := tl.engine.Deposit(alice, big.NewInt(10)); !errors.Is(err, ErrProtocolPaused) {
		t.Fatalf("deposit while paused: got %v", err)
	}

	if err := tl.engine.Unpause(admin); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := tl.engine.Deposit(alice, big.NewInt(10)); err != nil {
		t.Fatalf("deposit after unpause: %v", err)
	}
}

func TestUpdateParametersValidates(t *testing.T) {
	tl := newTestLedger(DefaultParams())
	admin := makeAddress(0x0a)
	tl.state.admin = admin

	// Threshold at or above the factor violates the risk invariant and must be
	// rejected, not clamped.
	if err := tl.engine.UpdateParameters(admin, 7_000, 7_000); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("equal pair: got %v, want ErrInvalidParameters", err)
	}
	if err := tl.engine.UpdateParameters(admin, 12_000, 7_000); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("factor above 100%%: got %v, want ErrInvalidParameters", err)
	}
	if tl.state.params.CollateralFactorBps != DefaultParams().CollateralFactorBps {
		t.Fatalf("rejected update persisted: %d", tl.state.params.CollateralFactorBps)
	}

	if err := tl.engine.UpdateParameters(admin, 8_000, 7_000); err != nil {
		t.Fatalf("valid update: %v", err)
	}
	if tl.state.params.CollateralFactorBps != 8_000 || tl.state.params.LiquidationThresholdBps != 7_000 {
		t.Fatalf("update not persisted: %+v", tl.state.params)
	}
}

func TestUpdateParametersLeavesPositionsUntouched(t *testing.T) {
	tl := newTestLedger(DefaultParams())
	admin := makeAddress(0x0a)
	alice := makeAddress(0x01)
	tl.state.admin = admin
	tl.collateral.setBalance(alice, 1_000)

	if err := tl.engine.Deposit(alice, big.NewInt(1_000)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := tl.engine.Borrow(alice, big.NewInt(700)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// Tightening the factor below the outstanding loan leaves the position
	// intact; the new limit only gates future borrows and withdrawals.
	if err := tl.engine.UpdateParameters(admin, 5_000, 4_000); err != nil {
		t.Fatalf("update: %v", err)
	}
	pos := tl.state.positions[tl.state.key(alice)]
	if pos.Borrowed.Cmp(big.NewInt(700)) != 0 {
		t.Fatalf("existing loan mutated: %s", pos.Borrowed)
	}
	if err := tl.engine.Borrow(alice, big.NewInt(1)); !errors.Is(err, ErrInsufficientCollateral) {
		t.Fatalf("borrow under tightened factor: got %v", err)
	}
}

func TestTransferAdmin(t *testing.T) {
	tl := newTestLedger(DefaultParams())
	admin := makeAddress(0x0a)
	next := makeAddress(0x0b)
	tl.state.admin = admin

	if err := tl.engine.TransferAdmin(admin, makeAddress(0x00)); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("zero next: got %v, want ErrInvalidParameters", err)
	}
	if err := tl.engine.TransferAdmin(admin, next); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !tl.state.admin.Equal(next) {
		t.Fatalf("admin not handed over")
	}
	if err := tl.engine.Pause(admin); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old admin retained access: %v", err)
	}
	if err := tl.engine.Pause(next); err != nil {
		t.Fatalf("new admin rejected: %v", err)
	}
}
