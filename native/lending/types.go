package lending

import (
	"math/big"

	"lendledger/crypto"
)

// Position maintains the lending balances for an individual participant. A
// position springs into existence as all-zero on first touch and is never
// deleted.
type Position struct {
	// Address is the unique account identifier within the ledger.
	Address crypto.Address
	// Deposited records the collateral units locked by the account.
	Deposited *big.Int
	// Borrowed stores the outstanding debt units, including accrued interest.
	Borrowed *big.Int
	// InterestOwed holds reserve yield credited to the depositor but not yet
	// claimed, in debt units.
	InterestOwed *big.Int
	// LastAccrual records the ledger timestamp of the last accrual touch.
	LastAccrual uint64
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{Address: p.Address, LastAccrual: p.LastAccrual}
	if p.Deposited != nil {
		clone.Deposited = new(big.Int).Set(p.Deposited)
	}
	if p.Borrowed != nil {
		clone.Borrowed = new(big.Int).Set(p.Borrowed)
	}
	if p.InterestOwed != nil {
		clone.InterestOwed = new(big.Int).Set(p.InterestOwed)
	}
	return clone
}

func (p *Position) ensureDefaults() {
	if p.Deposited == nil {
		p.Deposited = big.NewInt(0)
	}
	if p.Borrowed == nil {
		p.Borrowed = big.NewInt(0)
	}
	if p.InterestOwed == nil {
		p.InterestOwed = big.NewInt(0)
	}
}

// ProtocolTotals captures the ledger-wide accounting state.
type ProtocolTotals struct {
	// TotalDeposited is the aggregate collateral held across all positions.
	TotalDeposited *big.Int
	// TotalBorrowed tracks the outstanding debt across all positions.
	TotalBorrowed *big.Int
	// InterestReserve is the pool of collected interest awaiting pro-rata
	// distribution to depositors. Truncation dust stays here.
	InterestReserve *big.Int
}

// Clone returns a deep copy of the totals.
func (t *ProtocolTotals) Clone() *ProtocolTotals {
	if t == nil {
		return nil
	}
	clone := &ProtocolTotals{}
	if t.TotalDeposited != nil {
		clone.TotalDeposited = new(big.Int).Set(t.TotalDeposited)
	}
	if t.TotalBorrowed != nil {
		clone.TotalBorrowed = new(big.Int).Set(t.TotalBorrowed)
	}
	if t.InterestReserve != nil {
		clone.InterestReserve = new(big.Int).Set(t.InterestReserve)
	}
	return clone
}

func (t *ProtocolTotals) ensureDefaults() {
	if t.TotalDeposited == nil {
		t.TotalDeposited = big.NewInt(0)
	}
	if t.TotalBorrowed == nil {
		t.TotalBorrowed = big.NewInt(0)
	}
	if t.InterestReserve == nil {
		t.InterestReserve = big.NewInt(0)
	}
}
