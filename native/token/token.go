package token

import (
	"errors"
	"math/big"

	"lendledger/crypto"
)

var (
	// ErrInvalidAmount rejects nil, zero or negative transfer amounts.
	ErrInvalidAmount = errors.New("token: amount must be positive")
	// ErrInsufficientBalance rejects transfers and burns exceeding the balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
)

// Token is the boundary to a fungible asset. The lending engine treats every
// call through this interface as an untrusted external call: it may fail, and
// it may reenter the ledger before returning.
type Token interface {
	BalanceOf(addr crypto.Address) (*big.Int, error)
	Transfer(from, to crypto.Address, amount *big.Int) error
	TransferFrom(from, to crypto.Address, amount *big.Int) error
	// Mint and BurnFrom exist for IOU-style debt assets whose supply expands
	// and contracts with the loan book.
	Mint(to crypto.Address, amount *big.Int) error
	BurnFrom(from crypto.Address, amount *big.Int) error
}

type balanceState interface {
	TokenBalance(symbol string, addr crypto.Address) (*big.Int, error)
	SetTokenBalance(symbol string, addr crypto.Address, amount *big.Int) error
	TokenSupply(symbol string) (*big.Int, error)
	SetTokenSupply(symbol string, amount *big.Int) error
}

// Ledger is a state-backed fungible asset keyed by symbol. Balances are exact
// integers persisted through the state manager.
type Ledger struct {
	state  balanceState
	symbol string
}

// NewLedger constructs a token ledger for the given symbol over the provided
// balance store.
func NewLedger(state balanceState, symbol string) *Ledger {
	return &Ledger{state: state, symbol: symbol}
}

// Symbol returns the asset symbol the ledger accounts for.
func (l *Ledger) Symbol() string { return l.symbol }

// BalanceOf returns the current balance of the address.
func (l *Ledger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	return l.state.TokenBalance(l.symbol, addr)
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to crypto.Address, amount *big.Int) error {
	return l.move(from, to, amount)
}

// TransferFrom moves amount on behalf of the holder. In-process callers are
// pre-authorized at wiring time, so the semantics match Transfer.
func (l *Ledger) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	return l.move(from, to, amount)
}

// Mint credits newly issued units to the recipient and grows the supply.
func (l *Ledger) Mint(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.state.TokenBalance(l.symbol, to)
	if err != nil {
		return err
	}
	supply, err := l.state.TokenSupply(l.symbol)
	if err != nil {
		return err
	}
	if err := l.state.SetTokenBalance(l.symbol, to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	return l.state.SetTokenSupply(l.symbol, new(big.Int).Add(supply, amount))
}

// BurnFrom destroys units held by the address and shrinks the supply.
func (l *Ledger) BurnFrom(from crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.state.TokenBalance(l.symbol, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.state.TokenSupply(l.symbol)
	if err != nil {
		return err
	}
	if supply.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := l.state.SetTokenBalance(l.symbol, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	return l.state.SetTokenSupply(l.symbol, new(big.Int).Sub(supply, amount))
}

func (l *Ledger) move(from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromBalance, err := l.state.TokenBalance(l.symbol, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from.Equal(to) {
		return nil
	}
	toBalance, err := l.state.TokenBalance(l.symbol, to)
	if err != nil {
		return err
	}
	if err := l.state.SetTokenBalance(l.symbol, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.SetTokenBalance(l.symbol, to, new(big.Int).Add(toBalance, amount))
}
