package state

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"lendledger/crypto"
	"lendledger/native/lending"
	"lendledger/storage"
)

// Manager persists the ledger's accounting records with exact numeric
// fidelity. Records are RLP encoded under keccak-hashed, prefixed keys so the
// layout is stable across restarts.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the provided key-value store.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	lendingPositionPrefix = []byte("lending/position/")
	lendingTotalsKey      = ethcrypto.Keccak256([]byte("lending/totals"))
	lendingParamsKey      = ethcrypto.Keccak256([]byte("lending/params"))
	lendingAdminKey       = ethcrypto.Keccak256([]byte("lending/admin"))
	tokenBalancePrefix    = []byte("token/balance/")
	tokenSupplyPrefix     = []byte("token/supply/")
)

func positionKey(addr crypto.Address) []byte {
	buf := make([]byte, len(lendingPositionPrefix)+len(addr.Bytes()))
	copy(buf, lendingPositionPrefix)
	copy(buf[len(lendingPositionPrefix):], addr.Bytes())
	return ethcrypto.Keccak256(buf)
}

func tokenBalanceKey(symbol string, addr crypto.Address) []byte {
	buf := make([]byte, 0, len(tokenBalancePrefix)+len(symbol)+1+len(addr.Bytes()))
	buf = append(buf, tokenBalancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	buf = append(buf, addr.Bytes()...)
	return ethcrypto.Keccak256(buf)
}

func tokenSupplyKey(symbol string) []byte {
	buf := make([]byte, 0, len(tokenSupplyPrefix)+len(symbol))
	buf = append(buf, tokenSupplyPrefix...)
	buf = append(buf, symbol...)
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// --- lending records ---

type storedPosition struct {
	Address      []byte
	Deposited    *big.Int
	Borrowed     *big.Int
	InterestOwed *big.Int
	LastAccrual  uint64
}

type storedTotals struct {
	TotalDeposited  *big.Int
	TotalBorrowed   *big.Int
	InterestReserve *big.Int
}

type storedParams struct {
	CollateralFactorBps     uint64
	LiquidationThresholdBps uint64
	BaseInterestRateBps     uint64
	ReserveShareBps         uint64
	Mode                    string
	Paused                  bool
}

// LendingPosition loads the stored position for the address, or nil when the
// account has never interacted.
func (m *Manager) LendingPosition(addr crypto.Address) (*lending.Position, error) {
	data, ok, err := m.get(positionKey(addr))
	if err != nil || !ok {
		return nil, err
	}
	stored := new(storedPosition)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, err
	}
	address, err := crypto.NewAddress(crypto.LendPrefix, stored.Address)
	if err != nil {
		return nil, err
	}
	return &lending.Position{
		Address:      address,
		Deposited:    stored.Deposited,
		Borrowed:     stored.Borrowed,
		InterestOwed: stored.InterestOwed,
		LastAccrual:  stored.LastAccrual,
	}, nil
}

// PutLendingPosition writes the position record.
func (m *Manager) PutLendingPosition(pos *lending.Position) error {
	if pos == nil {
		return errors.New("state: nil position")
	}
	encoded, err := rlp.EncodeToBytes(&storedPosition{
		Address:      pos.Address.Bytes(),
		Deposited:    nonNil(pos.Deposited),
		Borrowed:     nonNil(pos.Borrowed),
		InterestOwed: nonNil(pos.InterestOwed),
		LastAccrual:  pos.LastAccrual,
	})
	if err != nil {
		return err
	}
	return m.db.Put(positionKey(pos.Address), encoded)
}

// LendingTotals loads the protocol totals singleton, or nil before genesis.
func (m *Manager) LendingTotals() (*lending.ProtocolTotals, error) {
	data, ok, err := m.get(lendingTotalsKey)
	if err != nil || !ok {
		return nil, err
	}
	stored := new(storedTotals)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, err
	}
	return &lending.ProtocolTotals{
		TotalDeposited:  stored.TotalDeposited,
		TotalBorrowed:   stored.TotalBorrowed,
		InterestReserve: stored.InterestReserve,
	}, nil
}

// PutLendingTotals writes the protocol totals singleton.
func (m *Manager) PutLendingTotals(totals *lending.ProtocolTotals) error {
	if totals == nil {
		return errors.New("state: nil totals")
	}
	encoded, err := rlp.EncodeToBytes(&storedTotals{
		TotalDeposited:  nonNil(totals.TotalDeposited),
		TotalBorrowed:   nonNil(totals.TotalBorrowed),
		InterestReserve: nonNil(totals.InterestReserve),
	})
	if err != nil {
		return err
	}
	return m.db.Put(lendingTotalsKey, encoded)
}

// LendingParams loads the risk parameter singleton, or nil before genesis.
func (m *Manager) LendingParams() (*lending.Params, error) {
	data, ok, err := m.get(lendingParamsKey)
	if err != nil || !ok {
		return nil, err
	}
	stored := new(storedParams)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, err
	}
	return &lending.Params{
		CollateralFactorBps:     stored.CollateralFactorBps,
		LiquidationThresholdBps: stored.LiquidationThresholdBps,
		BaseInterestRateBps:     stored.BaseInterestRateBps,
		ReserveShareBps:         stored.ReserveShareBps,
		Mode:                    lending.LiquidationMode(stored.Mode),
		Paused:                  stored.Paused,
	}, nil
}

// PutLendingParams writes the risk parameter singleton.
func (m *Manager) PutLendingParams(params *lending.Params) error {
	if params == nil {
		return errors.New("state: nil params")
	}
	encoded, err := rlp.EncodeToBytes(&storedParams{
		CollateralFactorBps:     params.CollateralFactorBps,
		LiquidationThresholdBps: params.LiquidationThresholdBps,
		BaseInterestRateBps:     params.BaseInterestRateBps,
		ReserveShareBps:         params.ReserveShareBps,
		Mode:                    string(params.Mode),
		Paused:                  params.Paused,
	})
	if err != nil {
		return err
	}
	return m.db.Put(lendingParamsKey, encoded)
}

// LendingAdmin loads the stored admin identity. The zero Address means the
// capability was never initialised.
func (m *Manager) LendingAdmin() (crypto.Address, error) {
	data, ok, err := m.get(lendingAdminKey)
	if err != nil || !ok {
		return crypto.Address{}, err
	}
	var raw []byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return crypto.Address{}, err
	}
	return crypto.NewAddress(crypto.LendPrefix, raw)
}

// PutLendingAdmin writes the admin identity singleton.
func (m *Manager) PutLendingAdmin(addr crypto.Address) error {
	encoded, err := rlp.EncodeToBytes(addr.Bytes())
	if err != nil {
		return err
	}
	return m.db.Put(lendingAdminKey, encoded)
}

// --- token balances ---

// TokenBalance returns the balance of the address for the symbol, zero when
// unset.
func (m *Manager) TokenBalance(symbol string, addr crypto.Address) (*big.Int, error) {
	data, ok, err := m.get(tokenBalanceKey(symbol, addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(data, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// SetTokenBalance writes the balance of the address for the symbol.
func (m *Manager) SetTokenBalance(symbol string, addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("state: balance must be non-negative")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(tokenBalanceKey(symbol, addr), encoded)
}

// TokenSupply returns the circulating supply for the symbol, zero when unset.
func (m *Manager) TokenSupply(symbol string) (*big.Int, error) {
	data, ok, err := m.get(tokenSupplyKey(symbol))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	supply := new(big.Int)
	if err := rlp.DecodeBytes(data, supply); err != nil {
		return nil, err
	}
	return supply, nil
}

// SetTokenSupply writes the circulating supply for the symbol.
func (m *Manager) SetTokenSupply(symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("state: supply must be non-negative")
	}
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return m.db.Put(tokenSupplyKey(symbol), encoded)
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
