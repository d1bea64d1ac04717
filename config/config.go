package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"lendledger/crypto"
	"lendledger/native/lending"
)

// Config captures the runtime configuration of the ledger daemon.
type Config struct {
	ListenAddress string       `toml:"ListenAddress"`
	DataDir       string       `toml:"DataDir"`
	Environment   string       `toml:"Environment"`
	Ledger        LedgerConfig `toml:"ledger"`
}

// LedgerConfig holds the genesis risk parameters and asset wiring. The
// parameters only seed state on first start; afterwards the persisted,
// admin-governed values win.
type LedgerConfig struct {
	CollateralSymbol        string `toml:"CollateralSymbol"`
	DebtSymbol              string `toml:"DebtSymbol"`
	AdminAddress            string `toml:"AdminAddress"`
	CollateralFactorBps     uint64 `toml:"CollateralFactorBps"`
	LiquidationThresholdBps uint64 `toml:"LiquidationThresholdBps"`
	BaseInterestRateBps     uint64 `toml:"BaseInterestRateBps"`
	ReserveShareBps         uint64 `toml:"ReserveShareBps"`
	LiquidationMode         string `toml:"LiquidationMode"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, including the genesis risk parameters.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Ledger.CollateralSymbol) == "" {
		return fmt.Errorf("config: collateral symbol must not be empty")
	}
	if strings.TrimSpace(c.Ledger.DebtSymbol) == "" {
		return fmt.Errorf("config: debt symbol must not be empty")
	}
	if c.Ledger.CollateralSymbol == c.Ledger.DebtSymbol {
		return fmt.Errorf("config: collateral and debt symbols must differ")
	}
	if strings.TrimSpace(c.Ledger.AdminAddress) != "" {
		if _, err := crypto.DecodeAddress(c.Ledger.AdminAddress); err != nil {
			return fmt.Errorf("config: invalid admin address: %w", err)
		}
	}
	if _, err := c.LedgerParams(); err != nil {
		return err
	}
	return nil
}

// LedgerParams converts the genesis section into engine parameters.
func (c *Config) LedgerParams() (*lending.Params, error) {
	params := &lending.Params{
		CollateralFactorBps:     c.Ledger.CollateralFactorBps,
		LiquidationThresholdBps: c.Ledger.LiquidationThresholdBps,
		BaseInterestRateBps:     c.Ledger.BaseInterestRateBps,
		ReserveShareBps:         c.Ledger.ReserveShareBps,
		Mode:                    lending.LiquidationMode(c.Ledger.LiquidationMode),
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return params, nil
}

// AdminAddress decodes the configured admin identity, or the zero address when
// unset.
func (c *Config) AdminAddress() (crypto.Address, error) {
	if strings.TrimSpace(c.Ledger.AdminAddress) == "" {
		return crypto.Address{}, nil
	}
	return crypto.DecodeAddress(c.Ledger.AdminAddress)
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8571"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
	defaults := lending.DefaultParams()
	if c.Ledger.CollateralSymbol == "" {
		c.Ledger.CollateralSymbol = "COL"
	}
	if c.Ledger.DebtSymbol == "" {
		c.Ledger.DebtSymbol = "DBT"
	}
	if c.Ledger.CollateralFactorBps == 0 {
		c.Ledger.CollateralFactorBps = defaults.CollateralFactorBps
	}
	if c.Ledger.LiquidationThresholdBps == 0 {
		c.Ledger.LiquidationThresholdBps = defaults.LiquidationThresholdBps
	}
	if c.Ledger.BaseInterestRateBps == 0 {
		c.Ledger.BaseInterestRateBps = defaults.BaseInterestRateBps
	}
	if c.Ledger.LiquidationMode == "" {
		c.Ledger.LiquidationMode = string(defaults.Mode)
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
