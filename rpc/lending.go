package rpc

import (
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lendledger/core/types"
	"lendledger/native/lending"
)

type amountRequest struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type callerRequest struct {
	Caller string `json:"caller"`
}

type liquidateRequest struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
	Amount string `json:"amount,omitempty"`
}

type positionResponse struct {
	Address      string `json:"address"`
	Deposited    string `json:"deposited"`
	Borrowed     string `json:"borrowed"`
	InterestOwed string `json:"interestOwed"`
	LastAccrual  uint64 `json:"lastAccrual"`
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", lending.ErrInvalidParameters, err)
}

// parseOptionalAmount tolerates an empty amount; the engine decides whether
// the operation requires one (full liquidations ignore it).
func parseOptionalAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, nil
	}
	return parseAmount(value)
}

// mutate decodes the request, runs the operation under the engine lock and
// records metrics.
func mutate[T any](s *Server, w http.ResponseWriter, r *http.Request, op string, fn func(T) (any, error)) {
	var req T
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	start := time.Now()
	s.mu.Lock()
	result, err := fn(req)
	s.mu.Unlock()
	s.metrics.Observe(op, start, err)
	if err != nil {
		s.logger.Warn("ledger operation failed", "op", op, "error", err)
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "deposit", func(req amountRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, badRequest(err)
		}
		if err := s.engine.Deposit(caller, amount); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "withdraw", func(req amountRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, badRequest(err)
		}
		if err := s.engine.Withdraw(caller, amount); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "borrow", func(req amountRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, badRequest(err)
		}
		if err := s.engine.Borrow(caller, amount); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})
}

func (s *Server) handleRepay(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "repay", func(req amountRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return nil, badRequest(err)
		}
		repaid, err := s.engine.Repay(caller, amount)
		if err != nil {
			return nil, err
		}
		return map[string]string{"repaid": repaid.String()}, nil
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "claim", func(req callerRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		claimed, err := s.engine.ClaimInterest(caller)
		if err != nil {
			return nil, err
		}
		return map[string]string{"claimed": claimed.String()}, nil
	})
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "liquidate", func(req liquidateRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		target, err := parseAddress(req.Target)
		if err != nil {
			return nil, badRequest(err)
		}
		repayAmount, err := parseOptionalAmount(req.Amount)
		if err != nil {
			return nil, badRequest(err)
		}
		repaid, seized, err := s.engine.Liquidate(caller, target, repayAmount)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"repaid": repaid.String(),
			"seized": seized.String(),
		}, nil
	})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	s.mu.Lock()
	pos, err := s.engine.Position(addr)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, positionResponse{
		Address:      pos.Address.String(),
		Deposited:    pos.Deposited.String(),
		Borrowed:     pos.Borrowed.String(),
		InterestOwed: pos.InterestOwed.String(),
		LastAccrual:  pos.LastAccrual,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, badRequest(err))
		return
	}
	s.mu.Lock()
	health, err := s.engine.HealthFactor(addr)
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"healthFactor": health.String()})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	totals, err := s.engine.Totals()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"totalDeposited":  totals.TotalDeposited.String(),
		"totalBorrowed":   totals.TotalBorrowed.String(),
		"interestReserve": totals.InterestReserve.String(),
	})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	params, err := s.engine.Parameters()
	s.mu.Unlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"collateralFactorBps":     params.CollateralFactorBps,
		"liquidationThresholdBps": params.LiquidationThresholdBps,
		"baseInterestRateBps":     params.BaseInterestRateBps,
		"reserveShareBps":         params.ReserveShareBps,
		"liquidationMode":         string(params.Mode),
		"paused":                  params.Paused,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	entries := []*types.Event{}
	if s.buffer != nil {
		entries = s.buffer.Events()
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": entries})
}
