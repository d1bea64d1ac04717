package rpc

import (
	"net/http"
)

type updateParamsRequest struct {
	Caller                  string `json:"caller"`
	CollateralFactorBps     uint64 `json:"collateralFactorBps"`
	LiquidationThresholdBps uint64 `json:"liquidationThresholdBps"`
}

type transferAdminRequest struct {
	Caller string `json:"caller"`
	Next   string `json:"next"`
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "pause", func(req callerRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		if err := s.engine.Pause(caller); err != nil {
			return nil, err
		}
		return map[string]bool{"paused": true}, nil
	})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "unpause", func(req callerRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		if err := s.engine.Unpause(caller); err != nil {
			return nil, err
		}
		return map[string]bool{"paused": false}, nil
	})
}

func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "update_params", func(req updateParamsRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		if err := s.engine.UpdateParameters(caller, req.CollateralFactorBps, req.LiquidationThresholdBps); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})
}

func (s *Server) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	mutate(s, w, r, "transfer_admin", func(req transferAdminRequest) (any, error) {
		caller, err := parseAddress(req.Caller)
		if err != nil {
			return nil, badRequest(err)
		}
		next, err := parseAddress(req.Next)
		if err != nil {
			return nil, badRequest(err)
		}
		if err := s.engine.TransferAdmin(caller, next); err != nil {
			return nil, err
		}
		return map[string]string{"admin": next.String()}, nil
	})
}
