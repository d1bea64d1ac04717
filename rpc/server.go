package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendledger/core/events"
	"lendledger/crypto"
	"lendledger/native/lending"
	"lendledger/observability"
)

const requestLimit = 1 << 20 // 1 MiB

// Server exposes the ledger over HTTP. It is a thin adapter: every invariant
// lives in the engine.
//
// The engine expects its operations as a strictly serialized sequence, so the
// server funnels every engine call through a single mutex. The engine's own
// latch still catches genuine reentrancy through the asset boundary.
type Server struct {
	engine  *lending.Engine
	buffer  *events.Buffer
	logger  *slog.Logger
	metrics *observability.LedgerMetrics

	mu sync.Mutex
}

// NewServer wires the HTTP surface to the engine. The buffer, when provided,
// backs the event query endpoint.
func NewServer(engine *lending.Engine, buffer *events.Buffer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		buffer:  buffer,
		logger:  logger,
		metrics: observability.Metrics(),
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/lending", func(lr chi.Router) {
		lr.Post("/deposit", s.handleDeposit)
		lr.Post("/withdraw", s.handleWithdraw)
		lr.Post("/borrow", s.handleBorrow)
		lr.Post("/repay", s.handleRepay)
		lr.Post("/claim", s.handleClaim)
		lr.Post("/liquidate", s.handleLiquidate)
		lr.Get("/positions/{address}", s.handlePosition)
		lr.Get("/health/{address}", s.handleHealth)
		lr.Get("/totals", s.handleTotals)
		lr.Get("/params", s.handleParams)
		lr.Get("/events", s.handleEvents)
	})

	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Post("/pause", s.handlePause)
		ar.Post("/unpause", s.handleUnpause)
		ar.Post("/params", s.handleUpdateParams)
		ar.Post("/transfer", s.handleTransferAdmin)
	})

	return r
}

// --- request/response helpers ---

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	s.writeJSON(w, status, errorBody{Code: code, Message: err.Error()})
}

func (s *Server) decode(r *http.Request, into any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, requestLimit))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

func parseAddress(value string) (crypto.Address, error) {
	if value == "" {
		return crypto.Address{}, errors.New("address required")
	}
	return crypto.DecodeAddress(value)
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer")
	}
	return amount, nil
}

// errorStatus maps engine errors to stable machine-readable codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, lending.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, lending.ErrInvalidParameters):
		return http.StatusBadRequest, "invalid_parameters"
	case errors.Is(err, lending.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, lending.ErrProtocolPaused):
		return http.StatusConflict, "protocol_paused"
	case errors.Is(err, lending.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, lending.ErrInsufficientCollateral):
		return http.StatusConflict, "insufficient_collateral"
	case errors.Is(err, lending.ErrCollateralBreach):
		return http.StatusConflict, "collateral_breach"
	case errors.Is(err, lending.ErrNoOutstandingDebt):
		return http.StatusConflict, "no_outstanding_debt"
	case errors.Is(err, lending.ErrNothingToClaim):
		return http.StatusConflict, "nothing_to_claim"
	case errors.Is(err, lending.ErrPositionHealthy):
		return http.StatusConflict, "position_healthy"
	case errors.Is(err, lending.ErrReentrantCall):
		return http.StatusConflict, "reentrant_call"
	case errors.Is(err, lending.ErrTransferFailed):
		return http.StatusBadGateway, "transfer_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
