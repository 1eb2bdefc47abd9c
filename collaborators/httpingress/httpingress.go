// Package httpingress is a reference Signal Ingress collaborator: an
// HTTP surface that decodes a posted trading signal, mints a stable
// signalId when the caller doesn't supply one, and hands it to the
// orchestrator's SubmitSignal. HTTP request parsing is explicitly out
// of the core; this package is never imported by the core, only by
// cmd/orchestrator.
package httpingress

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	safegmx "github.com/purvik6062/safegmx"
)

// Submitter is the narrow orchestrator surface the HTTP handler drives.
type Submitter interface {
	SubmitSignal(signal safegmx.Signal) (tradeId string, err error)
}

// Server wraps a chi.Router exposing POST /signals.
type Server struct {
	router *chi.Mux
	orch   Submitter
	log    *logrus.Logger
}

// New wires a chi router over orch. log may be nil (defaults to
// logrus.StandardLogger()).
func New(orch Submitter, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{orch: orch, log: log, router: chi.NewRouter()}
	s.router.Post("/signals", s.handleSubmit)
	s.router.Get("/healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type signalRequest struct {
	SignalId      string  `json:"signalId"`
	Side          string  `json:"side"`
	Symbol        string  `json:"symbol"`
	TP1           float64 `json:"tp1"`
	TP2           float64 `json:"tp2"`
	StopLoss      float64 `json:"stopLoss"`
	EntryPrice    float64 `json:"entryPrice"`
	DeadlineUnix  int64   `json:"deadlineUnix"`
	CallerId      string  `json:"callerId"`
	WalletAddress string  `json:"walletAddress"`
}

type acceptedResponse struct {
	SignalId string `json:"signalId"`
	TradeId  string `json:"tradeId"`
}

type rejectedResponse struct {
	SignalId       string `json:"signalId"`
	Code           string `json:"code"`
	Recommendation string `json:"recommendation"`
}

// handleSubmit decodes a signalRequest, mints a signalId if the caller
// left it blank, and forwards to the orchestrator. Re-delivery of the same signalId is the
// orchestrator's idempotence guarantee, not this handler's.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rejectedResponse{Code: string(safegmx.CodeInvalidSignalFormat), Recommendation: "malformed request body"})
		return
	}

	if req.SignalId == "" {
		req.SignalId = mintSignalId()
	}

	signal := safegmx.Signal{
		SignalId:      req.SignalId,
		Side:          safegmx.Side(req.Side),
		Symbol:        req.Symbol,
		TP1:           big.NewFloat(req.TP1),
		TP2:           big.NewFloat(req.TP2),
		StopLoss:      big.NewFloat(req.StopLoss),
		EntryPrice:    big.NewFloat(req.EntryPrice),
		Deadline:      time.Unix(req.DeadlineUnix, 0),
		CallerId:      req.CallerId,
		WalletAddress: req.WalletAddress,
	}

	tradeId, err := s.orch.SubmitSignal(signal)
	if err != nil {
		te, ok := err.(*safegmx.TradeError)
		if !ok {
			te = safegmx.NewError(safegmx.CodeUnknownError, safegmx.KindSystem, "internal error", safegmx.Context{SignalId: signal.SignalId})
		}
		s.log.WithFields(logrus.Fields{"signalId": signal.SignalId, "code": te.Code}).Warn("signal rejected")
		writeJSON(w, http.StatusUnprocessableEntity, rejectedResponse{
			SignalId: signal.SignalId, Code: string(te.Code), Recommendation: te.Recommendation,
		})
		return
	}

	writeJSON(w, http.StatusAccepted, acceptedResponse{SignalId: signal.SignalId, TradeId: tradeId})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// mintSignalId derives an opaque id for callers that don't supply a
// stable one of their own; re-delivery from such a caller will not be
// deduplicated, which is an ingress-adapter limitation, not the core's.
func mintSignalId() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return "sig-" + hex.EncodeToString(b[:])
}
