package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement"
	"github.com/radieske/bet-settlement-engine/internal/settlement/dto"
)

type (
	BetSettler interface {
		SettleBet(ctx context.Context, betID string) (settlement.Result, error)
	}
	MarketSettler interface {
		SettleMarketBets(ctx context.Context, marketID string) (settlement.MarketSummary, error)
	}
	VoidProcessor interface {
		ProcessVoidLeg(ctx context.Context, legID string) error
	}
	Reporter interface {
		GetSettlementReport(ctx context.Context, from, to time.Time) (settlement.SettlementReport, error)
	}
)

// Server expõe a superfície de operação da liquidação: relatório e reexecução manual
type Server struct {
	log     *zap.Logger
	bets    BetSettler
	markets MarketSettler
	voids   VoidProcessor
	report  Reporter
}

func NewServer(log *zap.Logger, b BetSettler, m MarketSettler, v VoidProcessor, r Reporter) *Server {
	return &Server{log: log, bets: b, markets: m, voids: v, report: r}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/reports/settlement", s.getReport)          // ?from=YYYY-MM-DD&to=YYYY-MM-DD
	r.Post("/settlement/bets/{id}", s.settleBet)       // reexecuta settleBet (idempotente)
	r.Post("/settlement/markets/{id}", s.settleMarket) // reexecuta o fan-out do mercado
	r.Post("/settlement/legs/{id}/void", s.voidLeg)    // anula uma perna
	return r
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.DateOnly, r.URL.Query().Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "from must be YYYY-MM-DD"})
		return
	}
	to, err := time.Parse(time.DateOnly, r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "to must be YYYY-MM-DD"})
		return
	}
	if from.After(to) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "from after to"})
		return
	}

	rep, err := s.report.GetSettlementReport(r.Context(), from, to)
	if err != nil {
		s.fail(w, "settlement report", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) settleBet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.bets.SettleBet(r.Context(), id)
	if err != nil {
		s.fail(w, "settle bet", err, zap.String("betId", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) settleMarket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sum, err := s.markets.SettleMarketBets(r.Context(), id)
	if err != nil {
		s.fail(w, "settle market", err, zap.String("marketId", id))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) voidLeg(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.voids.ProcessVoidLeg(r.Context(), id); err != nil {
		s.fail(w, "void leg", err, zap.String("legId", id))
		return
	}
	writeJSON(w, http.StatusOK, dto.VoidLegResponse{LegID: id, Status: "PROCESSED"})
}

// fail mapeia erros de domínio para status HTTP
func (s *Server) fail(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, settlement.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, settlement.ErrInvalidBet):
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	default:
		s.log.Error(op+" failed", append(fields, zap.Error(err))...)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
