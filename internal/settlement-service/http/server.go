package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
	"github.com/radieske/p2p-bet-platform-poc/internal/settlement-service/dto"
	"github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

// Publisher define o evento emitido após cada liquidação.
type Publisher interface {
	PublishMatchSettled(context.Context, events.MatchSettled) error
}

var (
	matchesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_matches_settled_total",
		Help: "Total de matches liquidados, por resultado",
	}, []string{"result"})
	platformFeeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_platform_fee_total",
		Help: "Soma das taxas de plataforma retidas (valor monetário)",
	})
)

// Server expõe a API administrativa de liquidação.
type Server struct {
	log   *zap.Logger
	store *ledger.Store
	publ  Publisher
}

func NewServer(log *zap.Logger, store *ledger.Store, publ Publisher) *Server {
	return &Server{log: log, store: store, publ: publ}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/settlements", s.settle)
	r.Get("/v1/matches/active", s.listActive)
	return r
}

// settle liquida um match avulso ou o lote inteiro de um evento.
// O lote é tudo-ou-nada: qualquer falha deixa todos os matches ACTIVE.
func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if (req.EventID == "") == (req.MatchID == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exactly one of eventId or matchId required"})
		return
	}
	actual := ledger.Selection(req.ActualResult)

	var settled []*ledger.BetMatch
	var err error
	if req.MatchID != "" {
		var m *ledger.BetMatch
		m, err = s.store.SettleMatch(r.Context(), req.MatchID, actual)
		if m != nil {
			settled = []*ledger.BetMatch{m}
		}
	} else {
		settled, err = s.store.SettleByEvent(r.Context(), req.EventID, actual)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]dto.SettledMatchView, 0, len(settled))
	for _, m := range settled {
		matchesSettled.WithLabelValues(string(m.Result)).Inc()
		fee, _ := m.PlatformFeeTotal.Float64()
		platformFeeTotal.Add(fee)
		pool := m.CreatorAmount.Add(m.AcceptorAmount)

		out = append(out, dto.SettledMatchView{
			MatchID:     m.ID,
			OfferID:     m.OfferID,
			Result:      string(m.Result),
			WinnerID:    m.WinnerID,
			Pool:        pool.String(),
			PlatformFee: m.PlatformFeeTotal.String(),
			SettledAt:   m.SettledAt,
		})

		ev := events.MatchSettled{
			MatchID:     m.ID,
			OfferID:     m.OfferID,
			EventID:     req.EventID,
			Result:      string(m.Result),
			WinnerID:    m.WinnerID,
			Payout:      pool.Sub(m.PlatformFeeTotal).String(),
			PlatformFee: m.PlatformFeeTotal.String(),
		}
		if m.SettledAt != nil {
			ev.SettledAt = *m.SettledAt
		}
		if m.Result == ledger.ResultPush {
			ev.Payout = ""
		}
		if err := s.publ.PublishMatchSettled(r.Context(), ev); err != nil {
			// liquidação já foi commitada; o evento é best-effort
			s.log.Warn("publish match_settled failed", zap.String("match_id", m.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, dto.SettleResponse{EventID: req.EventID, Settled: out})
}

// listActive retorna os matches ainda ACTIVE, mais recente primeiro.
func (s *Server) listActive(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.ListActiveMatches(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.ActiveMatchView, 0, len(matches))
	for _, am := range matches {
		m := am.Match
		out = append(out, dto.ActiveMatchView{
			MatchID:          m.ID,
			OfferID:          m.OfferID,
			EventID:          am.EventID,
			CreatorID:        m.CreatorID,
			AcceptorID:       m.AcceptorID,
			CreatorSelection: string(am.CreatorSelection),
			AcceptorView:     string(ledger.ResolveAcceptorSelection(am.CreatorSelection, m.AcceptorSelection)),
			Pool:             m.CreatorAmount.Add(m.AcceptorAmount).String(),
			CreatedAt:        m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, dto.ActiveMatchesResponse{Matches: out})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch ledger.KindOf(err) {
	case ledger.KindValidation, ledger.KindInsufficientFunds:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case ledger.KindNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case ledger.KindStateConflict:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("storage failure", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporary storage failure, retry"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
