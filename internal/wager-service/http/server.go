package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog"
	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
	"github.com/radieske/p2p-bet-platform-poc/internal/wager-service/dto"
	"github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

// Publisher define os eventos de ciclo de vida publicados pelo serviço.
type Publisher interface {
	PublishOfferCreated(context.Context, events.OfferCreated) error
	PublishMatchCreated(context.Context, events.MatchCreated) error
}

var offersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wager_offers_created_total",
	Help: "Total de ofertas de aposta criadas, por modo",
}, []string{"mode"})

// Server expõe a API HTTP de apostas, desafios e carteira.
type Server struct {
	log     *zap.Logger
	store   *ledger.Store
	catalog *eventcatalog.Catalog
	publ    Publisher
}

func NewServer(log *zap.Logger, store *ledger.Store, catalog *eventcatalog.Catalog, publ Publisher) *Server {
	return &Server{log: log, store: store, catalog: catalog, publ: publ}
}

// Router retorna o roteador HTTP do serviço.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/bets", s.placeBet)                           // cria oferta atrelada a evento
	r.Get("/v1/bets", s.listBets)                            // apostas do usuário (enviadas + recebidas)
	r.Post("/v1/challenges", s.createChallenge)              // desafio direto genérico
	r.Get("/v1/challenges", s.listChallenges)                // desafios abertos endereçados ao código
	r.Patch("/v1/challenges/{id}", s.challengeAction)        // accept | reject
	r.Get("/v1/wallet", s.getWallet)                         // saldo e moeda
	r.Post("/v1/wallet/deposit", s.deposit)                  // crédito de saldo
	r.Get("/v1/wallet/transactions", s.listTransactions)     // histórico do razão
	return r
}

// placeBet valida o payload, confere o evento no catálogo e cria a oferta
// com bloqueio de fundos.
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if !req.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive"})
		return
	}
	if req.Mode == string(ledger.ModeDirect) && req.OpponentCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing opponent code"})
		return
	}

	if _, err := s.catalog.GetEvent(r.Context(), req.EventID); err != nil {
		s.writeError(w, err)
		return
	}

	offer, balance, err := s.store.PlaceOffer(r.Context(), ledger.PlaceOfferParams{
		CreatorID:      req.UserID,
		EventID:        req.EventID,
		Selection:      ledger.Selection(req.Selection),
		Amount:         req.Amount,
		Mode:           ledger.OfferMode(req.Mode),
		TargetUserCode: req.OpponentCode,
		Message:        req.Message,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	offersCreated.WithLabelValues(string(offer.Mode)).Inc()

	_ = s.publ.PublishOfferCreated(r.Context(), events.OfferCreated{
		OfferID:        offer.ID,
		CreatorID:      offer.CreatorID,
		EventID:        offer.EventID,
		Selection:      string(offer.Selection),
		Amount:         offer.Amount.String(),
		Mode:           string(offer.Mode),
		TargetUserCode: offer.TargetUserCode,
	})

	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{
		OfferID:     offer.ID,
		OfferStatus: string(offer.Status),
		Balance:     balance.String(),
	})
}

// listBets retorna a visão normalizada das apostas do usuário: ofertas
// criadas por ele e matches em que é o aceitante.
func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId required"})
		return
	}

	offers, err := s.store.ListOffersByCreator(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	received, err := s.store.ListMatchesByAcceptor(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	bets := make([]dto.BetView, 0, len(offers)+len(received))
	for _, o := range offers {
		v := dto.BetView{
			ID:        o.ID,
			EventID:   o.EventID,
			Date:      o.CreatedAt.Format("2006-01-02"),
			Selection: string(o.Selection),
			Amount:    o.Amount.String(),
			Mode:      string(o.Mode),
			Opponent:  o.TargetUserCode,
		}
		s.fillEventLabels(r.Context(), &v, o.EventID, false)

		switch o.Status {
		case ledger.OfferOpen:
			v.Status = "pending"
		case ledger.OfferCanceled:
			v.Status = "canceled"
		case ledger.OfferMatched:
			v.Status = "matched"
			if m, err := s.store.GetMatchByOffer(r.Context(), o.ID); err == nil && m.Status == ledger.MatchSettled {
				v.Status = settledStatusFor(m, userID)
			}
		}
		bets = append(bets, v)
	}
	for _, am := range received {
		m := am.Match
		v := dto.BetView{
			ID:        m.OfferID,
			EventID:   am.EventID,
			Date:      m.CreatedAt.Format("2006-01-02"),
			Selection: string(ledger.ResolveAcceptorSelection(am.CreatorSelection, m.AcceptorSelection)),
			Amount:    m.AcceptorAmount.String(),
			Mode:      string(ledger.ModeDirect),
			Status:    "matched",
		}
		s.fillEventLabels(r.Context(), &v, am.EventID, true)
		if m.Status == ledger.MatchSettled {
			v.Status = settledStatusFor(&m, userID)
		}
		bets = append(bets, v)
	}

	writeJSON(w, http.StatusOK, dto.BetsResponse{Bets: bets})
}

// settledStatusFor mapeia um match liquidado para a visão do usuário.
func settledStatusFor(m *ledger.BetMatch, userID string) string {
	if m.Result == ledger.ResultPush {
		return "push"
	}
	if m.WinnerID == userID {
		return "won"
	}
	return "lost"
}

// fillEventLabels preenche liga e times a partir do catálogo; desafios sem
// evento recebem os rótulos genéricos do produto.
func (s *Server) fillEventLabels(ctx context.Context, v *dto.BetView, eventID string, received bool) {
	if eventID == "" {
		v.League = "Reto Directo"
		if received {
			v.HomeTeam, v.AwayTeam = "Tu", "Retador"
		} else {
			v.HomeTeam, v.AwayTeam = "Retador", "Tu"
		}
		return
	}
	if e, err := s.catalog.GetEvent(ctx, eventID); err == nil {
		v.League = e.LeagueName
		v.HomeTeam = e.HomeTeam
		v.AwayTeam = e.AwayTeam
	}
}

// createChallenge cria um desafio direto genérico (sem evento), com bloqueio
// de fundos do criador na criação.
func (s *Server) createChallenge(w http.ResponseWriter, r *http.Request) {
	var req dto.ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if !req.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive"})
		return
	}

	// fromUser pode chegar como id ou como código curto
	creator, err := s.store.FindUserByID(r.Context(), req.FromUser)
	if err == ledger.ErrUserNotFound {
		creator, err = s.store.FindUserByCode(r.Context(), req.FromUser)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	offer, balance, err := s.store.PlaceOffer(r.Context(), ledger.PlaceOfferParams{
		CreatorID:      creator.ID,
		Selection:      ledger.SelectionDirect,
		Amount:         req.Amount,
		Mode:           ledger.ModeDirect,
		TargetUserCode: req.ToUserCode,
		Message:        req.Message,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	offersCreated.WithLabelValues(string(ledger.ModeDirect)).Inc()

	_ = s.publ.PublishOfferCreated(r.Context(), events.OfferCreated{
		OfferID:        offer.ID,
		CreatorID:      offer.CreatorID,
		Selection:      string(offer.Selection),
		Amount:         offer.Amount.String(),
		Mode:           string(offer.Mode),
		TargetUserCode: offer.TargetUserCode,
	})

	writeJSON(w, http.StatusOK, dto.PlaceBetResponse{
		OfferID:     offer.ID,
		OfferStatus: string(offer.Status),
		Balance:     balance.String(),
	})
}

// listChallenges retorna os desafios diretos abertos endereçados ao código informado.
func (s *Server) listChallenges(w http.ResponseWriter, r *http.Request) {
	userCode := r.URL.Query().Get("userCode")
	if userCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userCode required"})
		return
	}

	offers, err := s.store.ListOpenChallenges(r.Context(), userCode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]dto.ChallengeView, 0, len(offers))
	for _, o := range offers {
		v := dto.ChallengeView{
			ID:        o.ID,
			FromUser:  o.CreatorID,
			Amount:    o.Amount.String(),
			Message:   o.Message,
			Selection: string(o.Selection),
			EventName: "General Bet",
			CreatedAt: o.CreatedAt,
		}
		if creator, err := s.store.FindUserByID(r.Context(), o.CreatorID); err == nil {
			if creator.Name != "" {
				v.FromUser = creator.Name
			} else {
				v.FromUser = creator.Code
			}
		}
		if o.EventID != "" {
			if e, err := s.catalog.GetEvent(r.Context(), o.EventID); err == nil {
				v.EventName = e.HomeTeam + " vs " + e.AwayTeam
				v.League = e.LeagueName
			}
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, dto.ChallengesResponse{Challenges: out})
}

// challengeAction aceita ou rejeita um desafio aberto. O aceite cria o match
// e bloqueia a contrapartida; a rejeição cancela a oferta e devolve os fundos
// bloqueados do criador.
func (s *Server) challengeAction(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "id")
	var req dto.ChallengeActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	if req.Action == "reject" {
		offer, err := s.store.RejectOffer(r.Context(), offerID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ChallengeActionResponse{OfferID: offer.ID, Status: string(offer.Status)})
		return
	}

	match, err := s.store.AcceptOffer(r.Context(), ledger.AcceptOfferParams{
		OfferID:           offerID,
		AcceptorSelection: ledger.Selection(req.AcceptorSelection),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	_ = s.publ.PublishMatchCreated(r.Context(), events.MatchCreated{
		MatchID:           match.ID,
		OfferID:           match.OfferID,
		CreatorID:         match.CreatorID,
		AcceptorID:        match.AcceptorID,
		CreatorAmount:     match.CreatorAmount.String(),
		AcceptorAmount:    match.AcceptorAmount.String(),
		AcceptorSelection: string(match.AcceptorSelection),
	})

	writeJSON(w, http.StatusOK, dto.ChallengeActionResponse{
		OfferID: match.OfferID,
		Status:  string(ledger.OfferMatched),
		Match: &dto.MatchResponse{
			MatchID:           match.ID,
			OfferID:           match.OfferID,
			Status:            string(match.Status),
			AcceptorSelection: string(match.AcceptorSelection),
			CreatorAmount:     match.CreatorAmount.String(),
			AcceptorAmount:    match.AcceptorAmount.String(),
		},
	})
}

// getWallet retorna saldo e moeda da carteira do usuário.
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId required"})
		return
	}
	wlt, err := s.store.GetWallet(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{
		UserID:   userID,
		Balance:  wlt.Balance.String(),
		Currency: wlt.Currency,
	})
}

// deposit credita saldo na carteira do usuário.
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	wlt, err := s.store.Deposit(r.Context(), req.UserID, req.Amount, req.ExternalRef)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WalletResponse{
		UserID:   req.UserID,
		Balance:  wlt.Balance.String(),
		Currency: wlt.Currency,
	})
}

// listTransactions retorna o histórico do razão do usuário.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "userId required"})
		return
	}
	txs, err := s.store.ListTransactionsByUser(r.Context(), userID, 100)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.TransactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, dto.TransactionView{
			ID:        t.ID,
			Type:      string(t.Type),
			Status:    t.Status,
			Amount:    t.Amount.String(),
			OfferID:   t.OfferID,
			MatchID:   t.MatchID,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, dto.TransactionsResponse{Transactions: out})
}

// writeError mapeia a categoria do erro para o status HTTP.
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

// writeJSON serializa a resposta em JSON e define o status HTTP.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
