package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog"
	ecrepo "github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog/repo"
	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
	"github.com/radieske/p2p-bet-platform-poc/internal/wager-service/dto"
	"github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

// noopPublisher captura os eventos publicados sem Kafka.
type noopPublisher struct {
	offers  []events.OfferCreated
	matches []events.MatchCreated
}

func (p *noopPublisher) PublishOfferCreated(_ context.Context, e events.OfferCreated) error {
	p.offers = append(p.offers, e)
	return nil
}

func (p *noopPublisher) PublishMatchCreated(_ context.Context, e events.MatchCreated) error {
	p.matches = append(p.matches, e)
	return nil
}

type testEnv struct {
	store *ledger.Store
	publ  *noopPublisher
	srv   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	feeRate, _ := decimal.NewFromString("0.05")
	store := ledger.NewStore(db, feeRate)
	require.NoError(t, store.InitSchema(context.Background()))

	catalog := eventcatalog.New(&ecrepo.ReadRepo{DB: db}, nil)
	publ := &noopPublisher{}
	api := NewServer(zap.NewNop(), store, catalog, publ)

	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return &testEnv{store: store, publ: publ, srv: srv}
}

func (e *testEnv) seedUser(t *testing.T, code, balance string) *ledger.User {
	t.Helper()
	u, err := e.store.CreateUser(context.Background(), code, "user "+code)
	require.NoError(t, err)
	if balance != "0" {
		amt, _ := decimal.NewFromString(balance)
		_, err = e.store.Deposit(context.Background(), u.ID, amt, "seed")
		require.NoError(t, err)
	}
	return u
}

func (e *testEnv) seedEvent(t *testing.T, id string) {
	t.Helper()
	_, err := e.store.DB().ExecContext(context.Background(), `
		INSERT INTO sport_events(id, home_team, away_team, league_name, start_time, status)
		VALUES($1,'Olimpia','Motagua','Liga Nacional',$2,'SCHEDULED')`,
		id, time.Now().UTC())
	require.NoError(t, err)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestPlaceBetEndpoint(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "PB-3001-HN", "1000")
	env.seedEvent(t, "EV1")

	resp := postJSON(t, env.srv.URL+"/v1/bets", map[string]any{
		"userId":    u.ID,
		"eventId":   "EV1",
		"selection": "HOME",
		"amount":    "250",
		"mode":      "random",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeJSON[dto.PlaceBetResponse](t, resp)
	require.NotEmpty(t, out.OfferID)
	require.Equal(t, "OPEN", out.OfferStatus)
	require.Equal(t, "750", out.Balance)

	// evento de ciclo de vida publicado
	require.Len(t, env.publ.offers, 1)
	require.Equal(t, out.OfferID, env.publ.offers[0].OfferID)
}

func TestPlaceBetErrors(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "PB-3002-HN", "100")
	env.seedEvent(t, "EV1")

	// saldo insuficiente -> 400
	resp := postJSON(t, env.srv.URL+"/v1/bets", map[string]any{
		"userId": u.ID, "eventId": "EV1", "selection": "HOME",
		"amount": "500", "mode": "random",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// evento inexistente -> 404
	resp = postJSON(t, env.srv.URL+"/v1/bets", map[string]any{
		"userId": u.ID, "eventId": "NOPE", "selection": "HOME",
		"amount": "10", "mode": "random",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// selection inválida -> 400 na validação do payload
	resp = postJSON(t, env.srv.URL+"/v1/bets", map[string]any{
		"userId": u.ID, "eventId": "EV1", "selection": "BANANA",
		"amount": "10", "mode": "random",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// nada foi publicado
	require.Empty(t, env.publ.offers)
}

func TestChallengeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	challenger := env.seedUser(t, "PB-4001-HN", "500")
	target := env.seedUser(t, "PB-4002-HN", "500")

	// cria o desafio direto
	resp := postJSON(t, env.srv.URL+"/v1/challenges", map[string]any{
		"fromUser":   challenger.ID,
		"toUserCode": target.Code,
		"amount":     "150",
		"message":    "te atreves?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decodeJSON[dto.PlaceBetResponse](t, resp)
	require.Equal(t, "350", created.Balance)

	// o alvo enxerga o desafio aberto
	resp2, err := http.Get(env.srv.URL + "/v1/challenges?userCode=" + target.Code)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	list := decodeJSON[dto.ChallengesResponse](t, resp2)
	require.Len(t, list.Challenges, 1)
	require.Equal(t, created.OfferID, list.Challenges[0].ID)

	// aceite cria o match e bloqueia a contrapartida
	req, _ := http.NewRequest(http.MethodPatch,
		env.srv.URL+"/v1/challenges/"+created.OfferID,
		bytes.NewReader([]byte(`{"action":"accept"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp3, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp3.StatusCode)
	action := decodeJSON[dto.ChallengeActionResponse](t, resp3)
	require.Equal(t, "MATCHED", action.Status)
	require.NotNil(t, action.Match)
	require.Equal(t, "OPPOSITE", action.Match.AcceptorSelection)
	require.Len(t, env.publ.matches, 1)

	w, err := env.store.GetWallet(context.Background(), target.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(350)))

	// aceitar de novo -> 409
	req2, _ := http.NewRequest(http.MethodPatch,
		env.srv.URL+"/v1/challenges/"+created.OfferID,
		bytes.NewReader([]byte(`{"action":"accept"}`)))
	req2.Header.Set("Content-Type", "application/json")
	resp4, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp4.StatusCode)
	resp4.Body.Close()
}

func TestChallengeReject(t *testing.T) {
	env := newTestEnv(t)
	challenger := env.seedUser(t, "PB-4003-HN", "500")
	target := env.seedUser(t, "PB-4004-HN", "500")

	resp := postJSON(t, env.srv.URL+"/v1/challenges", map[string]any{
		"fromUser":   challenger.Code, // código também é aceito
		"toUserCode": target.Code,
		"amount":     "200",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decodeJSON[dto.PlaceBetResponse](t, resp)

	req, _ := http.NewRequest(http.MethodPatch,
		env.srv.URL+"/v1/challenges/"+created.OfferID,
		bytes.NewReader([]byte(`{"action":"reject"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	action := decodeJSON[dto.ChallengeActionResponse](t, resp2)
	require.Equal(t, "CANCELED", action.Status)

	// fundos do criador devolvidos
	w, err := env.store.GetWallet(context.Background(), challenger.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(decimal.NewFromInt(500)), "balance=%s", w.Balance)
}

func TestWalletEndpoints(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "PB-5001-HN", "0")

	resp := postJSON(t, env.srv.URL+"/v1/wallet/deposit", map[string]any{
		"userId": u.ID, "amount": "300.25", "external_ref": "topup-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dep := decodeJSON[dto.WalletResponse](t, resp)
	require.Equal(t, "300.25", dep.Balance)
	require.Equal(t, "HNL", dep.Currency)

	resp2, err := http.Get(env.srv.URL + "/v1/wallet?userId=" + u.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	got := decodeJSON[dto.WalletResponse](t, resp2)
	require.Equal(t, "300.25", got.Balance)

	resp3, err := http.Get(env.srv.URL + "/v1/wallet/transactions?userId=" + u.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp3.StatusCode)
	txs := decodeJSON[dto.TransactionsResponse](t, resp3)
	require.Len(t, txs.Transactions, 1)
	require.Equal(t, "DEPOSIT", txs.Transactions[0].Type)

	// usuário sem carteira -> 404
	resp4, err := http.Get(env.srv.URL + "/v1/wallet?userId=ghost")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp4.StatusCode)
	resp4.Body.Close()
}

func TestListBetsNormalizedView(t *testing.T) {
	env := newTestEnv(t)
	creator := env.seedUser(t, "PB-6001-HN", "1000")
	target := env.seedUser(t, "PB-6002-HN", "1000")
	env.seedEvent(t, "EV1")

	// oferta random pendente atrelada a evento
	resp := postJSON(t, env.srv.URL+"/v1/bets", map[string]any{
		"userId": creator.ID, "eventId": "EV1", "selection": "HOME",
		"amount": "100", "mode": "random",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// desafio direto aceito
	resp = postJSON(t, env.srv.URL+"/v1/challenges", map[string]any{
		"fromUser": creator.ID, "toUserCode": target.Code, "amount": "50",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	challenge := decodeJSON[dto.PlaceBetResponse](t, resp)

	req, _ := http.NewRequest(http.MethodPatch,
		env.srv.URL+"/v1/challenges/"+challenge.OfferID,
		bytes.NewReader([]byte(`{"action":"accept"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	resp2.Body.Close()

	// visão do criador: pending (evento) + matched (desafio)
	resp3, err := http.Get(env.srv.URL + "/v1/bets?userId=" + creator.ID)
	require.NoError(t, err)
	bets := decodeJSON[dto.BetsResponse](t, resp3)
	require.Len(t, bets.Bets, 2)
	statuses := map[string]string{}
	for _, b := range bets.Bets {
		statuses[b.ID] = b.Status
	}
	require.Equal(t, "matched", statuses[challenge.OfferID])

	// visão do aceitante: o match recebido aparece como matched
	resp4, err := http.Get(env.srv.URL + "/v1/bets?userId=" + target.ID)
	require.NoError(t, err)
	got := decodeJSON[dto.BetsResponse](t, resp4)
	require.Len(t, got.Bets, 1)
	require.Equal(t, "matched", got.Bets[0].Status)
	require.Equal(t, "DRAW", got.Bets[0].Selection) // OPPOSITE de DIRECT resolve em DRAW
}
