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

	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
	"github.com/radieske/p2p-bet-platform-poc/internal/settlement-service/dto"
	"github.com/radieske/p2p-bet-platform-poc/pkg/contracts/events"
)

type noopPublisher struct {
	settled []events.MatchSettled
}

func (p *noopPublisher) PublishMatchSettled(_ context.Context, e events.MatchSettled) error {
	p.settled = append(p.settled, e)
	return nil
}

func newTestEnv(t *testing.T) (*ledger.Store, *noopPublisher, *httptest.Server) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	feeRate, _ := decimal.NewFromString("0.05")
	store := ledger.NewStore(db, feeRate)
	require.NoError(t, store.InitSchema(context.Background()))

	publ := &noopPublisher{}
	srv := httptest.NewServer(NewServer(zap.NewNop(), store, publ).Router())
	t.Cleanup(srv.Close)
	return store, publ, srv
}

// seedMatch cria evento, dois usuários financiados e um match ACTIVE.
func seedMatch(t *testing.T, store *ledger.Store, eventID, code string, creatorSel ledger.Selection, amount string) *ledger.BetMatch {
	t.Helper()
	ctx := context.Background()

	_, err := store.DB().ExecContext(ctx, `
		INSERT INTO sport_events(id, home_team, away_team, league_name, start_time, status)
		VALUES($1,'Olimpia','Motagua','Liga Nacional',$2,'SCHEDULED')
		ON CONFLICT (id) DO NOTHING`, eventID, time.Now().UTC())
	require.NoError(t, err)

	amt, _ := decimal.NewFromString(amount)
	creator, err := store.CreateUser(ctx, "C-"+code, "")
	require.NoError(t, err)
	acceptor, err := store.CreateUser(ctx, "A-"+code, "")
	require.NoError(t, err)
	for _, u := range []*ledger.User{creator, acceptor} {
		_, err = store.Deposit(ctx, u.ID, amt.Mul(decimal.NewFromInt(10)), "seed")
		require.NoError(t, err)
	}

	offer, _, err := store.PlaceOffer(ctx, ledger.PlaceOfferParams{
		CreatorID: creator.ID, EventID: eventID, Selection: creatorSel,
		Amount: amt, Mode: ledger.ModeDirect, TargetUserCode: acceptor.Code,
	})
	require.NoError(t, err)
	match, err := store.AcceptOffer(ctx, ledger.AcceptOfferParams{OfferID: offer.ID})
	require.NoError(t, err)
	return match
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func TestSettleByEventEndpoint(t *testing.T) {
	store, publ, srv := newTestEnv(t)
	seedMatch(t, store, "EV1", "m1", ledger.SelectionHome, "100")
	seedMatch(t, store, "EV1", "m2", ledger.SelectionAway, "200")

	resp := postJSON(t, srv.URL+"/v1/settlements", map[string]any{
		"eventId": "EV1", "actualResult": "HOME",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var out dto.SettleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Settled, 2)
	require.Equal(t, "CREATOR_WIN", out.Settled[0].Result)
	require.Equal(t, "ACCEPTOR_WIN", out.Settled[1].Result)
	require.Equal(t, "10", out.Settled[0].PlatformFee)
	require.Equal(t, "20", out.Settled[1].PlatformFee)

	// um match_settled por match
	require.Len(t, publ.settled, 2)

	// segunda liquidação do mesmo evento -> 404, nada publicado a mais
	resp2 := postJSON(t, srv.URL+"/v1/settlements", map[string]any{
		"eventId": "EV1", "actualResult": "HOME",
	})
	require.Equal(t, http.StatusNotFound, resp2.StatusCode)
	resp2.Body.Close()
	require.Len(t, publ.settled, 2)
}

func TestSettleSingleMatchEndpoint(t *testing.T) {
	store, publ, srv := newTestEnv(t)
	match := seedMatch(t, store, "EV2", "s1", ledger.SelectionHome, "500")

	resp := postJSON(t, srv.URL+"/v1/settlements", map[string]any{
		"matchId": match.ID, "actualResult": "DRAW",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var out dto.SettleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Settled, 1)
	require.Equal(t, "PUSH", out.Settled[0].Result)
	require.Equal(t, "0", out.Settled[0].PlatformFee)
	require.Len(t, publ.settled, 1)
	require.Empty(t, publ.settled[0].Payout)

	// repetir -> 409 (match já liquidado)
	resp2 := postJSON(t, srv.URL+"/v1/settlements", map[string]any{
		"matchId": match.ID, "actualResult": "DRAW",
	})
	require.Equal(t, http.StatusConflict, resp2.StatusCode)
	resp2.Body.Close()
}

func TestSettleRequestValidation(t *testing.T) {
	_, _, srv := newTestEnv(t)

	// nem eventId nem matchId
	resp := postJSON(t, srv.URL+"/v1/settlements", map[string]any{"actualResult": "HOME"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// os dois ao mesmo tempo
	resp = postJSON(t, srv.URL+"/v1/settlements", map[string]any{
		"eventId": "EV", "matchId": "M", "actualResult": "HOME",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// resultado fora do domínio
	resp = postJSON(t, srv.URL+"/v1/settlements", map[string]any{
		"eventId": "EV", "actualResult": "OPPOSITE",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestListActiveMatchesEndpoint(t *testing.T) {
	store, _, srv := newTestEnv(t)
	match := seedMatch(t, store, "EV3", "l1", ledger.SelectionHome, "100")

	resp, err := http.Get(srv.URL + "/v1/matches/active")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()
	var out dto.ActiveMatchesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Matches, 1)
	require.Equal(t, match.ID, out.Matches[0].MatchID)
	require.Equal(t, "HOME", out.Matches[0].CreatorSelection)
	require.Equal(t, "AWAY", out.Matches[0].AcceptorView) // OPPOSITE resolvido
	require.Equal(t, "200", out.Matches[0].Pool)

	// depois da liquidação a lista esvazia
	_, err = store.SettleMatch(context.Background(), match.ID, ledger.SelectionHome)
	require.NoError(t, err)
	resp2, err := http.Get(srv.URL + "/v1/matches/active")
	require.NoError(t, err)
	defer resp2.Body.Close()
	var out2 dto.ActiveMatchesResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&out2))
	require.Empty(t, out2.Matches)
}
