package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// newTestStore sobe o razão em SQLite em memória. O DDL e as queries são
// portáveis; MaxOpenConns(1) evita "database is locked" com transações concorrentes.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := NewStore(db, d("0.05"))
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

// seedUser cria usuário com carteira e deposita o saldo inicial.
func seedUser(t *testing.T, s *Store, code, balance string) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), code, "user "+code)
	require.NoError(t, err)
	if balance != "0" {
		_, err = s.Deposit(context.Background(), u.ID, d(balance), "seed")
		require.NoError(t, err)
	}
	return u
}

func seedEvent(t *testing.T, s *Store, id string) {
	t.Helper()
	_, err := s.DB().ExecContext(context.Background(), `
		INSERT INTO sport_events(id, home_team, away_team, league_name, start_time, status)
		VALUES($1,'Olimpia','Motagua','Liga Nacional',$2,'SCHEDULED')`,
		id, time.Now().UTC())
	require.NoError(t, err)
}

func TestCreateUserAndDeposit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := seedUser(t, s, "PB-1001-HN", "250.50")

	w, err := s.GetWallet(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(d("250.50")), "balance=%s", w.Balance)
	require.Equal(t, "HNL", w.Currency)

	txs, err := s.ListTransactionsByUser(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, TxDeposit, txs[0].Type)
	require.Equal(t, TxCompleted, txs[0].Status)
	require.Equal(t, "deposit:seed", txs[0].Reference)
}

func TestDepositRejectsNonPositive(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "PB-1002-HN", "0")

	_, err := s.Deposit(context.Background(), u.ID, d("0"), "x")
	require.Equal(t, KindValidation, KindOf(err))
	_, err = s.Deposit(context.Background(), u.ID, d("-10"), "x")
	require.Equal(t, KindValidation, KindOf(err))
}

func TestPlaceOfferLocksFunds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := seedUser(t, s, "PB-1003-HN", "1000")
	seedEvent(t, s, "EV1")

	offer, balance, err := s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID,
		EventID:   "EV1",
		Selection: SelectionHome,
		Amount:    d("300"),
		Mode:      ModeRandom,
	})
	require.NoError(t, err)
	require.Equal(t, OfferOpen, offer.Status)
	require.True(t, balance.Equal(d("700")))

	// saldo e BET_LOCK persistidos juntos
	w, err := s.GetWallet(ctx, creator.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(d("700")))

	txs, err := s.ListTransactionsByUser(ctx, creator.ID, 0)
	require.NoError(t, err)
	var locks int
	for _, tx := range txs {
		if tx.Type == TxBetLock && tx.OfferID == offer.ID {
			locks++
			require.True(t, tx.Amount.Equal(d("300")))
		}
	}
	require.Equal(t, 1, locks)
}

func TestPlaceOfferInsufficientFunds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := seedUser(t, s, "PB-1004-HN", "100")

	_, _, err := s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID,
		Selection: SelectionHome,
		Amount:    d("100.01"),
		Mode:      ModeRandom,
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// nada foi gravado: saldo intacto, nenhuma oferta, nenhuma transação de lock
	w, err := s.GetWallet(ctx, creator.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(d("100")))

	offers, err := s.ListOffersByCreator(ctx, creator.ID)
	require.NoError(t, err)
	require.Empty(t, offers)
}

func TestPlaceOfferValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := seedUser(t, s, "PB-1005-HN", "1000")

	cases := []PlaceOfferParams{
		{CreatorID: creator.ID, Selection: SelectionHome, Amount: d("0"), Mode: ModeRandom},
		{CreatorID: creator.ID, Selection: SelectionHome, Amount: d("10"), Mode: "other"},
		{CreatorID: creator.ID, Selection: "BANANA", Amount: d("10"), Mode: ModeRandom},
		{CreatorID: creator.ID, Selection: SelectionDirect, Amount: d("10"), Mode: ModeDirect}, // sem target
	}
	for i, p := range cases {
		_, _, err := s.PlaceOffer(ctx, p)
		require.Equal(t, KindValidation, KindOf(err), "case %d", i)
	}

	// desafio a si mesmo
	_, _, err := s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID, Selection: SelectionDirect, Amount: d("10"),
		Mode: ModeDirect, TargetUserCode: creator.Code,
	})
	require.Equal(t, KindValidation, KindOf(err))

	// alvo inexistente
	_, _, err = s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID, Selection: SelectionDirect, Amount: d("10"),
		Mode: ModeDirect, TargetUserCode: "PB-0000-HN",
	})
	require.ErrorIs(t, err, ErrAcceptorNotFound)

	// evento inexistente
	_, _, err = s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID, EventID: "NOPE", Selection: SelectionHome,
		Amount: d("10"), Mode: ModeRandom,
	})
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestAcceptOfferCreatesActiveMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := seedUser(t, s, "PB-2001-HN", "500")
	target := seedUser(t, s, "PB-2002-HN", "500")

	offer, _, err := s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID, Selection: SelectionDirect, Amount: d("200"),
		Mode: ModeDirect, TargetUserCode: target.Code,
	})
	require.NoError(t, err)

	match, err := s.AcceptOffer(ctx, AcceptOfferParams{OfferID: offer.ID})
	require.NoError(t, err)
	require.Equal(t, MatchActive, match.Status)
	require.Equal(t, target.ID, match.AcceptorID)
	require.Equal(t, SelectionOpposite, match.AcceptorSelection)
	require.True(t, match.CreatorAmount.Equal(match.AcceptorAmount))

	// contrapartida do aceitante bloqueada
	w, err := s.GetWallet(ctx, target.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(d("300")))

	// oferta virou MATCHED
	got, err := s.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	require.Equal(t, OfferMatched, got.Status)

	// segundo aceite falha
	_, err = s.AcceptOffer(ctx, AcceptOfferParams{OfferID: offer.ID, AcceptorID: creator.ID})
	require.ErrorIs(t, err, ErrOfferNotOpen)
}

func TestAcceptOfferInsufficientFundsKeepsOfferOpen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := seedUser(t, s, "PB-2003-HN", "500")
	target := seedUser(t, s, "PB-2004-HN", "50")

	offer, _, err := s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID, Selection: SelectionDirect, Amount: d("200"),
		Mode: ModeDirect, TargetUserCode: target.Code,
	})
	require.NoError(t, err)

	_, err = s.AcceptOffer(ctx, AcceptOfferParams{OfferID: offer.ID})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	got, err := s.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	require.Equal(t, OfferOpen, got.Status)

	// nenhum lock parcial gravado para o aceitante
	txs, err := s.ListTransactionsByUser(ctx, target.ID, 0)
	require.NoError(t, err)
	for _, tx := range txs {
		require.NotEqual(t, TxBetLock, tx.Type)
	}
}

func TestRejectOfferRefundsCreator(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := seedUser(t, s, "PB-2005-HN", "500")
	target := seedUser(t, s, "PB-2006-HN", "500")

	offer, _, err := s.PlaceOffer(ctx, PlaceOfferParams{
		CreatorID: creator.ID, Selection: SelectionDirect, Amount: d("200"),
		Mode: ModeDirect, TargetUserCode: target.Code,
	})
	require.NoError(t, err)

	rejected, err := s.RejectOffer(ctx, offer.ID)
	require.NoError(t, err)
	require.Equal(t, OfferCanceled, rejected.Status)

	// fundos bloqueados devolvidos integralmente
	w, err := s.GetWallet(ctx, creator.ID)
	require.NoError(t, err)
	require.True(t, w.Balance.Equal(d("500")), "balance=%s", w.Balance)

	// razão registra o BET_RELEASE do estorno
	txs, err := s.ListTransactionsByUser(ctx, creator.ID, 0)
	require.NoError(t, err)
	var releases int
	for _, tx := range txs {
		if tx.Type == TxBetRelease && tx.OfferID == offer.ID {
			releases++
			require.True(t, tx.Amount.Equal(d("200")))
		}
	}
	require.Equal(t, 1, releases)

	// rejeitar de novo é conflito de estado
	_, err = s.RejectOffer(ctx, offer.ID)
	require.ErrorIs(t, err, ErrOfferNotOpen)
	// aceitar depois de rejeitado também
	_, err = s.AcceptOffer(ctx, AcceptOfferParams{OfferID: offer.ID})
	require.ErrorIs(t, err, ErrOfferNotOpen)
}

func TestListOpenChallenges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	creator := seedUser(t, s, "PB-2007-HN", "500")
	target := seedUser(t, s, "PB-2008-HN", "500")

	for i := 0; i < 2; i++ {
		_, _, err := s.PlaceOffer(ctx, PlaceOfferParams{
			CreatorID: creator.ID, Selection: SelectionDirect, Amount: d("50"),
			Mode: ModeDirect, TargetUserCode: target.Code, Message: "te atreves?",
		})
		require.NoError(t, err)
	}

	open, err := s.ListOpenChallenges(ctx, target.Code)
	require.NoError(t, err)
	require.Len(t, open, 2)

	// desafio aceito some da lista
	_, err = s.AcceptOffer(ctx, AcceptOfferParams{OfferID: open[0].ID})
	require.NoError(t, err)
	open, err = s.ListOpenChallenges(ctx, target.Code)
	require.NoError(t, err)
	require.Len(t, open, 1)
}
