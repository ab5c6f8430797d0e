package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SettleMatch liquida um único match a partir do resultado autoritativo do
// evento. É o caminho usado para desafios diretos sem evento associado.
// Idempotente por match: repetir a chamada devolve ErrMatchNotActive sem
// nenhum movimento de fundos.
func (s *Store) SettleMatch(ctx context.Context, matchID string, actual Selection) (*BetMatch, error) {
	if !actual.IsOutcome() {
		return nil, fmt.Errorf("%w: actualResult must be HOME, AWAY or DRAW", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	m, err := s.settleOneTx(ctx, tx, matchID, actual, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

// SettleByEvent liquida todos os matches ACTIVE de um evento em UMA transação:
// ou todos os matches do lote chegam a SETTLED com seus movimentos de fundos,
// ou nenhum chega. A transação fica aberta pelo lote inteiro; o timeout do
// chamador deve ser proporcional ao número de matches.
func (s *Store) SettleByEvent(ctx context.Context, eventID string, actual Selection) ([]*BetMatch, error) {
	if !actual.IsOutcome() {
		return nil, fmt.Errorf("%w: actualResult must be HOME, AWAY or DRAW", ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT m.id FROM bet_matches m
		JOIN bet_offers o ON o.id = m.offer_id
		WHERE o.event_id=$1 AND m.status=$2
		ORDER BY m.created_at`, eventID, string(MatchActive))
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoActiveMatches
	}

	now := time.Now().UTC()
	settled := make([]*BetMatch, 0, len(ids))
	for _, id := range ids {
		m, err := s.settleOneTx(ctx, tx, id, actual, now)
		if err != nil {
			// qualquer falha aborta o lote inteiro
			return nil, fmt.Errorf("settle match %s: %w", id, err)
		}
		settled = append(settled, m)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return settled, nil
}

// settleOneTx aplica o algoritmo de liquidação a um match dentro da transação
// corrente. Nenhuma escrita é visível fora da transação até o commit do chamador.
func (s *Store) settleOneTx(ctx context.Context, tx *sql.Tx, matchID string, actual Selection, now time.Time) (*BetMatch, error) {
	m, creatorSel, err := loadMatchTx(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != MatchActive {
		return nil, ErrMatchNotActive
	}

	plan := PlanSettlement(creatorSel, m.AcceptorSelection, actual, m.CreatorAmount, m.AcceptorAmount, s.feeRate)

	winnerID := ""
	switch plan.Result {
	case ResultCreatorWin:
		winnerID = m.CreatorID
	case ResultAcceptorWin:
		winnerID = m.AcceptorID
	}

	// Guarda de concorrência e idempotência: a transição ACTIVE->SETTLED só
	// acontece uma vez; liquidações concorrentes resolvem em um sucesso e
	// N-1 ErrMatchNotActive.
	res, err := tx.ExecContext(ctx, `
		UPDATE bet_matches
		SET status=$1, result=$2, winner_id=$3, platform_fee_total=$4, settled_at=$5
		WHERE id=$6 AND status=$7`,
		string(MatchSettled), string(plan.Result), nullString(winnerID),
		plan.Fee.String(), now, m.ID, string(MatchActive))
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrMatchNotActive
	}

	if plan.Result == ResultPush {
		// Reembolso integral dos dois lados, sem taxa.
		if err := s.releaseTx(ctx, tx, m, m.CreatorID, m.CreatorAmount, now); err != nil {
			return nil, err
		}
		if err := s.releaseTx(ctx, tx, m, m.AcceptorID, m.AcceptorAmount, now); err != nil {
			return nil, err
		}
	} else {
		w, err := loadWalletTx(ctx, tx, winnerID)
		if err != nil {
			return nil, err
		}
		if err = creditWalletTx(ctx, tx, w, plan.Payout); err != nil {
			return nil, err
		}
		if err = insertTransactionTx(ctx, tx, &Transaction{
			UserID:    winnerID,
			WalletID:  w.ID,
			Type:      TxBetRelease,
			Amount:    plan.Payout,
			OfferID:   m.OfferID,
			MatchID:   m.ID,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
		// Registro informativo da taxa: a carteira já foi creditada líquida,
		// esta linha não debita nada.
		if err = insertTransactionTx(ctx, tx, &Transaction{
			UserID:    winnerID,
			WalletID:  w.ID,
			Type:      TxPlatformFee,
			Amount:    plan.Fee,
			OfferID:   m.OfferID,
			MatchID:   m.ID,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}

	m.Status = MatchSettled
	m.Result = plan.Result
	m.WinnerID = winnerID
	m.PlatformFeeTotal = plan.Fee
	m.SettledAt = &now
	return m, nil
}

// releaseTx devolve um valor bloqueado a um participante e registra o BET_RELEASE.
func (s *Store) releaseTx(ctx context.Context, tx *sql.Tx, m *BetMatch, userID string, amount decimal.Decimal, now time.Time) error {
	w, err := loadWalletTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if err = creditWalletTx(ctx, tx, w, amount); err != nil {
		return err
	}
	return insertTransactionTx(ctx, tx, &Transaction{
		UserID:    userID,
		WalletID:  w.ID,
		Type:      TxBetRelease,
		Amount:    amount,
		OfferID:   m.OfferID,
		MatchID:   m.ID,
		CreatedAt: now,
	})
}

const matchColumns = `m.id, m.offer_id, m.creator_id, m.acceptor_id, m.creator_amount, m.acceptor_amount,
	m.acceptor_selection, m.status, m.result, m.winner_id, m.platform_fee_total, m.created_at, m.settled_at`

func loadMatchTx(ctx context.Context, tx *sql.Tx, matchID string) (*BetMatch, Selection, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+matchColumns+`, o.selection
		FROM bet_matches m JOIN bet_offers o ON o.id = m.offer_id
		WHERE m.id=$1`, matchID)
	return scanMatchWithSelection(row)
}

// GetMatch retorna um match pelo id.
func (s *Store) GetMatch(ctx context.Context, matchID string) (*BetMatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`, o.selection
		FROM bet_matches m JOIN bet_offers o ON o.id = m.offer_id
		WHERE m.id=$1`, matchID)
	m, _, err := scanMatchWithSelection(row)
	return m, err
}

func scanMatchWithSelection(row rowScanner) (*BetMatch, Selection, error) {
	var m BetMatch
	var creatorAmount, acceptorAmount, fee string
	var result, winnerID sql.NullString
	var settledAt sql.NullTime
	var creatorSel Selection
	err := row.Scan(&m.ID, &m.OfferID, &m.CreatorID, &m.AcceptorID, &creatorAmount, &acceptorAmount,
		&m.AcceptorSelection, &m.Status, &result, &winnerID, &fee, &m.CreatedAt, &settledAt, &creatorSel)
	if err == sql.ErrNoRows {
		return nil, "", ErrMatchNotFound
	}
	if err != nil {
		return nil, "", err
	}
	if m.CreatorAmount, err = decimal.NewFromString(creatorAmount); err != nil {
		return nil, "", fmt.Errorf("parse creator amount %q: %w", creatorAmount, err)
	}
	if m.AcceptorAmount, err = decimal.NewFromString(acceptorAmount); err != nil {
		return nil, "", fmt.Errorf("parse acceptor amount %q: %w", acceptorAmount, err)
	}
	if m.PlatformFeeTotal, err = decimal.NewFromString(fee); err != nil {
		return nil, "", fmt.Errorf("parse platform fee %q: %w", fee, err)
	}
	m.Result = MatchResult(result.String)
	m.WinnerID = winnerID.String
	if settledAt.Valid {
		t := settledAt.Time
		m.SettledAt = &t
	}
	return &m, creatorSel, nil
}

// ActiveMatch é a visão de um match ACTIVE com o contexto da oferta, usada
// pela listagem do operador.
type ActiveMatch struct {
	Match            BetMatch
	CreatorSelection Selection
	EventID          string
}

// ListActiveMatches retorna todos os matches ACTIVE com o palpite do criador e
// o evento de origem.
func (s *Store) ListActiveMatches(ctx context.Context) ([]ActiveMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+matchColumns+`, o.selection, o.event_id
		FROM bet_matches m JOIN bet_offers o ON o.id = m.offer_id
		WHERE m.status=$1
		ORDER BY m.created_at DESC`, string(MatchActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatchViews(rows)
}

// ListMatchesByAcceptor retorna os matches em que o usuário é o aceitante.
func (s *Store) ListMatchesByAcceptor(ctx context.Context, acceptorID string) ([]ActiveMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+matchColumns+`, o.selection, o.event_id
		FROM bet_matches m JOIN bet_offers o ON o.id = m.offer_id
		WHERE m.acceptor_id=$1
		ORDER BY m.created_at DESC`, acceptorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatchViews(rows)
}

// scanMatchViews varre linhas de match+oferta (selection e event_id por último).
func scanMatchViews(rows *sql.Rows) ([]ActiveMatch, error) {
	var out []ActiveMatch
	for rows.Next() {
		var m BetMatch
		var creatorAmount, acceptorAmount, fee string
		var result, winnerID, eventID sql.NullString
		var settledAt sql.NullTime
		var creatorSel Selection
		if err := rows.Scan(&m.ID, &m.OfferID, &m.CreatorID, &m.AcceptorID, &creatorAmount, &acceptorAmount,
			&m.AcceptorSelection, &m.Status, &result, &winnerID, &fee, &m.CreatedAt, &settledAt,
			&creatorSel, &eventID); err != nil {
			return nil, err
		}
		var err error
		if m.CreatorAmount, err = decimal.NewFromString(creatorAmount); err != nil {
			return nil, fmt.Errorf("parse creator amount %q: %w", creatorAmount, err)
		}
		if m.AcceptorAmount, err = decimal.NewFromString(acceptorAmount); err != nil {
			return nil, fmt.Errorf("parse acceptor amount %q: %w", acceptorAmount, err)
		}
		if m.PlatformFeeTotal, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("parse platform fee %q: %w", fee, err)
		}
		m.Result = MatchResult(result.String)
		m.WinnerID = winnerID.String
		if settledAt.Valid {
			t := settledAt.Time
			m.SettledAt = &t
		}
		out = append(out, ActiveMatch{Match: m, CreatorSelection: creatorSel, EventID: eventID.String})
	}
	return out, rows.Err()
}

// GetMatchByOffer retorna o match derivado de uma oferta, se existir.
func (s *Store) GetMatchByOffer(ctx context.Context, offerID string) (*BetMatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`, o.selection
		FROM bet_matches m JOIN bet_offers o ON o.id = m.offer_id
		WHERE m.offer_id=$1`, offerID)
	m, _, err := scanMatchWithSelection(row)
	return m, err
}
