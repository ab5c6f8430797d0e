package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceOfferParams descreve a criação de uma oferta de aposta.
type PlaceOfferParams struct {
	CreatorID      string
	EventID        string // vazio em desafios diretos genéricos
	Selection      Selection
	Amount         decimal.Decimal
	Mode           OfferMode
	TargetUserCode string // obrigatório em mode direct
	Message        string
}

// PlaceOffer cria uma oferta OPEN e bloqueia os fundos do criador em uma única
// transação: débito da carteira, linha BET_LOCK e inserção da oferta são
// gravados juntos ou não são gravados. Retorna a oferta e o novo saldo.
func (s *Store) PlaceOffer(ctx context.Context, p PlaceOfferParams) (*BetOffer, decimal.Decimal, error) {
	if !p.Amount.IsPositive() {
		return nil, decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if p.Mode != ModeDirect && p.Mode != ModeRandom {
		return nil, decimal.Zero, fmt.Errorf("%w: mode must be direct or random", ErrValidation)
	}
	if !p.Selection.IsOutcome() && p.Selection != SelectionDirect {
		return nil, decimal.Zero, fmt.Errorf("%w: invalid selection %q", ErrValidation, p.Selection)
	}
	if p.Mode == ModeDirect {
		if p.TargetUserCode == "" {
			return nil, decimal.Zero, fmt.Errorf("%w: missing opponent code", ErrValidation)
		}
		target, err := s.FindUserByCode(ctx, p.TargetUserCode)
		if err != nil {
			if err == ErrUserNotFound {
				return nil, decimal.Zero, ErrAcceptorNotFound
			}
			return nil, decimal.Zero, err
		}
		if target.ID == p.CreatorID {
			return nil, decimal.Zero, fmt.Errorf("%w: cannot challenge yourself", ErrValidation)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if p.EventID != "" {
		var one int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM sport_events WHERE id=$1`, p.EventID).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, decimal.Zero, ErrEventNotFound
		}
		if err != nil {
			return nil, decimal.Zero, err
		}
	}

	w, err := loadWalletTx(ctx, tx, p.CreatorID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if err = debitWalletTx(ctx, tx, w, p.Amount); err != nil {
		return nil, decimal.Zero, err
	}

	now := time.Now().UTC()
	offer := &BetOffer{
		ID:             uuid.NewString(),
		CreatorID:      p.CreatorID,
		EventID:        p.EventID,
		Selection:      p.Selection,
		Amount:         p.Amount,
		Mode:           p.Mode,
		TargetUserCode: p.TargetUserCode,
		Message:        p.Message,
		Status:         OfferOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bet_offers(id, creator_id, event_id, selection, amount, mode, target_user_code, message, status, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		offer.ID, offer.CreatorID, nullString(offer.EventID), string(offer.Selection), offer.Amount.String(),
		string(offer.Mode), nullString(offer.TargetUserCode), offer.Message, string(offer.Status),
		offer.CreatedAt, offer.UpdatedAt); err != nil {
		return nil, decimal.Zero, err
	}

	if err = insertTransactionTx(ctx, tx, &Transaction{
		UserID:    p.CreatorID,
		WalletID:  w.ID,
		Type:      TxBetLock,
		Amount:    p.Amount,
		OfferID:   offer.ID,
		CreatedAt: now,
	}); err != nil {
		return nil, decimal.Zero, err
	}

	if err = tx.Commit(); err != nil {
		return nil, decimal.Zero, err
	}
	return offer, w.Balance, nil
}

// AcceptOfferParams descreve o aceite de uma oferta aberta.
type AcceptOfferParams struct {
	OfferID           string
	AcceptorID        string    // opcional; resolvido pelo target code da oferta quando vazio
	AcceptorSelection Selection // opcional; persiste OPPOSITE quando vazio
}

// AcceptOffer transforma uma oferta OPEN em um match ACTIVE, bloqueando a
// contrapartida do aceitante. Tudo em uma transação: débito do aceitante,
// BET_LOCK, oferta OPEN->MATCHED (CAS) e criação do match.
func (s *Store) AcceptOffer(ctx context.Context, p AcceptOfferParams) (*BetMatch, error) {
	if p.AcceptorSelection != "" && !p.AcceptorSelection.IsOutcome() {
		return nil, fmt.Errorf("%w: invalid acceptor selection %q", ErrValidation, p.AcceptorSelection)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	offer, err := loadOfferTx(ctx, tx, p.OfferID)
	if err != nil {
		return nil, err
	}
	if offer.Status != OfferOpen {
		return nil, ErrOfferNotOpen
	}

	acceptorID := p.AcceptorID
	if acceptorID == "" {
		if offer.TargetUserCode == "" {
			return nil, ErrAcceptorNotFound
		}
		var id string
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE code=$1`, offer.TargetUserCode).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, ErrAcceptorNotFound
		}
		if err != nil {
			return nil, err
		}
		acceptorID = id
	}
	if acceptorID == offer.CreatorID {
		return nil, fmt.Errorf("%w: creator cannot accept own offer", ErrValidation)
	}

	w, err := loadWalletTx(ctx, tx, acceptorID)
	if err != nil {
		if err == ErrWalletNotFound {
			return nil, ErrAcceptorNotFound
		}
		return nil, err
	}
	if err = debitWalletTx(ctx, tx, w, offer.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// Guarda de concorrência: dois aceites simultâneos resolvem em exatamente
	// um sucesso e um ErrOfferNotOpen.
	res, err := tx.ExecContext(ctx,
		`UPDATE bet_offers SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		string(OfferMatched), now, offer.ID, string(OfferOpen))
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrOfferNotOpen
	}

	acceptorSel := p.AcceptorSelection
	if acceptorSel == "" {
		acceptorSel = SelectionOpposite
	}
	match := &BetMatch{
		ID:                uuid.NewString(),
		OfferID:           offer.ID,
		CreatorID:         offer.CreatorID,
		AcceptorID:        acceptorID,
		CreatorAmount:     offer.Amount,
		AcceptorAmount:    offer.Amount,
		AcceptorSelection: acceptorSel,
		Status:            MatchActive,
		PlatformFeeTotal:  decimal.Zero,
		CreatedAt:         now,
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bet_matches(id, offer_id, creator_id, acceptor_id, creator_amount, acceptor_amount,
			acceptor_selection, status, platform_fee_total, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,'0',$9)`,
		match.ID, match.OfferID, match.CreatorID, match.AcceptorID,
		match.CreatorAmount.String(), match.AcceptorAmount.String(),
		string(match.AcceptorSelection), string(match.Status), match.CreatedAt); err != nil {
		return nil, err
	}

	if err = insertTransactionTx(ctx, tx, &Transaction{
		UserID:    acceptorID,
		WalletID:  w.ID,
		Type:      TxBetLock,
		Amount:    offer.Amount,
		OfferID:   offer.ID,
		MatchID:   match.ID,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return match, nil
}

// RejectOffer cancela uma oferta OPEN e devolve os fundos bloqueados do
// criador. O reembolso é efeito obrigatório da rejeição: o BET_LOCK da criação
// já debitou o criador, então CANCELED sem crédito violaria a conservação.
func (s *Store) RejectOffer(ctx context.Context, offerID string) (*BetOffer, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	offer, err := loadOfferTx(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != OfferOpen {
		return nil, ErrOfferNotOpen
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE bet_offers SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		string(OfferCanceled), now, offer.ID, string(OfferOpen))
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrOfferNotOpen
	}

	w, err := loadWalletTx(ctx, tx, offer.CreatorID)
	if err != nil {
		return nil, err
	}
	if err = creditWalletTx(ctx, tx, w, offer.Amount); err != nil {
		return nil, err
	}
	if err = insertTransactionTx(ctx, tx, &Transaction{
		UserID:    offer.CreatorID,
		WalletID:  w.ID,
		Type:      TxBetRelease,
		Amount:    offer.Amount,
		OfferID:   offer.ID,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	offer.Status = OfferCanceled
	offer.UpdatedAt = now
	return offer, nil
}

const offerColumns = `id, creator_id, event_id, selection, amount, mode, target_user_code, message, status, created_at, updated_at`

func loadOfferTx(ctx context.Context, tx *sql.Tx, offerID string) (*BetOffer, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM bet_offers WHERE id=$1`, offerID)
	return scanOffer(row)
}

// GetOffer retorna uma oferta pelo id.
func (s *Store) GetOffer(ctx context.Context, offerID string) (*BetOffer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM bet_offers WHERE id=$1`, offerID)
	return scanOffer(row)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanOffer(row rowScanner) (*BetOffer, error) {
	var o BetOffer
	var amount string
	var eventID, targetCode sql.NullString
	err := row.Scan(&o.ID, &o.CreatorID, &eventID, &o.Selection, &amount, &o.Mode,
		&targetCode, &o.Message, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	o.EventID = eventID.String
	o.TargetUserCode = targetCode.String
	return &o, nil
}

// ListOffersByCreator retorna as ofertas criadas pelo usuário, mais recente primeiro.
func (s *Store) ListOffersByCreator(ctx context.Context, creatorID string) ([]*BetOffer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM bet_offers WHERE creator_id=$1 ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BetOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOpenChallenges retorna as ofertas diretas OPEN endereçadas ao código informado.
func (s *Store) ListOpenChallenges(ctx context.Context, targetUserCode string) ([]*BetOffer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+offerColumns+` FROM bet_offers
		WHERE target_user_code=$1 AND status=$2 AND mode=$3
		ORDER BY created_at DESC`, targetUserCode, string(OfferOpen), string(ModeDirect))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BetOffer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
