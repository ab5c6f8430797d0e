package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store implementa o razão (Ledger Store) sobre database/sql.
// Toda operação de escrita roda como uma única transação: saldo de carteira e
// linhas de transactions são gravados juntos ou não são gravados.
type Store struct {
	db      *sql.DB
	feeRate decimal.Decimal
}

// NewStore cria o Store com a taxa de plataforma aplicada em liquidações
// com vencedor (ex: 0.05).
func NewStore(db *sql.DB, feeRate decimal.Decimal) *Store {
	return &Store{db: db, feeRate: feeRate}
}

// DB expõe a conexão para health checks.
func (s *Store) DB() *sql.DB { return s.db }

// CreateUser cria usuário e carteira vazia em uma transação.
// O provisionamento real de identidade vive fora do core; isto atende seed e testes.
func (s *Store) CreateUser(ctx context.Context, code, name string) (*User, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code required", ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	u := &User{ID: uuid.NewString(), Code: code, Name: name, CreatedAt: now}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO users(id, code, name, created_at) VALUES($1,$2,$3,$4)`,
		u.ID, u.Code, u.Name, u.CreatedAt); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallets(id, user_id, balance, currency, version, created_at) VALUES($1,$2,'0','HNL',1,$3)`,
		uuid.NewString(), u.ID, now); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// FindUserByID retorna o usuário pelo id.
func (s *Store) FindUserByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, `SELECT id, code, name, created_at FROM users WHERE id=$1`, id)
}

// FindUserByCode retorna o usuário pelo código curto de desafio.
func (s *Store) FindUserByCode(ctx context.Context, code string) (*User, error) {
	return s.findUser(ctx, `SELECT id, code, name, created_at FROM users WHERE code=$1`, code)
}

func (s *Store) findUser(ctx context.Context, query, arg string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Code, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetWallet retorna a carteira do usuário com o último saldo committed.
func (s *Store) GetWallet(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	var balance string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, balance, currency, version, created_at FROM wallets WHERE user_id=$1`,
		userID).Scan(&w.ID, &w.UserID, &balance, &w.Currency, &w.Version, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return &w, nil
}

// Deposit credita saldo na carteira do usuário e registra a operação no razão.
func (s *Store) Deposit(ctx context.Context, userID string, amount decimal.Decimal, externalRef string) (*Wallet, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	w, err := loadWalletTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err = creditWalletTx(ctx, tx, w, amount); err != nil {
		return nil, err
	}
	if err = insertTransactionTx(ctx, tx, &Transaction{
		UserID:    userID,
		WalletID:  w.ID,
		Type:      TxDeposit,
		Amount:    amount,
		Reference: "deposit:" + externalRef,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// loadWalletTx carrega a carteira do usuário dentro da transação corrente.
func loadWalletTx(ctx context.Context, tx *sql.Tx, userID string) (*Wallet, error) {
	var w Wallet
	var balance string
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, balance, currency, version, created_at FROM wallets WHERE user_id=$1`,
		userID).Scan(&w.ID, &w.UserID, &balance, &w.Currency, &w.Version, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	return &w, nil
}

// creditWalletTx incrementa o saldo com CAS otimista na versão da linha.
func creditWalletTx(ctx context.Context, tx *sql.Tx, w *Wallet, amount decimal.Decimal) error {
	return writeWalletBalanceTx(ctx, tx, w, w.Balance.Add(amount))
}

// debitWalletTx decrementa o saldo; falha com ErrInsufficientFunds se o saldo
// não cobre o valor (invariante de saldo não-negativo).
func debitWalletTx(ctx context.Context, tx *sql.Tx, w *Wallet, amount decimal.Decimal) error {
	if w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return writeWalletBalanceTx(ctx, tx, w, w.Balance.Sub(amount))
}

func writeWalletBalanceTx(ctx context.Context, tx *sql.Tx, w *Wallet, newBalance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance=$1, version=version+1 WHERE id=$2 AND version=$3`,
		newBalance.String(), w.ID, w.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConcurrentModification
	}
	w.Balance = newBalance
	w.Version++
	return nil
}

// insertTransactionTx grava uma linha append-only no razão. Gera id e marca
// COMPLETED; o core não modela transações pendentes.
func insertTransactionTx(ctx context.Context, tx *sql.Tx, t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TxCompleted
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, wallet_id, type, status, amount, offer_id, match_id, reference, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.UserID, t.WalletID, string(t.Type), t.Status, t.Amount.String(),
		nullString(t.OfferID), nullString(t.MatchID), t.Reference, t.CreatedAt)
	return err
}

// ListTransactionsByUser retorna o histórico do razão do usuário, mais recente primeiro.
func (s *Store) ListTransactionsByUser(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, wallet_id, type, status, amount, offer_id, match_id, reference, created_at
		FROM transactions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var amount string
		var offerID, matchID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.WalletID, &t.Type, &t.Status, &amount, &offerID, &matchID, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amount, err)
		}
		t.OfferID = offerID.String
		t.MatchID = matchID.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
