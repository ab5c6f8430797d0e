package ledger

import "context"

// DDL portável entre Postgres (produção) e SQLite (testes): placeholders $N,
// valores monetários como TEXT decimal e CAS otimista em vez de FOR UPDATE.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		code       TEXT UNIQUE NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		id         TEXT PRIMARY KEY,
		user_id    TEXT UNIQUE NOT NULL REFERENCES users(id),
		balance    TEXT NOT NULL,
		currency   TEXT NOT NULL DEFAULT 'HNL',
		version    BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sport_events (
		id          TEXT PRIMARY KEY,
		home_team   TEXT NOT NULL,
		away_team   TEXT NOT NULL,
		league_name TEXT NOT NULL,
		start_time  TIMESTAMP NOT NULL,
		status      TEXT NOT NULL DEFAULT 'SCHEDULED'
	)`,
	`CREATE TABLE IF NOT EXISTS bet_offers (
		id               TEXT PRIMARY KEY,
		creator_id       TEXT NOT NULL REFERENCES users(id),
		event_id         TEXT REFERENCES sport_events(id),
		selection        TEXT NOT NULL,
		amount           TEXT NOT NULL,
		mode             TEXT NOT NULL,
		target_user_code TEXT,
		message          TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		created_at       TIMESTAMP NOT NULL,
		updated_at       TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bet_matches (
		id                 TEXT PRIMARY KEY,
		offer_id           TEXT UNIQUE NOT NULL REFERENCES bet_offers(id),
		creator_id         TEXT NOT NULL REFERENCES users(id),
		acceptor_id        TEXT NOT NULL REFERENCES users(id),
		creator_amount     TEXT NOT NULL,
		acceptor_amount    TEXT NOT NULL,
		acceptor_selection TEXT NOT NULL,
		status             TEXT NOT NULL,
		result             TEXT,
		winner_id          TEXT,
		platform_fee_total TEXT NOT NULL DEFAULT '0',
		created_at         TIMESTAMP NOT NULL,
		settled_at         TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		wallet_id  TEXT NOT NULL REFERENCES wallets(id),
		type       TEXT NOT NULL,
		status     TEXT NOT NULL,
		amount     TEXT NOT NULL,
		offer_id   TEXT,
		match_id   TEXT,
		reference  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_creator ON bet_offers(creator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_target ON bet_offers(target_user_code, status)`,
	`CREATE INDEX IF NOT EXISTS idx_offers_event ON bet_offers(event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON bet_matches(status)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_acceptor ON bet_matches(acceptor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_match ON transactions(match_id)`,
}

// InitSchema cria as tabelas e índices do razão caso não existam.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
