package repo

import (
	"context"
	"database/sql"

	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
)

// ReadRepo é o acesso somente leitura ao catálogo de eventos esportivos.
// O core nunca altera o catálogo; a ingestão vive fora deste sistema.
type ReadRepo struct {
	DB *sql.DB
}

const eventColumns = `id, home_team, away_team, league_name, start_time, status`

// GetEvent retorna um evento pelo id.
func (r *ReadRepo) GetEvent(ctx context.Context, eventID string) (*ledger.SportEvent, error) {
	var e ledger.SportEvent
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM sport_events WHERE id=$1`, eventID).
		Scan(&e.ID, &e.HomeTeam, &e.AwayTeam, &e.LeagueName, &e.StartTime, &e.Status)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents retorna os eventos do catálogo, opcionalmente filtrados por status.
func (r *ReadRepo) ListEvents(ctx context.Context, status string) ([]ledger.SportEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM sport_events ORDER BY start_time`
	args := []any{}
	if status != "" {
		q = `SELECT ` + eventColumns + ` FROM sport_events WHERE status=$1 ORDER BY start_time`
		args = append(args, status)
	}
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.SportEvent
	for rows.Next() {
		var e ledger.SportEvent
		if err := rows.Scan(&e.ID, &e.HomeTeam, &e.AwayTeam, &e.LeagueName, &e.StartTime, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
