package eventcatalog

import (
	"context"

	"github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog/cache"
	"github.com/radieske/p2p-bet-platform-poc/internal/eventcatalog/repo"
	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
)

// Catalog combina o repositório de leitura com o cache Redis (read-through).
// O cache é opcional; sem ele as consultas vão direto ao banco.
type Catalog struct {
	Repo  *repo.ReadRepo
	Cache *cache.Cache
}

func New(r *repo.ReadRepo, c *cache.Cache) *Catalog { return &Catalog{Repo: r, Cache: c} }

// GetEvent busca o evento no cache e cai para o banco em miss.
// Falhas de cache não derrubam a consulta.
func (c *Catalog) GetEvent(ctx context.Context, eventID string) (*ledger.SportEvent, error) {
	if c.Cache != nil {
		if e, ok, err := c.Cache.GetEvent(ctx, eventID); err == nil && ok {
			return e, nil
		}
	}
	e, err := c.Repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		_ = c.Cache.SetEvent(ctx, e)
	}
	return e, nil
}

// ListEvents delega ao repositório (listagens não são cacheadas).
func (c *Catalog) ListEvents(ctx context.Context, status string) ([]ledger.SportEvent, error) {
	return c.Repo.ListEvents(ctx, status)
}
