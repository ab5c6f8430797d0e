package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/p2p-bet-platform-poc/internal/ledger"
)

// Cache encapsula o cache Redis do catálogo de eventos.
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

func keyEvent(eventID string) string { return "catalog:event:" + eventID }

// GetEvent retorna o evento do cache; (nil, false) em cache miss.
func (c *Cache) GetEvent(ctx context.Context, eventID string) (*ledger.SportEvent, bool, error) {
	b, err := c.R.Get(ctx, keyEvent(eventID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var e ledger.SportEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false, err
	}
	return &e, true, nil
}

// SetEvent armazena o evento no cache com o TTL configurado.
func (c *Cache) SetEvent(ctx context.Context, e *ledger.SportEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyEvent(e.ID), b, c.TTL).Err()
}
