package events

import "time"

// Resultado autoritativo de um evento esportivo, consumido pelo settlement-worker.
type EventResult struct {
	EventID string    `json:"event_id"`
	Result  string    `json:"result"` // "HOME" | "AWAY" | "DRAW"
	Source  string    `json:"source"` // ex: "results-feed"
	Ts      time.Time `json:"ts"`
}
