package events

import "time"

// Evento emitido após a liquidação de um match (individual ou em lote).
type MatchSettled struct {
	MatchID     string    `json:"matchId"`
	OfferID     string    `json:"offerId"`
	EventID     string    `json:"eventId,omitempty"`
	Result      string    `json:"result"` // "CREATOR_WIN" | "ACCEPTOR_WIN" | "PUSH"
	WinnerID    string    `json:"winnerId,omitempty"`
	Payout      string    `json:"payout,omitempty"`
	PlatformFee string    `json:"platformFee"`
	SettledAt   time.Time `json:"settledAt"`
}
