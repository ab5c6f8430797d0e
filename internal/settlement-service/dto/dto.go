package dto

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SettleRequest liquida um match avulso (matchId) ou todos os matches ativos
// de um evento (eventId). Exatamente um dos dois deve ser informado.
type SettleRequest struct {
	EventID      string `json:"eventId,omitempty"`
	MatchID      string `json:"matchId,omitempty"`
	ActualResult string `json:"actualResult" validate:"required,oneof=HOME AWAY DRAW"`
}

func (r *SettleRequest) Validate() error { return validate.Struct(r) }

// SettledMatchView é o resumo de um match liquidado.
type SettledMatchView struct {
	MatchID     string     `json:"matchId"`
	OfferID     string     `json:"offerId"`
	Result      string     `json:"result"`
	WinnerID    string     `json:"winnerId,omitempty"`
	Pool        string     `json:"pool"`
	PlatformFee string     `json:"platformFee"`
	SettledAt   *time.Time `json:"settledAt,omitempty"`
}

type SettleResponse struct {
	EventID string             `json:"eventId,omitempty"`
	Settled []SettledMatchView `json:"settled"`
}

// ActiveMatchView é um match ainda ACTIVE, na listagem do operador.
type ActiveMatchView struct {
	MatchID          string    `json:"matchId"`
	OfferID          string    `json:"offerId"`
	EventID          string    `json:"eventId,omitempty"`
	CreatorID        string    `json:"creatorId"`
	AcceptorID       string    `json:"acceptorId"`
	CreatorSelection string    `json:"creatorSelection"`
	AcceptorView     string    `json:"acceptorSelection"`
	Pool             string    `json:"pool"`
	CreatedAt        time.Time `json:"createdAt"`
}

type ActiveMatchesResponse struct {
	Matches []ActiveMatchView `json:"matches"`
}
