package dto

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// PlaceBetRequest é o payload de criação de oferta atrelada a um evento.
type PlaceBetRequest struct {
	UserID       string          `json:"userId" validate:"required"`
	EventID      string          `json:"eventId" validate:"required"`
	Selection    string          `json:"selection" validate:"required,oneof=HOME AWAY DRAW"`
	Amount       decimal.Decimal `json:"amount"`
	Mode         string          `json:"mode" validate:"required,oneof=direct random"`
	OpponentCode string          `json:"opponentCode,omitempty"`
	Message      string          `json:"message,omitempty"`
}

func (r *PlaceBetRequest) Validate() error { return validate.Struct(r) }

// ChallengeRequest é o payload de desafio direto genérico, sem evento associado.
type ChallengeRequest struct {
	FromUser   string          `json:"fromUser" validate:"required"`
	ToUserCode string          `json:"toUserCode" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Message    string          `json:"message,omitempty"`
}

func (r *ChallengeRequest) Validate() error { return validate.Struct(r) }

// ChallengeActionRequest aceita ou rejeita um desafio aberto.
type ChallengeActionRequest struct {
	Action            string `json:"action" validate:"required,oneof=accept reject"`
	AcceptorSelection string `json:"acceptorSelection,omitempty" validate:"omitempty,oneof=HOME AWAY DRAW"`
}

func (r *ChallengeActionRequest) Validate() error { return validate.Struct(r) }

// DepositRequest credita saldo na carteira do usuário.
type DepositRequest struct {
	UserID      string          `json:"userId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}

func (r *DepositRequest) Validate() error { return validate.Struct(r) }
