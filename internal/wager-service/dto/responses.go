package dto

import "time"

type PlaceBetResponse struct {
	OfferID     string `json:"offerId"`
	OfferStatus string `json:"offerStatus"`
	Balance     string `json:"balance"`
}

type WalletResponse struct {
	UserID   string `json:"userId"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// BetView é a visão normalizada de uma aposta do usuário (enviada ou recebida).
type BetView struct {
	ID        string `json:"id"`
	EventID   string `json:"eventId,omitempty"`
	League    string `json:"league"`
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
	Date      string `json:"date"`
	Status    string `json:"status"` // pending | matched | canceled | won | lost | push
	Selection string `json:"selection"`
	Amount    string `json:"amount"`
	Mode      string `json:"mode"`
	Opponent  string `json:"opponent,omitempty"`
}

type BetsResponse struct {
	Bets []BetView `json:"bets"`
}

// ChallengeView é um desafio direto aberto endereçado ao usuário.
type ChallengeView struct {
	ID        string    `json:"id"`
	FromUser  string    `json:"fromUser"`
	Amount    string    `json:"amount"`
	Message   string    `json:"message,omitempty"`
	Selection string    `json:"selection"`
	EventName string    `json:"eventName"`
	League    string    `json:"league,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChallengesResponse struct {
	Challenges []ChallengeView `json:"challenges"`
}

type MatchResponse struct {
	MatchID           string `json:"matchId"`
	OfferID           string `json:"offerId"`
	Status            string `json:"status"`
	AcceptorSelection string `json:"acceptorSelection"`
	CreatorAmount     string `json:"creatorAmount"`
	AcceptorAmount    string `json:"acceptorAmount"`
}

type ChallengeActionResponse struct {
	OfferID string         `json:"offerId"`
	Status  string         `json:"status"`
	Match   *MatchResponse `json:"match,omitempty"`
}

type TransactionView struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	OfferID   string    `json:"offerId,omitempty"`
	MatchID   string    `json:"matchId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type TransactionsResponse struct {
	Transactions []TransactionView `json:"transactions"`
}
