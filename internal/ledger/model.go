package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Selection é o palpite de um participante sobre o resultado do evento.
type Selection string

const (
	SelectionHome Selection = "HOME"
	SelectionAway Selection = "AWAY"
	SelectionDraw Selection = "DRAW"

	// SelectionDirect é o placeholder de desafios diretos genéricos (sem evento).
	SelectionDirect Selection = "DIRECT"

	// SelectionOpposite é persistido no match quando o aceitante não informa palpite;
	// resolvido na liquidação via Complement.
	SelectionOpposite Selection = "OPPOSITE"
)

// IsOutcome indica se a selection é um resultado final válido de evento.
func (s Selection) IsOutcome() bool {
	return s == SelectionHome || s == SelectionAway || s == SelectionDraw
}

type OfferMode string

const (
	ModeDirect OfferMode = "direct"
	ModeRandom OfferMode = "random"
)

type OfferStatus string

const (
	OfferOpen     OfferStatus = "OPEN"
	OfferMatched  OfferStatus = "MATCHED"
	OfferCanceled OfferStatus = "CANCELED"
)

type MatchStatus string

const (
	MatchActive  MatchStatus = "ACTIVE"
	MatchSettled MatchStatus = "SETTLED"
)

type MatchResult string

const (
	ResultCreatorWin  MatchResult = "CREATOR_WIN"
	ResultAcceptorWin MatchResult = "ACCEPTOR_WIN"
	ResultPush        MatchResult = "PUSH"
)

type TransactionType string

const (
	TxBetLock     TransactionType = "BET_LOCK"
	TxBetRelease  TransactionType = "BET_RELEASE"
	TxPlatformFee TransactionType = "PLATFORM_FEE"
	TxDeposit     TransactionType = "DEPOSIT"
)

// TxCompleted é o único status de transação modelado; não há estados pendentes.
const TxCompleted = "COMPLETED"

type User struct {
	ID        string
	Code      string // código curto usado em desafios diretos, ex: "PB-1234-HN"
	Name      string
	CreatedAt time.Time
}

// Wallet pertence a exatamente um usuário. O saldo nunca fica negativo e só é
// mutado dentro de uma transação do Store.
type Wallet struct {
	ID        string
	UserID    string
	Balance   decimal.Decimal
	Currency  string
	Version   int64
	CreatedAt time.Time
}

// SportEvent é contexto somente leitura; o core nunca o altera.
type SportEvent struct {
	ID         string
	HomeTeam   string
	AwayTeam   string
	LeagueName string
	StartTime  time.Time
	Status     string // SCHEDULED | LIVE | FINISHED
}

// BetOffer é a proposta unilateral de aposta. Os fundos do criador são
// bloqueados na criação, independente de existir contraparte.
type BetOffer struct {
	ID             string
	CreatorID      string
	EventID        string // vazio em desafios diretos genéricos
	Selection      Selection
	Amount         decimal.Decimal
	Mode           OfferMode
	TargetUserCode string
	Message        string
	Status         OfferStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BetMatch é a unidade bilateral financiada. O pool (creatorAmount+acceptorAmount)
// é invariante após a criação; ACTIVE -> SETTLED acontece exatamente uma vez.
type BetMatch struct {
	ID                string
	OfferID           string
	CreatorID         string
	AcceptorID        string
	CreatorAmount     decimal.Decimal
	AcceptorAmount    decimal.Decimal
	AcceptorSelection Selection
	Status            MatchStatus
	Result            MatchResult // vazio enquanto ACTIVE
	WinnerID          string
	PlatformFeeTotal  decimal.Decimal
	CreatedAt         time.Time
	SettledAt         *time.Time
}

// Transaction é o registro append-only do razão; nunca é alterada após criada.
type Transaction struct {
	ID        string
	UserID    string
	WalletID  string
	Type      TransactionType
	Status    string
	Amount    decimal.Decimal
	OfferID   string
	MatchID   string
	Reference string // referência externa opcional, ex: "deposit:<ref>"
	CreatedAt time.Time
}
