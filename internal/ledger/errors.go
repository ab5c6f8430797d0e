package ledger

import "errors"

// Kind classifica um erro do core em um conjunto pequeno e estável, para que
// os handlers não precisem comparar mensagens.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindStateConflict     Kind = "STATE_CONFLICT"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindStorageFailure    Kind = "STORAGE_FAILURE"
)

var (
	// Validation
	ErrValidation = errors.New("invalid input")

	// NotFound
	ErrUserNotFound     = errors.New("user not found")
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrOfferNotFound    = errors.New("offer not found")
	ErrMatchNotFound    = errors.New("match not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrAcceptorNotFound = errors.New("acceptor not found")
	ErrNoActiveMatches  = errors.New("no active matches for event")

	// StateConflict: guarda de idempotência do core
	ErrOfferNotOpen   = errors.New("offer is not open")
	ErrMatchNotActive = errors.New("match is not active")

	// InsufficientFunds
	ErrInsufficientFunds = errors.New("insufficient funds")

	// StorageFailure (transiente, seguro de repetir: nada parcial foi gravado)
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// KindOf retorna a categoria de um erro do core. Erros desconhecidos são
// tratados como falha de storage.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrWalletNotFound),
		errors.Is(err, ErrOfferNotFound),
		errors.Is(err, ErrMatchNotFound),
		errors.Is(err, ErrEventNotFound),
		errors.Is(err, ErrAcceptorNotFound),
		errors.Is(err, ErrNoActiveMatches):
		return KindNotFound
	case errors.Is(err, ErrOfferNotOpen), errors.Is(err, ErrMatchNotActive):
		return KindStateConflict
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	default:
		return KindStorageFailure
	}
}

// Retryable indica se o chamador pode repetir a operação com segurança.
// Conflitos de estado não são retryable: sinalizam que a ação já não se aplica.
func Retryable(err error) bool {
	return KindOf(err) == KindStorageFailure
}
