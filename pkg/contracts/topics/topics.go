package topics

const (
	// Ciclo de vida da aposta
	OfferCreated = "offer_created"
	MatchCreated = "match_created"
	MatchSettled = "match_settled"

	// Resultados de eventos esportivos (entrada da liquidação em lote)
	EventResults = "event_results"

	// DLQs
	EventResultsDLQ = "event_results_dlq"
)
